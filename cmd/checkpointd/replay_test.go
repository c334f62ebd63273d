package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbelval/wait-time-logger/internal/domain"
	"github.com/jbelval/wait-time-logger/internal/service"
)

// memSink is an in-memory service.Sink.
type memSink struct {
	events   []domain.RawEvent
	journeys []domain.CompletedJourney
}

func (s *memSink) AppendRawEvent(_ context.Context, ev domain.RawEvent) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *memSink) CommitJourney(_ context.Context, j domain.CompletedJourney) (domain.CompletedJourney, error) {
	s.journeys = append(s.journeys, j)
	return j, nil
}

func (s *memSink) Rotate(domain.Session) error { return nil }

var _ service.Sink = (*memSink)(nil)

// mockIngester is a hand-written test double for lineIngester.
type mockIngester struct {
	ingestAt func(ctx context.Context, at time.Time, message string) error
	drained  bool
}

func (m *mockIngester) IngestAt(ctx context.Context, at time.Time, message string) error {
	return m.ingestAt(ctx, at, message)
}

func (m *mockIngester) Drain(context.Context) error {
	m.drained = true
	return nil
}

var _ lineIngester = (*mockIngester)(nil)

const sampleLog = `2025-06-01 09:00:00 - A AAAAAAAA
2025-06-01 09:05:00 - lost glove
2025-06-01 09:12:30 - H AAAAAAAA
no timestamp here
`

func TestReadLogLines(t *testing.T) {
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

	lines, err := readLogLines(strings.NewReader(sampleLog), time.UTC, func() time.Time { return now })

	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), lines[0].at)
	assert.Equal(t, "A AAAAAAAA", lines[0].message)
	assert.Equal(t, "lost glove", lines[1].message)
	assert.Equal(t, now, lines[3].at)
	assert.Equal(t, "no timestamp here", lines[3].message)
}

func TestReplay_RebuildsJourneys(t *testing.T) {
	lines, err := readLogLines(strings.NewReader(sampleLog), time.UTC, time.Now)
	require.NoError(t, err)
	first := lines[0].at
	sink := &memSink{}
	engine := service.NewEngine(sink, service.WithClock(func() time.Time { return first }))

	require.NoError(t, replay(context.Background(), engine, lines[:3], true))

	require.Len(t, sink.journeys, 1)
	got := sink.journeys[0]
	assert.Equal(t, "AAAAAAAA", got.BadgeID)
	assert.Equal(t, "lost glove", got.Notes)
	assert.Equal(t, domain.SessionOf(first), got.Session)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 12, 30, 0, time.UTC), *got.At(domain.StationH))
	assert.Len(t, sink.events, 3)
}

func TestReplay_AutoSaveDrainsOpenJourneys(t *testing.T) {
	lines := []logLine{{at: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), message: "A BBBBBBBB"}}
	sink := &memSink{}
	engine := service.NewEngine(sink, service.WithClock(func() time.Time { return lines[0].at }))

	require.NoError(t, replay(context.Background(), engine, lines, true))

	require.Len(t, sink.journeys, 1)
	assert.Equal(t, 0, engine.OpenJourneys())
}

func TestReplay_WithoutAutoSaveLeavesJourneysOpen(t *testing.T) {
	lines := []logLine{{at: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), message: "A BBBBBBBB"}}
	sink := &memSink{}
	engine := service.NewEngine(sink, service.WithClock(func() time.Time { return lines[0].at }))

	require.NoError(t, replay(context.Background(), engine, lines, false))

	assert.Empty(t, sink.journeys)
	assert.Equal(t, 1, engine.OpenJourneys())
}

func TestReplay_StopsAtFirstFailureAndStillDrains(t *testing.T) {
	dbErr := errors.New("connection reset")
	var calls int
	proc := &mockIngester{ingestAt: func(context.Context, time.Time, string) error {
		calls++
		if calls == 2 {
			return dbErr
		}
		return nil
	}}
	lines := []logLine{{message: "one"}, {message: "two"}, {message: "three"}}

	err := replay(context.Background(), proc, lines, true)

	assert.ErrorIs(t, err, dbErr)
	assert.ErrorContains(t, err, "line 2")
	assert.Equal(t, 2, calls)
	assert.True(t, proc.drained)
}
