package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbelval/wait-time-logger/internal/domain"
	"github.com/jbelval/wait-time-logger/internal/service"
)

// ---- helpers ---------------------------------------------------------------

var courseStart = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// newEngine wires an Engine to sink with a hand-driven clock.
func newEngine(sink service.Sink) (*service.Engine, *fakeClock) {
	clock := &fakeClock{t: courseStart}
	return service.NewEngine(sink, service.WithClock(clock.Now)), clock
}

// feed ingests messages one minute apart.
func feed(t *testing.T, e *service.Engine, clock *fakeClock, messages ...string) {
	t.Helper()
	for _, m := range messages {
		clock.Advance(time.Minute)
		require.NoError(t, e.Ingest(context.Background(), m), "ingest %q", m)
	}
}

// ---- end-to-end scenarios --------------------------------------------------

func TestEngine_EntryThenExit(t *testing.T) {
	sink := &mockSink{}
	e, clock := newEngine(sink)

	feed(t, e, clock, "A AAAAAAAA", "H AAAAAAAA")

	require.Len(t, sink.journeys, 1)
	got := sink.journeys[0]
	assert.Equal(t, "AAAAAAAA", got.BadgeID)
	assert.Equal(t, domain.SessionOf(courseStart), got.Session)
	require.NotNil(t, got.At(domain.StationA))
	require.NotNil(t, got.At(domain.StationH))
	assert.Equal(t, courseStart.Add(time.Minute), *got.At(domain.StationA))
	assert.Equal(t, courseStart.Add(2*time.Minute), *got.At(domain.StationH))
	assert.Nil(t, got.At(domain.StationB))
	assert.Nil(t, got.At(domain.StationC))
	assert.Nil(t, got.At(domain.StationV))
	assert.Empty(t, got.Notes)
	assert.Equal(t, 0, e.OpenJourneys())
}

func TestEngine_NoteBetweenEntryAndExit(t *testing.T) {
	sink := &mockSink{}
	e, clock := newEngine(sink)

	feed(t, e, clock, "A AAAAAAAA", "note text", "H AAAAAAAA")

	require.Len(t, sink.journeys, 1)
	assert.Equal(t, "note text", sink.journeys[0].Notes)
}

func TestEngine_SecondEntryFinalizesFirst(t *testing.T) {
	sink := &mockSink{}
	e, clock := newEngine(sink)

	feed(t, e, clock, "A AAAAAAAA", "A AAAAAAAA")

	require.Len(t, sink.journeys, 1, "first journey is committed on the second entry")
	first := sink.journeys[0]
	assert.Len(t, first.Times, 1)
	assert.Equal(t, courseStart.Add(time.Minute), *first.At(domain.StationA))
	assert.Equal(t, 1, e.OpenJourneys())

	feed(t, e, clock, "H AAAAAAAA")

	require.Len(t, sink.journeys, 2)
	second := sink.journeys[1]
	assert.Equal(t, courseStart.Add(2*time.Minute), *second.At(domain.StationA))
	assert.NotNil(t, second.At(domain.StationH))
	assert.NotEqual(t, first.ID, second.ID)
}

func TestEngine_SecondEntryThenDrain(t *testing.T) {
	sink := &mockSink{}
	e, clock := newEngine(sink)

	feed(t, e, clock, "A AAAAAAAA", "A AAAAAAAA")
	require.NoError(t, e.Drain(context.Background()))

	require.Len(t, sink.journeys, 2)
	assert.Len(t, sink.journeys[0].Times, 1)
	assert.Len(t, sink.journeys[1].Times, 1)
}

// ---- state machine ---------------------------------------------------------

func TestEngine_FullCourse_LastWriteWinsPerStation(t *testing.T) {
	sink := &mockSink{}
	e, clock := newEngine(sink)

	feed(t, e, clock,
		"A AAAAAAAA", // +1m
		"V AAAAAAAA", // +2m
		"B AAAAAAAA", // +3m
		"B AAAAAAAA", // +4m
		"C AAAAAAAA", // +5m
		"H AAAAAAAA", // +6m
	)

	require.Len(t, sink.journeys, 1)
	got := sink.journeys[0]
	assert.Equal(t, courseStart.Add(1*time.Minute), *got.At(domain.StationA))
	assert.Equal(t, courseStart.Add(4*time.Minute), *got.At(domain.StationB))
	assert.Equal(t, courseStart.Add(5*time.Minute), *got.At(domain.StationC))
	assert.Equal(t, courseStart.Add(2*time.Minute), *got.At(domain.StationV))
	assert.Equal(t, courseStart.Add(6*time.Minute), *got.At(domain.StationH))
}

func TestEngine_IntermediateStationOpensJourney(t *testing.T) {
	sink := &mockSink{}
	e, clock := newEngine(sink)

	feed(t, e, clock, "C BBBBBBBB")

	assert.Equal(t, 1, e.OpenJourneys())
	assert.Empty(t, sink.journeys)
}

func TestEngine_ExitWithoutEntry(t *testing.T) {
	sink := &mockSink{}
	e, clock := newEngine(sink)

	feed(t, e, clock, "H BBBBBBBB")

	require.Len(t, sink.journeys, 1)
	assert.Len(t, sink.journeys[0].Times, 1)
	assert.NotNil(t, sink.journeys[0].At(domain.StationH))
}

func TestEngine_NoteBroadcastToEveryOpenJourney(t *testing.T) {
	sink := &mockSink{}
	e, clock := newEngine(sink)

	feed(t, e, clock, "A AAAAAAAA", "A BBBBBBBB", "  lost glove  ", "H AAAAAAAA", "second note", "H BBBBBBBB")

	require.Len(t, sink.journeys, 2)
	assert.Equal(t, "lost glove", sink.journeys[0].Notes)
	assert.Equal(t, "lost glove, second note", sink.journeys[1].Notes)
}

func TestEngine_BlankNoteIsKept(t *testing.T) {
	sink := &mockSink{}
	e, clock := newEngine(sink)

	feed(t, e, clock, "A AAAAAAAA", "   ", "x", "H AAAAAAAA")

	require.Len(t, sink.journeys, 1)
	assert.Equal(t, ", x", sink.journeys[0].Notes)
}

func TestEngine_NoteWithNoOpenJourney(t *testing.T) {
	sink := &mockSink{}
	e, clock := newEngine(sink)

	feed(t, e, clock, "stray note")

	assert.Len(t, sink.events, 1)
	assert.Empty(t, sink.journeys)
	assert.Equal(t, 0, e.OpenJourneys())
}

func TestEngine_EveryMessageLogsOneRawEvent(t *testing.T) {
	sink := &mockSink{}
	e, clock := newEngine(sink)
	messages := []string{"A AAAAAAAA", "noise", "", "A AAAAAAAA trailing", "H AAAAAAAA"}

	feed(t, e, clock, messages...)

	require.Len(t, sink.events, len(messages))
	for i, ev := range sink.events {
		assert.Equal(t, messages[i], ev.Message)
		assert.Equal(t, courseStart.Add(time.Duration(i+1)*time.Minute), ev.Time)
		assert.Equal(t, domain.SessionOf(courseStart), ev.Session)
	}

	stats := e.Stats()
	assert.Equal(t, int64(5), stats.Received)
	assert.Equal(t, int64(2), stats.Matched)
	assert.Equal(t, int64(3), stats.Unmatched)
	assert.Equal(t, int64(1), stats.Finalized)
}

// ---- finalize --------------------------------------------------------------

func TestEngine_Finalize_UnknownBadge(t *testing.T) {
	e, _ := newEngine(&mockSink{})

	err := e.Finalize(context.Background(), "ZZZZZZZZ")

	assert.ErrorIs(t, err, domain.ErrNoOpenJourney)
}

func TestEngine_Finalize_CommitFailureKeepsJourney(t *testing.T) {
	dbErr := errors.New("disk full")
	sink := &mockSink{
		commitJourney: func(_ context.Context, _ domain.CompletedJourney) (domain.CompletedJourney, error) {
			return domain.CompletedJourney{}, dbErr
		},
	}
	e, clock := newEngine(sink)
	feed(t, e, clock, "A AAAAAAAA")

	clock.Advance(time.Minute)
	err := e.Ingest(context.Background(), "H AAAAAAAA")

	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, 1, e.OpenJourneys(), "journey stays open for a later drain")
}

func TestEngine_RawEventFailureStopsProcessing(t *testing.T) {
	dbErr := errors.New("lock timeout")
	sink := &mockSink{
		appendRawEvent: func(_ context.Context, _ domain.RawEvent) error { return dbErr },
	}
	e, _ := newEngine(sink)

	err := e.Ingest(context.Background(), "A AAAAAAAA")

	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, 0, e.OpenJourneys())
}

// ---- drain -----------------------------------------------------------------

func TestEngine_Drain_FinalizesAllOpen(t *testing.T) {
	sink := &mockSink{}
	e, clock := newEngine(sink)
	feed(t, e, clock, "A AAAAAAAA", "B BBBBBBBB")

	require.NoError(t, e.Drain(context.Background()))

	require.Len(t, sink.journeys, 2)
	assert.Equal(t, "AAAAAAAA", sink.journeys[0].BadgeID)
	assert.Equal(t, "BBBBBBBB", sink.journeys[1].BadgeID)
	assert.Equal(t, 0, e.OpenJourneys())
}

func TestEngine_Drain_ContinuesPastFailures(t *testing.T) {
	dbErr := errors.New("constraint")
	sink := &mockSink{}
	sink.commitJourney = func(_ context.Context, j domain.CompletedJourney) (domain.CompletedJourney, error) {
		if j.BadgeID == "AAAAAAAA" {
			return domain.CompletedJourney{}, dbErr
		}
		sink.journeys = append(sink.journeys, j)
		return j, nil
	}
	e, clock := newEngine(sink)
	feed(t, e, clock, "A AAAAAAAA", "A BBBBBBBB")

	err := e.Drain(context.Background())

	assert.ErrorIs(t, err, dbErr)
	require.Len(t, sink.journeys, 1)
	assert.Equal(t, "BBBBBBBB", sink.journeys[0].BadgeID)
	assert.Equal(t, 1, e.OpenJourneys())
}

// ---- sessions --------------------------------------------------------------

func TestEngine_SessionRollover(t *testing.T) {
	sink := &mockSink{}
	clock := &fakeClock{t: time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)}
	e := service.NewEngine(sink, service.WithClock(clock.Now))

	require.NoError(t, e.Ingest(context.Background(), "A AAAAAAAA"))
	clock.Advance(3 * time.Hour)
	require.NoError(t, e.Ingest(context.Background(), "A BBBBBBBB"))

	next := domain.SessionOf(clock.Now())
	assert.Equal(t, []domain.Session{next}, sink.rotated)
	assert.Equal(t, next, e.Session())
	assert.Equal(t, next, sink.events[1].Session)

	require.NoError(t, e.Drain(context.Background()))
	require.Len(t, sink.journeys, 2)
	assert.Equal(t, domain.SessionOf(courseStart), sink.journeys[0].Session,
		"a journey keeps the session it started in")
	assert.Equal(t, next, sink.journeys[1].Session)
}

func TestEngine_SessionRollover_RetriedAfterRotateFailure(t *testing.T) {
	diskErr := errors.New("disk full")
	sink := &mockSink{}
	fail := true
	sink.rotate = func(session domain.Session) error {
		if fail {
			return diskErr
		}
		sink.rotated = append(sink.rotated, session)
		return nil
	}
	e, clock := newEngine(sink)
	start := e.Session()

	clock.Advance(26 * time.Hour)
	err := e.Ingest(context.Background(), "first")

	require.ErrorIs(t, err, diskErr)
	assert.Equal(t, start, e.Session(), "session stays put until the sink has rotated")
	assert.Empty(t, sink.events)

	fail = false
	clock.Advance(2 * time.Hour)
	require.NoError(t, e.Ingest(context.Background(), "second"))

	next := domain.SessionOf(clock.Now())
	assert.Equal(t, []domain.Session{next}, sink.rotated)
	assert.Equal(t, next, e.Session())
	require.Len(t, sink.events, 1)
	assert.Equal(t, next, sink.events[0].Session)
}

func TestEngine_IngestAt_ExplicitTimestamp(t *testing.T) {
	sink := &mockSink{}
	e, _ := newEngine(sink)
	at := courseStart.Add(-time.Hour)

	require.NoError(t, e.IngestAt(context.Background(), at, "A AAAAAAAA"))
	require.NoError(t, e.IngestAt(context.Background(), at.Add(time.Minute), "H AAAAAAAA"))

	require.Len(t, sink.journeys, 1)
	assert.Equal(t, at, *sink.journeys[0].At(domain.StationA))
}
