package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jbelval/wait-time-logger/internal/domain"
	"github.com/jbelval/wait-time-logger/internal/repo"
	"github.com/jbelval/wait-time-logger/internal/service"
)

// ---- mock sink -------------------------------------------------------------

// mockSink is a hand-written test double for service.Sink.
// Function fields override behaviour; when nil, calls are recorded and succeed.
type mockSink struct {
	appendRawEvent func(ctx context.Context, ev domain.RawEvent) error
	commitJourney  func(ctx context.Context, j domain.CompletedJourney) (domain.CompletedJourney, error)
	rotate         func(session domain.Session) error

	events   []domain.RawEvent
	journeys []domain.CompletedJourney
	rotated  []domain.Session
}

func (m *mockSink) AppendRawEvent(ctx context.Context, ev domain.RawEvent) error {
	if m.appendRawEvent != nil {
		return m.appendRawEvent(ctx, ev)
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *mockSink) CommitJourney(ctx context.Context, j domain.CompletedJourney) (domain.CompletedJourney, error) {
	if m.commitJourney != nil {
		return m.commitJourney(ctx, j)
	}
	j.ID = uuid.New()
	m.journeys = append(m.journeys, j)
	return j, nil
}

func (m *mockSink) Rotate(session domain.Session) error {
	if m.rotate != nil {
		return m.rotate(session)
	}
	m.rotated = append(m.rotated, session)
	return nil
}

// compile-time check: mockSink must satisfy service.Sink.
var _ service.Sink = (*mockSink)(nil)

// ---- mock repos ------------------------------------------------------------

type mockEventRepo struct {
	append func(ctx context.Context, ev domain.RawEvent) error
}

func (m *mockEventRepo) Append(ctx context.Context, ev domain.RawEvent) error {
	return m.append(ctx, ev)
}

var _ repo.EventRepo = (*mockEventRepo)(nil)

type mockJourneyRepo struct {
	create func(ctx context.Context, j domain.CompletedJourney) (domain.CompletedJourney, error)
}

func (m *mockJourneyRepo) Create(ctx context.Context, j domain.CompletedJourney) (domain.CompletedJourney, error) {
	return m.create(ctx, j)
}

var _ repo.JourneyRepo = (*mockJourneyRepo)(nil)

type mockTextLog struct {
	append func(at time.Time, message string) error
	rotate func(session domain.Session) error
}

func (m *mockTextLog) Append(at time.Time, message string) error { return m.append(at, message) }
func (m *mockTextLog) Rotate(session domain.Session) error       { return m.rotate(session) }

var _ service.TextLog = (*mockTextLog)(nil)

// ---- clock -----------------------------------------------------------------

// fakeClock returns a fixed time that tests advance by hand.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
