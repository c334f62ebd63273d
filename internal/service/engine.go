// Package service contains the journey-reconstruction logic of the
// checkpoint logger: the session tracker, the in-progress journey store, the
// station state machine and the sink it persists through.
// No sockets live here; the ingest package drives Engine from the network.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jbelval/wait-time-logger/internal/domain"
)

// Stats counts the messages an Engine has handled since it was created.
type Stats struct {
	Received  int64 `json:"received"`
	Matched   int64 `json:"matched"`
	Unmatched int64 `json:"unmatched"`
	Finalized int64 `json:"finalized"`
}

// Engine applies received messages to the journey store and persists the
// results. All exported methods are safe for concurrent use: one mutex
// covers the store, the session tracker and the sink, so the UDP loop and
// the HTTP ingestion route can feed the same engine.
type Engine struct {
	mu      sync.Mutex
	sink    Sink
	tracker *SessionTracker
	store   *JourneyStore
	stats   Stats

	log   *slog.Logger
	now   func() time.Time
	guard time.Duration
}

// EngineOption customises an Engine at construction.
type EngineOption func(*Engine)

// WithLogger sets the logger used for engine diagnostics.
func WithLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// WithClock replaces time.Now, both for the starting session and for Ingest.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithRolloverGuard overrides DefaultRolloverGuard.
func WithRolloverGuard(d time.Duration) EngineOption {
	return func(e *Engine) { e.guard = d }
}

// NewEngine constructs an Engine writing to sink. The first session is the
// date of the engine clock at construction.
func NewEngine(sink Sink, opts ...EngineOption) *Engine {
	e := &Engine{
		sink:  sink,
		store: NewJourneyStore(),
		log:   slog.Default(),
		now:   time.Now,
		guard: DefaultRolloverGuard,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.tracker = NewSessionTracker(e.now(), e.guard)
	return e
}

// Ingest routes one decoded message through the pipeline, stamped with the
// current time.
func (e *Engine) Ingest(ctx context.Context, message string) error {
	return e.IngestAt(ctx, e.now(), message)
}

// IngestAt routes one decoded message received at time at through the
// pipeline: session update, raw event append, parse, state machine.
// A processing step always runs to completion once started.
func (e *Engine) IngestAt(ctx context.Context, at time.Time, message string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.Received++

	// The tracker only moves once the sink has switched, so a failed
	// rotation is retried on the next message.
	session, rotated := e.tracker.Next(at)
	if rotated {
		if err := e.sink.Rotate(session); err != nil {
			return fmt.Errorf("service.Engine.IngestAt: rotate to %s: %w", session, err)
		}
		e.log.Info("session rolled over", "session", session.String())
	}
	e.tracker.Commit(at, session)

	ev := domain.RawEvent{Time: at, Session: session, Message: message}
	if err := e.sink.AppendRawEvent(ctx, ev); err != nil {
		return fmt.Errorf("service.Engine.IngestAt: %w", err)
	}

	if err := e.apply(ctx, at, domain.ParseMessage(message)); err != nil {
		return fmt.Errorf("service.Engine.IngestAt: %w", err)
	}
	return nil
}

// apply runs the station state machine for one classified message.
func (e *Engine) apply(ctx context.Context, at time.Time, m domain.Message) error {
	if !m.Matched {
		e.stats.Unmatched++
		// The note cannot be attributed to one badge, so every open
		// journey gets it.
		for _, id := range e.store.IDs() {
			j, _ := e.store.Get(id)
			j.AddNote(m.Text)
		}
		return nil
	}

	e.stats.Matched++

	if m.Station.IsEntry() {
		if _, open := e.store.Get(m.BadgeID); open {
			if err := e.finalize(ctx, m.BadgeID); err != nil {
				return err
			}
		}
	}

	j, created := e.store.GetOrCreate(m.BadgeID, e.tracker.Current())
	if created {
		e.log.Debug("journey opened", "badge_id", m.BadgeID, "station", string(m.Station))
	}
	j.Mark(m.Station, at)

	if m.Station.IsExit() {
		return e.finalize(ctx, m.BadgeID)
	}
	return nil
}

// Finalize commits the open journey for badgeID and removes it from the store.
// Returns domain.ErrNoOpenJourney if the badge has no open journey.
func (e *Engine) Finalize(ctx context.Context, badgeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finalize(ctx, badgeID)
}

// finalize is Finalize without locking. On a commit failure the journey stays
// open so a later drain can retry it.
func (e *Engine) finalize(ctx context.Context, badgeID string) error {
	j, ok := e.store.Get(badgeID)
	if !ok {
		return fmt.Errorf("service.Engine.finalize: %w: %q", domain.ErrNoOpenJourney, badgeID)
	}

	done, err := e.sink.CommitJourney(ctx, j.Complete())
	if err != nil {
		return fmt.Errorf("service.Engine.finalize: badge %q: %w", badgeID, err)
	}
	e.store.Remove(badgeID)
	e.stats.Finalized++

	e.log.Info("journey finalized",
		"badge_id", badgeID,
		"session", done.Session.String(),
		"stations", len(done.Times),
		"id", done.ID.String(),
	)
	return nil
}

// Drain finalizes every open journey in the order they were opened.
// A failure on one badge does not stop the others; all failures are returned.
func (e *Engine) Drain(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, id := range e.store.IDs() {
		if err := e.finalize(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Session returns the current session.
func (e *Engine) Session() domain.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Current()
}

// OpenJourneys returns the number of journeys in progress.
func (e *Engine) OpenJourneys() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Len()
}

// Stats returns a copy of the message counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
