package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jbelval/wait-time-logger/internal/domain"
	"github.com/jbelval/wait-time-logger/internal/repo"
)

// Sink is where the engine writes everything durable.
// The engine depends on this interface so the state machine can be tested
// without files or a database.
type Sink interface {
	// AppendRawEvent writes one received message to the audit trail.
	AppendRawEvent(ctx context.Context, ev domain.RawEvent) error

	// CommitJourney writes a completed journey and returns it with the
	// store-assigned fields populated.
	CommitJourney(ctx context.Context, j domain.CompletedJourney) (domain.CompletedJourney, error)

	// Rotate switches session-dependent outputs (text log names) to session.
	Rotate(session domain.Session) error
}

// TextLog is an append-only set of text log files.
type TextLog interface {
	Append(at time.Time, message string) error
	Rotate(session domain.Session) error
}

// RecordSink is the production Sink. Raw events go to the text logs and the
// raw_events table; completed journeys go to the badge_scans table.
// Nothing is ever updated or deleted.
type RecordSink struct {
	logs     TextLog
	events   repo.EventRepo
	journeys repo.JourneyRepo
}

// NewRecordSink constructs a RecordSink. logs may be nil to skip text logging.
func NewRecordSink(logs TextLog, events repo.EventRepo, journeys repo.JourneyRepo) *RecordSink {
	return &RecordSink{logs: logs, events: events, journeys: journeys}
}

// AppendRawEvent writes ev to every raw target. A failure on one target does
// not stop the write to the other; all failures are returned together.
func (s *RecordSink) AppendRawEvent(ctx context.Context, ev domain.RawEvent) error {
	var errs []error
	if s.logs != nil {
		if err := s.logs.Append(ev.Time, ev.Message); err != nil {
			errs = append(errs, fmt.Errorf("text log: %w", err))
		}
	}
	if err := s.events.Append(ctx, ev); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("service.RecordSink.AppendRawEvent: %w", err)
	}
	return nil
}

// CommitJourney inserts j into the completed-journey table.
func (s *RecordSink) CommitJourney(ctx context.Context, j domain.CompletedJourney) (domain.CompletedJourney, error) {
	result, err := s.journeys.Create(ctx, j)
	if err != nil {
		return domain.CompletedJourney{}, fmt.Errorf("service.RecordSink.CommitJourney: %w", err)
	}
	return result, nil
}

// Rotate points the text logs at session.
func (s *RecordSink) Rotate(session domain.Session) error {
	if s.logs == nil {
		return nil
	}
	if err := s.logs.Rotate(session); err != nil {
		return fmt.Errorf("service.RecordSink.Rotate: %w", err)
	}
	return nil
}
