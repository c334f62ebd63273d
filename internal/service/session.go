package service

import (
	"time"

	"github.com/jbelval/wait-time-logger/internal/domain"
)

// DefaultRolloverGuard is how long the tracker must have gone without an
// update before a message dated on a new day may advance the session.
// It debounces late or clock-skewed messages; it is not needed for correctness.
const DefaultRolloverGuard = time.Hour

// SessionTracker owns the current session and decides when it rolls over.
// It is not safe for concurrent use; Engine serialises access to it.
type SessionTracker struct {
	guard      time.Duration
	current    domain.Session
	lastUpdate time.Time
}

// NewSessionTracker starts a tracker on start's session, with start counted
// as the most recent update.
func NewSessionTracker(start time.Time, guard time.Duration) *SessionTracker {
	return &SessionTracker{
		guard:      guard,
		current:    domain.SessionOf(start),
		lastUpdate: start,
	}
}

// Current returns the session records are currently labelled with.
func (t *SessionTracker) Current() domain.Session {
	return t.current
}

// Next reports the session an observation at time at belongs to and whether
// it starts a new one. The session advances to at's date only when that date
// differs from the current session and at least the guard interval has
// passed since the previous observation. Next changes nothing; Commit does.
func (t *SessionTracker) Next(at time.Time) (domain.Session, bool) {
	if s := domain.SessionOf(at); s != t.current && at.Sub(t.lastUpdate) >= t.guard {
		return s, true
	}
	return t.current, false
}

// Commit records an observation at time at labelled with session. The
// previous-observation timestamp moves on every commit, so the guard window
// is measured from the latest observation, not the latest rollover.
func (t *SessionTracker) Commit(at time.Time, session domain.Session) {
	t.current = session
	t.lastUpdate = at
}

// Update is Next followed by Commit. It reports whether the session advanced.
func (t *SessionTracker) Update(at time.Time) bool {
	session, rotated := t.Next(at)
	t.Commit(at, session)
	return rotated
}
