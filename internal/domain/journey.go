// Package domain contains the core data types for the checkpoint logger.
// This package has no external dependencies beyond uuid and is imported by
// every other internal package (repo, service, ingest, handler).
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NoteSeparator joins the notes of a journey when it is completed.
const NoteSeparator = ", "

// Journey is the in-progress record of one badge moving through the course.
// It is created on the first station sighting of a badge and lives until the
// badge reaches the exit station or is finalized by a drain.
type Journey struct {
	BadgeID string
	Session Session
	// Times holds the last sighting per station. Missing keys are unset slots.
	Times map[Station]time.Time
	// Notes are free-text messages received while this journey was open.
	Notes []string
}

// NewJourney returns a blank journey: no station slots set, no notes.
func NewJourney(badgeID string, session Session) *Journey {
	return &Journey{
		BadgeID: badgeID,
		Session: session,
		Times:   make(map[Station]time.Time, len(Stations)),
	}
}

// Mark records a sighting at station st, overwriting any earlier one.
func (j *Journey) Mark(st Station, at time.Time) {
	j.Times[st] = at
}

// AddNote appends text with surrounding whitespace trimmed. A blank message
// still counts as a note and shows up as an empty entry once joined.
func (j *Journey) AddNote(text string) {
	j.Notes = append(j.Notes, strings.TrimSpace(text))
}

// Complete freezes the journey into the shape written to durable storage.
// The returned value shares nothing with j.
func (j *Journey) Complete() CompletedJourney {
	times := make(map[Station]time.Time, len(j.Times))
	for st, at := range j.Times {
		times[st] = at
	}
	// Joining rather than appending a separator per note leaves nothing to trim.
	return CompletedJourney{
		BadgeID: j.BadgeID,
		Session: j.Session,
		Times:   times,
		Notes:   strings.Join(j.Notes, NoteSeparator),
	}
}

// CompletedJourney is a finalized journey. Once written it is never modified.
// Partially filled journeys forced to completion keep only the slots they had.
type CompletedJourney struct {
	ID         uuid.UUID // assigned by the store
	BadgeID    string
	Session    Session
	Times      map[Station]time.Time
	Notes      string
	RecordedAt time.Time // assigned by the store
}

// At returns the sighting time for st, or nil when the slot is unset.
func (c CompletedJourney) At(st Station) *time.Time {
	at, ok := c.Times[st]
	if !ok {
		return nil
	}
	return &at
}
