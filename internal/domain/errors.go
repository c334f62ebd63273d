package domain

import "errors"

// ErrNotFound is returned by repo functions when the requested record does
// not exist in the database.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails validation before it reaches the
// engine (e.g. an empty message on the HTTP ingestion route).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrNoOpenJourney is returned when a badge is finalized while it has no
// journey in progress. It means the station state machine lost track of a
// badge and must never be swallowed.
var ErrNoOpenJourney = errors.New("no open journey for badge")

// ErrNonASCII is returned when a datagram payload contains bytes outside the
// 7-bit ASCII range and cannot be decoded as a message.
var ErrNonASCII = errors.New("payload is not ASCII")
