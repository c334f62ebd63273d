package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jbelval/wait-time-logger/internal/domain"
	"github.com/jbelval/wait-time-logger/internal/ingest"
)

// MessageRequest is the body of POST /messages.
// Message is a pointer so an absent field can be told apart from "".
type MessageRequest struct {
	Message *string    `json:"message"`
	Time    *time.Time `json:"time,omitempty"`
}

// MessageResponse is the body of a successful POST /messages.
type MessageResponse struct {
	Session      string `json:"session"`
	OpenJourneys int    `json:"open_journeys"`
}

// PostMessage handles POST /messages. The message goes through the same
// pipeline as a UDP datagram, stamped with Time or the current time.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "request body must be a JSON object")
		return
	}
	if err := validateMessage(req); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
		return
	}

	at := s.now()
	if req.Time != nil {
		at = *req.Time
	}

	// A message that reached the engine is processed even if the client goes away.
	if err := s.engine.IngestAt(context.WithoutCancel(r.Context()), at, *req.Message); err != nil {
		s.log.ErrorContext(r.Context(), "ingest failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "message could not be processed")
		return
	}

	writeJSON(w, http.StatusAccepted, MessageResponse{
		Session:      s.engine.Session().String(),
		OpenJourneys: s.engine.OpenJourneys(),
	})
}

// validateMessage holds HTTP messages to the same rules as datagrams.
func validateMessage(req MessageRequest) error {
	if req.Message == nil {
		return fmt.Errorf("%w: message is required", domain.ErrValidation)
	}
	if _, err := ingest.DecodeASCII([]byte(*req.Message)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return nil
}
