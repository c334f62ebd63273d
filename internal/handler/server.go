// Package handler implements the HTTP surface of the checkpoint logger:
// health, status, programmatic message ingestion and the API description.
// Methods are split into files by route but share the Server struct.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jbelval/wait-time-logger/internal/domain"
	"github.com/jbelval/wait-time-logger/internal/ingest"
	"github.com/jbelval/wait-time-logger/internal/middleware"
	"github.com/jbelval/wait-time-logger/internal/service"
)

// Ingester is the part of the engine the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without a sink or a database.
type Ingester interface {
	IngestAt(ctx context.Context, at time.Time, message string) error
	Session() domain.Session
	OpenJourneys() int
	Stats() service.Stats
}

// ListenerStatus reports on the UDP listener. *ingest.Listener satisfies it.
type ListenerStatus interface {
	State() ingest.State
	Addr() string
}

// Server holds the dependencies shared by all handlers.
type Server struct {
	engine   Ingester
	listener ListenerStatus
	maxBody  int64
	log      *slog.Logger
	now      func() time.Time
}

// NewServer constructs the Server. listener may be nil when no UDP listener
// runs in this process (e.g. during replay). maxBody limits POST bodies.
func NewServer(engine Ingester, listener ListenerStatus, maxBody int64, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, listener: listener, maxBody: maxBody, log: log, now: time.Now}
}

// Routes returns the router for every endpoint. Cross-cutting middleware
// (request id, logging, CORS, recovery) is applied by the caller.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/status", s.GetStatus)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.With(middleware.NewMaxBodySizeHandler(s.maxBody)).Post("/messages", s.PostMessage)
	return r
}
