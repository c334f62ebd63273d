package handler

import (
	"net/http"

	"github.com/jbelval/wait-time-logger/internal/ingest"
	"github.com/jbelval/wait-time-logger/internal/service"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Listener     string        `json:"listener"`
	Addr         string        `json:"addr,omitempty"`
	Session      string        `json:"session"`
	OpenJourneys int           `json:"open_journeys"`
	Stats        service.Stats `json:"stats"`
}

// GetStatus handles GET /status.
func (s *Server) GetStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Listener:     ingest.StateIdle.String(),
		Session:      s.engine.Session().String(),
		OpenJourneys: s.engine.OpenJourneys(),
		Stats:        s.engine.Stats(),
	}
	if s.listener != nil {
		resp.Listener = s.listener.State().String()
		resp.Addr = s.listener.Addr()
	}
	writeJSON(w, http.StatusOK, resp)
}
