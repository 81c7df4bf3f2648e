package api

import (
	"context"
	"net/http"
	"time"
)

// healthTimeout bounds the store read done by /healthz.
const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status   string `json:"status"`
	Strategy string `json:"strategy,omitempty"`
	Error    string `json:"error,omitempty"`
}

// handleHealthz reports healthy only when the marketplace store can serve a
// read unit.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.market.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Strategy: s.market.Strategy().Name()})
}
