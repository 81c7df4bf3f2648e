package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/proofmarket/internal/model"
	"github.com/seantiz/proofmarket/internal/verifier"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodySize      = 1 << 20 // 1 MB
)

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeMarketError maps a marketplace error onto an HTTP status and counts it
// by kind. Unclassified errors are logged and reported as 500 without leaking
// details.
func (s *Server) writeMarketError(w http.ResponseWriter, op string, err error) {
	status, kind := classify(err)
	marketErrors.WithLabelValues(op, kind).Inc()
	if status == http.StatusInternalServerError {
		s.logger.Error(op, "error", err)
		s.writeError(w, status, op+" failed")
		return
	}
	s.writeError(w, status, err.Error())
}

// classify returns the HTTP status and metric label for a marketplace error.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, model.ErrTransferFailed):
		return http.StatusPaymentRequired, "transfer_failed"
	case errors.Is(err, model.ErrNoCaller):
		return http.StatusUnauthorized, "no_caller"
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, model.ErrProofRejected), errors.Is(err, verifier.ErrNoVerifier):
		return http.StatusUnprocessableEntity, "proof_rejected"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// decodeBody decodes a size-limited JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}

// jobIDParam parses the {id} URL parameter as a job id.
func jobIDParam(r *http.Request) (model.JobID, error) {
	return model.ParseJobID(chi.URLParam(r, "id"))
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
