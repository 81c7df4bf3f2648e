package api

import (
	"net/http"

	"github.com/seantiz/proofmarket/internal/model"
)

// handleAsyncSubmitJob records a job and matches it in the background.
func (s *Server) handleAsyncSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Price == nil {
		s.writeError(w, http.StatusBadRequest, "price is required")
		return
	}
	pt, err := model.ParseProofType(req.ProofType)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.engine.Submit(r.Context(), pt, *req.Price)
	if err != nil {
		s.writeMarketError(w, "submit async job", err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, submitJobResponse{JobID: id})
}

// handleSweepJobs retries matching for every open job in the background.
func (s *Server) handleSweepJobs(w http.ResponseWriter, _ *http.Request) {
	s.engine.Sweep()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "sweeping"})
}
