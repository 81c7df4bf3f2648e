package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/seantiz/proofmarket/internal/model"
)

// submitJobRequest is the JSON body for POST /v1/jobs.
type submitJobRequest struct {
	ProofType string  `json:"proof_type"`
	Price     *uint64 `json:"price"`
}

type submitJobResponse struct {
	JobID model.JobID `json:"job_id"`
}

// listJobsResponse wraps the paginated list response.
type listJobsResponse struct {
	Jobs   []*model.Job `json:"jobs"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type matchJobResponse struct {
	Matched bool            `json:"matched"`
	Prover  model.AccountID `json:"prover,omitempty"`
}

// completeJobRequest is the optional JSON body for POST /v1/jobs/{id}/complete.
// Proof is base64 encoded on the wire.
type completeJobRequest struct {
	Proof []byte `json:"proof"`
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
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

	id, err := s.market.SubmitJob(r.Context(), pt, *req.Price)
	if err != nil {
		s.writeMarketError(w, "submit job", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, submitJobResponse{JobID: id})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	jobs, total, err := s.market.Jobs(r.Context(), offset, limit)
	if err != nil {
		s.writeMarketError(w, "list jobs", err)
		return
	}

	if jobs == nil {
		jobs = []*model.Job{}
	}

	s.writeJSON(w, http.StatusOK, listJobsResponse{
		Jobs:   jobs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := s.market.Job(r.Context(), id)
	if err != nil {
		s.writeMarketError(w, "get job", err)
		return
	}

	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleMatchJob(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	prover, matched, err := s.market.MatchAndStartJob(r.Context(), id)
	if err != nil {
		s.writeMarketError(w, "match job", err)
		return
	}

	s.writeJSON(w, http.StatusOK, matchJobResponse{Matched: matched, Prover: prover})
}

func (s *Server) handleCompleteJob(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	var req completeJobRequest
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	settlement, err := s.market.CompleteJob(r.Context(), id, req.Proof)
	if err != nil {
		s.writeMarketError(w, "complete job", err)
		return
	}

	s.writeJSON(w, http.StatusOK, settlement)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	if err := s.market.CancelJob(r.Context(), id); err != nil {
		s.writeMarketError(w, "cancel job", err)
		return
	}

	job, err := s.market.Job(r.Context(), id)
	if err != nil {
		s.writeMarketError(w, "get cancelled job", err)
		return
	}

	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleGetSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	settlement, err := s.market.Settlement(r.Context(), id)
	if err != nil {
		s.writeMarketError(w, "get settlement", err)
		return
	}

	s.writeJSON(w, http.StatusOK, settlement)
}
