package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/proofmarket/internal/model"
)

// registerProverRequest is the JSON body for POST /v1/provers. An empty
// proof_types list registers the prover for every proof type.
type registerProverRequest struct {
	PerformanceRating *uint64  `json:"performance_rating"`
	ProofTypes        []string `json:"proof_types"`
}

type updateReputationRequest struct {
	Reputation *uint64 `json:"reputation"`
}

// proverResponse renders a prover with its capability set spelled out.
type proverResponse struct {
	AccountID         model.AccountID   `json:"account_id"`
	Reputation        uint64            `json:"reputation"`
	PerformanceRating uint64            `json:"performance_rating"`
	ProofTypes        []model.ProofType `json:"proof_types"`
}

func newProverResponse(p *model.Prover) proverResponse {
	return proverResponse{
		AccountID:         p.AccountID,
		Reputation:        p.Reputation,
		PerformanceRating: p.PerformanceRating,
		ProofTypes:        p.Capabilities.ProofTypes(),
	}
}

func (s *Server) handleRegisterProver(w http.ResponseWriter, r *http.Request) {
	var req registerProverRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PerformanceRating == nil {
		s.writeError(w, http.StatusBadRequest, "performance_rating is required")
		return
	}

	types := make([]model.ProofType, 0, len(req.ProofTypes))
	for _, raw := range req.ProofTypes {
		pt, err := model.ParseProofType(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		types = append(types, pt)
	}

	if _, err := s.market.RegisterProver(r.Context(), *req.PerformanceRating, types...); err != nil {
		s.writeMarketError(w, "register prover", err)
		return
	}

	caller := model.AccountID(r.Header.Get(HeaderAccountID))
	p, err := s.market.Prover(r.Context(), caller)
	if err != nil {
		s.writeMarketError(w, "get registered prover", err)
		return
	}

	s.writeJSON(w, http.StatusCreated, newProverResponse(p))
}

func (s *Server) handleListProvers(w http.ResponseWriter, r *http.Request) {
	provers, err := s.market.Provers(r.Context())
	if err != nil {
		s.writeMarketError(w, "list provers", err)
		return
	}

	out := make([]proverResponse, len(provers))
	for i := range provers {
		out[i] = newProverResponse(&provers[i])
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetProver(w http.ResponseWriter, r *http.Request) {
	id := model.AccountID(chi.URLParam(r, "id"))

	p, err := s.market.Prover(r.Context(), id)
	if err != nil {
		s.writeMarketError(w, "get prover", err)
		return
	}

	s.writeJSON(w, http.StatusOK, newProverResponse(p))
}

func (s *Server) handleUpdateReputation(w http.ResponseWriter, r *http.Request) {
	id := model.AccountID(chi.URLParam(r, "id"))

	var req updateReputationRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Reputation == nil {
		s.writeError(w, http.StatusBadRequest, "reputation is required")
		return
	}

	if err := s.market.UpdateProverReputation(r.Context(), id, *req.Reputation); err != nil {
		s.writeMarketError(w, "update reputation", err)
		return
	}

	p, err := s.market.Prover(r.Context(), id)
	if err != nil {
		s.writeMarketError(w, "get prover", err)
		return
	}

	s.writeJSON(w, http.StatusOK, newProverResponse(p))
}
