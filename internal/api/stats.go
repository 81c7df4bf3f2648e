package api

import (
	"net/http"

	"github.com/seantiz/proofmarket/internal/model"
)

// escrowResponse reports the escrow balance as a decimal string since it may
// exceed 64 bits.
type escrowResponse struct {
	Account model.AccountID `json:"account"`
	Balance string          `json:"balance"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.market.Stats(r.Context())
	if err != nil {
		s.writeMarketError(w, "get stats", err)
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetEscrow(w http.ResponseWriter, r *http.Request) {
	account, balance, err := s.market.EscrowBalance(r.Context())
	if err != nil {
		s.writeMarketError(w, "get escrow", err)
		return
	}

	s.writeJSON(w, http.StatusOK, escrowResponse{
		Account: account,
		Balance: balance.Dec(),
	})
}
