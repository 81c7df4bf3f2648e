package api

import "net/http"

type strategiesResponse struct {
	Active    string   `json:"active"`
	Available []string `json:"available"`
}

func (s *Server) handleListStrategies(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, strategiesResponse{
		Active:    s.market.Strategy().Name(),
		Available: s.strategies.Names(),
	})
}
