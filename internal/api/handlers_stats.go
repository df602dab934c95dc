package api

import (
	"encoding/json"
	"net/http"
)

// handleReviewStats reports rolling latency/failure aggregates for the
// external review calls.
func (s *Server) handleReviewStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.reviewer.Stats())
}
