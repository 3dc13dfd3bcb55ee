package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"skillduel/internal/service"
)

// StatsHandler handles derived per-user duel stats
type StatsHandler struct {
	statsSvc *service.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsSvc *service.StatsService) *StatsHandler {
	return &StatsHandler{statsSvc: statsSvc}
}

// GetUserStats handles GET /v1/users/{id}/duel-stats
func (h *StatsHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	stats, err := h.statsSvc.GetUserDuelStats(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
