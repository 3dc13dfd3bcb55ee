package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"skillduel/internal/model"
	"skillduel/internal/service"
	"skillduel/internal/transport/rest/middleware"
)

// AttemptHandler handles attempt submission
type AttemptHandler struct {
	attemptSvc *service.AttemptService
}

// NewAttemptHandler creates a new attempt handler
func NewAttemptHandler(attemptSvc *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptSvc: attemptSvc}
}

// Submit handles POST /v1/duels/{id}/attempts
func (h *AttemptHandler) Submit(w http.ResponseWriter, r *http.Request) {
	duelID := mux.Vars(r)["id"]
	userID := middleware.GetUserID(r.Context())

	var req model.SubmitAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.attemptSvc.Submit(r.Context(), userID, duelID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
