package web

import (
	"net/http"

	"school-office/internal/app"
)

// assistantInterpret handles POST /api/assistant/interpret. It never
// writes anything: the response is either a proposal for the user to
// confirm or a clarification question.
func (h *Handler) assistantInterpret(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.InterpretRequest(r.Context(), req.Text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// assistantConfirm handles POST /api/assistant/confirm. The client echoes
// back the proposal from assistantInterpret after the user approved it.
func (h *Handler) assistantConfirm(w http.ResponseWriter, r *http.Request) {
	var req app.ExecuteProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.ExecuteProposal(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}
