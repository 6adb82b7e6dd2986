package web

import (
	"net/http"

	"school-office/internal/app"
)

// listUsers handles GET /api/users.
func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, users)
}

// createUser handles POST /api/users.
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req app.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.svc.CreateUser(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, user)
}

// updateUserPassword handles PUT /api/users/{id}/password.
func (h *Handler) updateUserPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req app.PasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.UpdateUserPassword(r.Context(), id, req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getSettings handles GET /api/settings.
func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.GetSettings(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, settings)
}

// updateSettings handles PUT /api/settings.
func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req app.SettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.UpdateSettings(r.Context(), req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
