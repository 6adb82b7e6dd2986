package web

import (
	"net/http"

	"school-office/internal/app"
)

// listClasses handles GET /api/classes.
func (h *Handler) listClasses(w http.ResponseWriter, r *http.Request) {
	classes, err := h.svc.ListClasses(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, classes)
}

// getClass handles GET /api/classes/{id}.
func (h *Handler) getClass(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	class, err := h.svc.GetClass(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, class)
}

// createClass handles POST /api/classes.
func (h *Handler) createClass(w http.ResponseWriter, r *http.Request) {
	var req app.ClassRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	class, err := h.svc.CreateClass(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, class)
}

// updateClass handles PUT /api/classes/{id}.
func (h *Handler) updateClass(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req app.ClassRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	class, err := h.svc.UpdateClass(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, class)
}

// updateClassFees handles PUT /api/classes/{id}/fees.
func (h *Handler) updateClassFees(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req app.UpdateFeesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	class, err := h.svc.UpdateClassFees(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, class)
}
