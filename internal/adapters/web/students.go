package web

import (
	"net/http"
	"strconv"

	"school-office/internal/app"
)

// listStudents handles GET /api/students?class_id=&name=.
func (h *Handler) listStudents(w http.ResponseWriter, r *http.Request) {
	classID := 0
	if raw := r.URL.Query().Get("class_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, "invalid class_id parameter", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		classID = id
	}

	students, err := h.svc.ListStudents(r.Context(), classID, r.URL.Query().Get("name"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, students)
}

// getStudent handles GET /api/students/{id}.
func (h *Handler) getStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	student, err := h.svc.GetStudent(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, student)
}

// createStudent handles POST /api/students.
func (h *Handler) createStudent(w http.ResponseWriter, r *http.Request) {
	var req app.StudentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	student, err := h.svc.CreateStudent(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, student)
}

// updateStudent handles PUT /api/students/{id}.
func (h *Handler) updateStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req app.StudentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	student, err := h.svc.UpdateStudent(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, student)
}
