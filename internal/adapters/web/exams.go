package web

import (
	"net/http"

	"school-office/internal/app"
)

// listExams handles GET /api/exams.
func (h *Handler) listExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.svc.ListExams(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, exams)
}

// createExam handles POST /api/exams.
func (h *Handler) createExam(w http.ResponseWriter, r *http.Request) {
	var req app.ExamRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	exam, err := h.svc.CreateExam(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, exam)
}

// examResults handles GET /api/exams/{id}/results.
func (h *Handler) examResults(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	results, err := h.svc.GetExamResults(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, results)
}

// saveResult handles POST /api/results.
func (h *Handler) saveResult(w http.ResponseWriter, r *http.Request) {
	var req app.ResultRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.SaveResult(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// listSubjects handles GET /api/classes/{id}/subjects.
func (h *Handler) listSubjects(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	subjects, err := h.svc.ListSubjects(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, subjects)
}

// createSubject handles POST /api/classes/{id}/subjects.
func (h *Handler) createSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req app.SubjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	subject, err := h.svc.CreateSubject(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, subject)
}

// updateSubject handles PUT /api/subjects/{id}.
func (h *Handler) updateSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req app.SubjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.UpdateSubject(r.Context(), id, req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// deleteSubject handles DELETE /api/subjects/{id}.
func (h *Handler) deleteSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteSubject(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
