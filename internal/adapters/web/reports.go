package web

import (
	"net/http"
)

// classFeeReport handles GET /api/reports/classes.
func (h *Handler) classFeeReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.GetClassFeeReport(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

// studentFeeReport handles GET /api/reports/classes/{id}/students.
func (h *Handler) studentFeeReport(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	report, err := h.svc.GetStudentFeeReport(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

// billBundle handles GET /api/documents/bill/{invoiceID}.
func (h *Handler) billBundle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "invoiceID")
	if !ok {
		return
	}
	bundle, err := h.svc.GetBillBundle(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, bundle)
}

// receiptBundle handles GET /api/documents/receipt/{paymentID}.
func (h *Handler) receiptBundle(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "paymentID")
	if !ok {
		return
	}
	bundle, err := h.svc.GetReceiptBundle(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, bundle)
}

// marksheetBundle handles GET /api/documents/marksheet/{examID}/{studentID}.
func (h *Handler) marksheetBundle(w http.ResponseWriter, r *http.Request) {
	examID, ok := idParam(w, r, "examID")
	if !ok {
		return
	}
	studentID, ok := idParam(w, r, "studentID")
	if !ok {
		return
	}
	bundle, err := h.svc.GetMarksheetBundle(r.Context(), examID, studentID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, bundle)
}
