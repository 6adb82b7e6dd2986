package web

import (
	"net/http"
	"strconv"

	"school-office/internal/app"
)

// generateInvoice handles POST /api/invoices.
func (h *Handler) generateInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.GenerateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	invoice, err := h.svc.GenerateInvoice(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, invoice)
}

// bulkGenerate handles POST /api/invoices/bulk. It returns 200 even when
// some students failed; the per-student failures are in the body.
func (h *Handler) bulkGenerate(w http.ResponseWriter, r *http.Request) {
	var req app.BulkGenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.BulkGenerateInvoices(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getInvoice handles GET /api/invoices/{id}.
func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	invoice, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, invoice)
}

// invoicesExist handles GET /api/classes/{id}/invoices/exists?month=&year=.
func (h *Handler) invoicesExist(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	month := r.URL.Query().Get("month")
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if month == "" || err != nil {
		writeError(w, r, "month and year query parameters are required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	exists, err := h.svc.InvoicesExistForMonth(r.Context(), id, month, year)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	type response struct {
		Exists bool `json:"exists"`
	}
	writeJSON(w, response{Exists: exists})
}

// recordPayment handles POST /api/payments.
func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req app.RecordPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	payment, err := h.svc.RecordPayment(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, payment)
}

// listStudentPayments handles GET /api/students/{id}/payments.
func (h *Handler) listStudentPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	payments, err := h.svc.ListStudentPayments(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, payments)
}

// studentLedger handles GET /api/students/{id}/ledger.
func (h *Handler) studentLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	ledger, err := h.svc.GetStudentLedger(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, ledger)
}
