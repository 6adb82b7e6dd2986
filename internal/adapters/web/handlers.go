package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"school-office/internal/app"
	"school-office/internal/core"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string) http.Handler {
	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Auth (public) ─────────────────────────────────────────────────────────
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// Read surface shared by all staff roles.
		r.Get("/api/classes", h.listClasses)
		r.Get("/api/classes/{id}", h.getClass)
		r.Get("/api/classes/{id}/subjects", h.listSubjects)
		r.Get("/api/students", h.listStudents)
		r.Get("/api/students/{id}", h.getStudent)
		r.Get("/api/settings", h.getSettings)

		// ── Billing (accountant) ──────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(core.RoleAccountant))

			r.Post("/api/students", h.createStudent)
			r.Put("/api/students/{id}", h.updateStudent)
			r.Get("/api/students/{id}/ledger", h.studentLedger)
			r.Get("/api/students/{id}/payments", h.listStudentPayments)

			r.Post("/api/invoices", h.generateInvoice)
			r.Post("/api/invoices/bulk", h.bulkGenerate)
			r.Get("/api/invoices/{id}", h.getInvoice)
			r.Get("/api/classes/{id}/invoices/exists", h.invoicesExist)
			r.Post("/api/payments", h.recordPayment)

			r.Get("/api/reports/classes", h.classFeeReport)
			r.Get("/api/reports/classes/{id}/students", h.studentFeeReport)

			r.Get("/api/documents/bill/{invoiceID}", h.billBundle)
			r.Get("/api/documents/receipt/{paymentID}", h.receiptBundle)

			r.Post("/api/assistant/interpret", h.assistantInterpret)
			r.Post("/api/assistant/confirm", h.assistantConfirm)
		})

		// ── Exams (exam section) ──────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(core.RoleExam))

			r.Get("/api/exams", h.listExams)
			r.Post("/api/exams", h.createExam)
			r.Get("/api/exams/{id}/results", h.examResults)
			r.Post("/api/results", h.saveResult)
			r.Post("/api/classes/{id}/subjects", h.createSubject)
			r.Put("/api/subjects/{id}", h.updateSubject)
			r.Delete("/api/subjects/{id}", h.deleteSubject)
			r.Get("/api/documents/marksheet/{examID}/{studentID}", h.marksheetBundle)
		})

		// ── Administration (admin only) ───────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(RequireRole())

			r.Post("/api/classes", h.createClass)
			r.Put("/api/classes/{id}", h.updateClass)
			r.Put("/api/classes/{id}/fees", h.updateClassFees)

			r.Get("/api/users", h.listUsers)
			r.Post("/api/users", h.createUser)
			r.Put("/api/users/{id}/password", h.updateUserPassword)
			r.Put("/api/settings", h.updateSettings)
		})
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// idParam extracts a named integer URL parameter; it writes a 400 response
// and returns false when the parameter is not a number.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeError(w, r, "invalid "+name+" parameter", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
