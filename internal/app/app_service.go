package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"school-office/internal/ai"
	"school-office/internal/core"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type appService struct {
	pool      *pgxpool.Pool
	validate  *validator.Validate
	catalog   *core.CatalogService
	students  *core.StudentService
	invoices  *core.InvoiceService
	payments  *core.PaymentService
	exams     *core.ExamService
	users     *core.UserService
	settings  *core.SettingsService
	reporting *core.ReportingService
	documents *core.DocumentService
	agent     ai.AgentService
}

// NewAppService constructs an appService that satisfies ApplicationService.
// agent may be nil when no API key is configured; assistant calls then fail
// with a validation error instead of a nil dereference.
func NewAppService(
	pool *pgxpool.Pool,
	catalog *core.CatalogService,
	students *core.StudentService,
	invoices *core.InvoiceService,
	payments *core.PaymentService,
	exams *core.ExamService,
	users *core.UserService,
	settings *core.SettingsService,
	reporting *core.ReportingService,
	documents *core.DocumentService,
	agent ai.AgentService,
) ApplicationService {
	return &appService{
		pool:      pool,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		catalog:   catalog,
		students:  students,
		invoices:  invoices,
		payments:  payments,
		exams:     exams,
		users:     users,
		settings:  settings,
		reporting: reporting,
		documents: documents,
		agent:     agent,
	}
}

func (s *appService) check(req any) error {
	if err := s.validate.Struct(req); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			f := errs[0]
			return &core.ValidationError{Field: strings.ToLower(f.Field()), Reason: "failed " + f.Tag() + " check"}
		}
		return err
	}
	return nil
}

// ── Classes ───────────────────────────────────────────────────────────────────

func (s *appService) ListClasses(ctx context.Context) ([]core.Class, error) {
	return s.catalog.GetClasses(ctx)
}

func (s *appService) GetClass(ctx context.Context, classID int) (*core.Class, error) {
	return s.catalog.GetClass(ctx, classID)
}

func (s *appService) CreateClass(ctx context.Context, req ClassRequest) (*core.Class, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	return s.catalog.CreateClass(ctx, req.Name, req.Section)
}

func (s *appService) UpdateClass(ctx context.Context, classID int, req ClassRequest) (*core.Class, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	return s.catalog.UpdateClass(ctx, classID, req.Name, req.Section)
}

func (s *appService) UpdateClassFees(ctx context.Context, classID int, req UpdateFeesRequest) (*core.Class, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	changes := make(map[core.FeeKind]decimal.Decimal, len(req.Fees))
	for kind, amount := range req.Fees {
		changes[core.FeeKind(kind)] = amount
	}
	return s.catalog.UpdateClassFees(ctx, classID, changes)
}

// ── Students ──────────────────────────────────────────────────────────────────

func (s *appService) ListStudents(ctx context.Context, classID int, name string) ([]core.Student, error) {
	return s.students.GetStudents(ctx, core.StudentFilters{ClassID: classID, Name: name})
}

func (s *appService) GetStudent(ctx context.Context, studentID int) (*core.Student, error) {
	return s.students.GetStudent(ctx, studentID)
}

func (s *appService) CreateStudent(ctx context.Context, req StudentRequest) (*core.Student, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	return s.students.CreateStudent(ctx, studentInput(req))
}

func (s *appService) UpdateStudent(ctx context.Context, studentID int, req StudentRequest) (*core.Student, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	return s.students.UpdateStudent(ctx, studentID, studentInput(req))
}

func studentInput(req StudentRequest) core.StudentInput {
	return core.StudentInput{
		Name:           req.Name,
		RollNumber:     req.RollNumber,
		ClassID:        req.ClassID,
		Address:        req.Address,
		OpeningBalance: req.OpeningBalance,
		InTuition:      req.InTuition,
	}
}

func (s *appService) GetStudentLedger(ctx context.Context, studentID int) (*StudentLedgerResult, error) {
	student, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	class, err := s.catalog.GetClass(ctx, student.ClassID)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoices.GetInvoicesForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.GetPaymentsForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return &StudentLedgerResult{
		Student:  *student,
		Class:    class,
		Invoices: invoices,
		Payments: payments,
	}, nil
}

// ── Billing ───────────────────────────────────────────────────────────────────

func (s *appService) GenerateInvoice(ctx context.Context, req GenerateInvoiceRequest) (*core.Invoice, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	student, err := s.students.GetStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	return s.invoices.GenerateOrUpdateInvoice(ctx, core.GenerateInput{
		StudentID:    req.StudentID,
		ClassID:      student.ClassID,
		Month:        req.Month,
		Year:         req.Year,
		SelectedFees: feeKinds(req.Fees),
		ExtraLabel:   req.ExtraLabel,
		ExtraAmount:  req.ExtraAmount,
	})
}

func (s *appService) BulkGenerateInvoices(ctx context.Context, req BulkGenerateRequest) (*core.BulkResult, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	return s.invoices.BulkGenerate(ctx, req.ClassID, req.Month, req.Year, feeKinds(req.Fees))
}

func (s *appService) GetInvoice(ctx context.Context, invoiceID int) (*core.Invoice, error) {
	return s.invoices.GetInvoice(ctx, invoiceID)
}

func (s *appService) InvoicesExistForMonth(ctx context.Context, classID int, month string, year int) (bool, error) {
	return s.invoices.InvoicesExistForMonth(ctx, classID, month, year)
}

func feeKinds(fees []string) []core.FeeKind {
	kinds := make([]core.FeeKind, len(fees))
	for i, f := range fees {
		kinds[i] = core.FeeKind(f)
	}
	return kinds
}

func (s *appService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*core.Payment, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	return s.payments.AddPayment(ctx, req.StudentID, req.InvoiceID, req.Amount)
}

func (s *appService) ListStudentPayments(ctx context.Context, studentID int) ([]core.Payment, error) {
	return s.payments.GetPaymentsForStudent(ctx, studentID)
}

// ── Reports and documents ─────────────────────────────────────────────────────

func (s *appService) GetClassFeeReport(ctx context.Context) ([]core.ClassFeeSummary, error) {
	return s.reporting.GetClassFeeSummaries(ctx)
}

func (s *appService) GetStudentFeeReport(ctx context.Context, classID int) ([]core.StudentFeeSummary, error) {
	return s.reporting.GetStudentFeeSummaries(ctx, classID)
}

func (s *appService) GetBillBundle(ctx context.Context, invoiceID int) (*core.BillBundle, error) {
	return s.documents.GetBillBundle(ctx, invoiceID)
}

func (s *appService) GetReceiptBundle(ctx context.Context, paymentID int) (*core.ReceiptBundle, error) {
	return s.documents.GetReceiptBundle(ctx, paymentID)
}

func (s *appService) GetMarksheetBundle(ctx context.Context, examID, studentID int) (*core.MarksheetBundle, error) {
	return s.documents.GetMarksheetBundle(ctx, examID, studentID)
}

// ── Exams ─────────────────────────────────────────────────────────────────────

func (s *appService) ListExams(ctx context.Context) ([]core.Exam, error) {
	return s.exams.GetExams(ctx)
}

func (s *appService) CreateExam(ctx context.Context, req ExamRequest) (*core.Exam, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, &core.ValidationError{Field: "date", Reason: "want YYYY-MM-DD"}
	}
	return s.exams.CreateExam(ctx, req.Name, date)
}

func (s *appService) ListSubjects(ctx context.Context, classID int) ([]core.Subject, error) {
	return s.exams.GetSubjects(ctx, classID)
}

func (s *appService) CreateSubject(ctx context.Context, classID int, req SubjectRequest) (*core.Subject, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	return s.exams.CreateSubject(ctx, classID, subjectInput(req))
}

func (s *appService) UpdateSubject(ctx context.Context, subjectID int, req SubjectRequest) error {
	if err := s.check(req); err != nil {
		return err
	}
	return s.exams.UpdateSubject(ctx, subjectID, subjectInput(req))
}

func subjectInput(req SubjectRequest) core.SubjectInput {
	return core.SubjectInput{
		Name:               req.Name,
		Code:               req.Code,
		FullMarksTheory:    req.FullMarksTheory,
		FullMarksPractical: req.FullMarksPractical,
		IsExtra:            req.IsExtra,
	}
}

func (s *appService) DeleteSubject(ctx context.Context, subjectID int) error {
	return s.exams.DeleteSubject(ctx, subjectID)
}

func (s *appService) SaveResult(ctx context.Context, req ResultRequest) (*core.Result, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	return s.exams.UpsertResult(ctx, req.ExamID, req.StudentID, req.SubjectID, req.TheoryMarks, req.PracticalMarks)
}

func (s *appService) GetExamResults(ctx context.Context, examID int) ([]core.Result, error) {
	return s.exams.GetResultsForExam(ctx, examID)
}

// ── Users and settings ────────────────────────────────────────────────────────

func (s *appService) ListUsers(ctx context.Context) ([]core.User, error) {
	return s.users.GetUsers(ctx)
}

func (s *appService) GetUser(ctx context.Context, userID int) (*core.User, error) {
	return s.users.GetUser(ctx, userID)
}

func (s *appService) CreateUser(ctx context.Context, req CreateUserRequest) (*core.User, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	return s.users.CreateUser(ctx, req.Username, req.Password, core.Role(req.Role))
}

func (s *appService) UpdateUserPassword(ctx context.Context, userID int, req PasswordRequest) error {
	if err := s.check(req); err != nil {
		return err
	}
	return s.users.UpdateUserPassword(ctx, userID, req.Password)
}

func (s *appService) Authenticate(ctx context.Context, username, password string) (*core.User, error) {
	return s.users.Authenticate(ctx, username, password)
}

func (s *appService) GetSettings(ctx context.Context) (*core.SchoolSettings, error) {
	return s.settings.GetSettings(ctx)
}

func (s *appService) UpdateSettings(ctx context.Context, req SettingsRequest) error {
	if err := s.check(req); err != nil {
		return err
	}
	return s.settings.UpdateSettings(ctx, core.SchoolSettings{
		SchoolName:    req.SchoolName,
		SchoolAddress: req.SchoolAddress,
		SchoolPhone:   req.SchoolPhone,
	})
}

// ── Billing assistant ─────────────────────────────────────────────────────────

func (s *appService) InterpretRequest(ctx context.Context, text string) (*AssistantResult, error) {
	if s.agent == nil {
		return nil, &core.ValidationError{Field: "assistant", Reason: "no API key configured"}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &core.ValidationError{Field: "text", Reason: "empty request"}
	}

	roster, err := s.buildStudentRoster(ctx)
	if err != nil {
		return nil, err
	}

	proposal, err := s.agent.InterpretRequest(ctx, text, roster)
	if err != nil {
		return nil, err
	}
	if proposal.Action == ai.ActionClarify {
		return &AssistantResult{IsClarification: true, Question: proposal.Question}, nil
	}
	// The proposed student must exist before we show the proposal.
	if _, err := s.students.GetStudentBySID(ctx, proposal.StudentSID); err != nil {
		return nil, err
	}
	return &AssistantResult{Proposal: proposal}, nil
}

func (s *appService) ExecuteProposal(ctx context.Context, req ExecuteProposalRequest) (*ExecuteProposalResult, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	student, err := s.students.GetStudentBySID(ctx, req.StudentSID)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case ai.ActionGenerateInvoice:
		invoice, err := s.invoices.GenerateOrUpdateInvoice(ctx, core.GenerateInput{
			StudentID:    student.ID,
			ClassID:      student.ClassID,
			Month:        req.Month,
			Year:         req.Year,
			SelectedFees: feeKinds(req.Fees),
		})
		if err != nil {
			return nil, err
		}
		return &ExecuteProposalResult{Invoice: invoice}, nil

	case ai.ActionRecordPayment:
		// Payments land on the student's latest invoice.
		invoices, err := s.invoices.GetInvoicesForStudent(ctx, student.ID)
		if err != nil {
			return nil, err
		}
		if len(invoices) == 0 {
			return nil, &core.ConflictError{Reason: fmt.Sprintf("student %s has no invoice to pay against", req.StudentSID)}
		}
		payment, err := s.payments.AddPayment(ctx, student.ID, invoices[0].ID, req.Amount)
		if err != nil {
			return nil, err
		}
		return &ExecuteProposalResult{Payment: payment}, nil

	default:
		return nil, &core.ValidationError{Field: "action", Reason: "unknown action " + req.Action}
	}
}

// buildStudentRoster renders the student directory the assistant resolves
// names against, one student per line.
func (s *appService) buildStudentRoster(ctx context.Context) (string, error) {
	students, err := s.students.GetStudents(ctx, core.StudentFilters{})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, st := range students {
		fmt.Fprintf(&b, "%s | %s | class %d\n", st.SID, st.Name, st.ClassID)
	}
	return b.String(), nil
}
