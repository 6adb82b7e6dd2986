package app

import (
	"context"

	"school-office/internal/core"
)

// ApplicationService is the single interface all adapters call. It
// decouples presentation from business logic. Implementations must
// contain no fmt.Println and no display logic of any kind.
type ApplicationService interface {
	// ListClasses returns every class with its fee schedule.
	ListClasses(ctx context.Context) ([]core.Class, error)

	// GetClass returns one class by ID.
	GetClass(ctx context.Context, classID int) (*core.Class, error)

	// CreateClass creates a class with an all-zero fee schedule.
	CreateClass(ctx context.Context, req ClassRequest) (*core.Class, error)

	// UpdateClass renames a class or changes its section.
	UpdateClass(ctx context.Context, classID int, req ClassRequest) (*core.Class, error)

	// UpdateClassFees merges the given amounts into the class fee schedule.
	UpdateClassFees(ctx context.Context, classID int, req UpdateFeesRequest) (*core.Class, error)

	// ListStudents returns students, optionally filtered by class or name.
	ListStudents(ctx context.Context, classID int, name string) ([]core.Student, error)

	// GetStudent returns one student by ID.
	GetStudent(ctx context.Context, studentID int) (*core.Student, error)

	// CreateStudent enrolls a student and assigns a random six digit sid.
	CreateStudent(ctx context.Context, req StudentRequest) (*core.Student, error)

	// UpdateStudent edits a student's enrollment record.
	UpdateStudent(ctx context.Context, studentID int, req StudentRequest) (*core.Student, error)

	// GetStudentLedger returns a student with their full invoice chain
	// (newest first) and payment history.
	GetStudentLedger(ctx context.Context, studentID int) (*StudentLedgerResult, error)

	// GenerateInvoice builds or rebuilds one student's invoice for a month.
	GenerateInvoice(ctx context.Context, req GenerateInvoiceRequest) (*core.Invoice, error)

	// BulkGenerateInvoices runs invoice generation for every student in a
	// class, collecting per-student failures instead of aborting.
	BulkGenerateInvoices(ctx context.Context, req BulkGenerateRequest) (*core.BulkResult, error)

	// GetInvoice returns one invoice by ID.
	GetInvoice(ctx context.Context, invoiceID int) (*core.Invoice, error)

	// InvoicesExistForMonth reports whether any invoice exists for the
	// class and month, used to warn before a duplicate bulk run.
	InvoicesExistForMonth(ctx context.Context, classID int, month string, year int) (bool, error)

	// RecordPayment records money received against an invoice and repairs
	// the downstream chain.
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (*core.Payment, error)

	// ListStudentPayments returns a student's payments, newest first.
	ListStudentPayments(ctx context.Context, studentID int) ([]core.Payment, error)

	// GetClassFeeReport returns billed/collected/dues totals per class.
	GetClassFeeReport(ctx context.Context) ([]core.ClassFeeSummary, error)

	// GetStudentFeeReport returns per-student fee positions for one class.
	GetStudentFeeReport(ctx context.Context, classID int) ([]core.StudentFeeSummary, error)

	// GetBillBundle returns the print bundle for an invoice.
	GetBillBundle(ctx context.Context, invoiceID int) (*core.BillBundle, error)

	// GetReceiptBundle returns the print bundle for a payment receipt.
	GetReceiptBundle(ctx context.Context, paymentID int) (*core.ReceiptBundle, error)

	// GetMarksheetBundle returns the print bundle for a student's marksheet.
	GetMarksheetBundle(ctx context.Context, examID, studentID int) (*core.MarksheetBundle, error)

	// ListExams returns all exams, newest first.
	ListExams(ctx context.Context) ([]core.Exam, error)

	// CreateExam creates an exam.
	CreateExam(ctx context.Context, req ExamRequest) (*core.Exam, error)

	// ListSubjects returns a class's subjects.
	ListSubjects(ctx context.Context, classID int) ([]core.Subject, error)

	// CreateSubject adds a subject to a class.
	CreateSubject(ctx context.Context, classID int, req SubjectRequest) (*core.Subject, error)

	// UpdateSubject edits a subject.
	UpdateSubject(ctx context.Context, subjectID int, req SubjectRequest) error

	// DeleteSubject removes a subject and its results.
	DeleteSubject(ctx context.Context, subjectID int) error

	// SaveResult inserts or overwrites one student's marks for a subject.
	SaveResult(ctx context.Context, req ResultRequest) (*core.Result, error)

	// GetExamResults returns all recorded marks for an exam.
	GetExamResults(ctx context.Context, examID int) ([]core.Result, error)

	// ListUsers returns all staff accounts.
	ListUsers(ctx context.Context) ([]core.User, error)

	// GetUser returns one staff account by ID.
	GetUser(ctx context.Context, userID int) (*core.User, error)

	// CreateUser creates a staff account.
	CreateUser(ctx context.Context, req CreateUserRequest) (*core.User, error)

	// UpdateUserPassword resets a staff account's password.
	UpdateUserPassword(ctx context.Context, userID int, req PasswordRequest) error

	// Authenticate checks credentials and returns the matching user.
	Authenticate(ctx context.Context, username, password string) (*core.User, error)

	// GetSettings returns the school letterhead settings.
	GetSettings(ctx context.Context) (*core.SchoolSettings, error)

	// UpdateSettings overwrites the school letterhead settings.
	UpdateSettings(ctx context.Context, req SettingsRequest) error

	// InterpretRequest sends free text to the billing assistant and returns
	// either an action proposal or a clarification question.
	InterpretRequest(ctx context.Context, text string) (*AssistantResult, error)

	// ExecuteProposal runs a previously proposed assistant action after
	// human confirmation.
	ExecuteProposal(ctx context.Context, req ExecuteProposalRequest) (*ExecuteProposalResult, error)
}
