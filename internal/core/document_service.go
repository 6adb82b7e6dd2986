package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Document bundles ──────────────────────────────────────────────────────────

// BillBundle is everything a bill renderer needs for one invoice: the
// school letterhead, the student, their class, and the invoice itself.
type BillBundle struct {
	School  SchoolSettings `json:"school"`
	Student Student        `json:"student"`
	Class   Class          `json:"class"`
	Invoice Invoice        `json:"invoice"`
}

// ReceiptBundle is a bill bundle plus the payment being acknowledged.
// BalanceBefore is the invoice balance as it stood when the payment was
// taken, reconstructed from the stored balance and the payment amount.
type ReceiptBundle struct {
	School        SchoolSettings  `json:"school"`
	Student       Student         `json:"student"`
	Class         Class           `json:"class"`
	Invoice       Invoice         `json:"invoice"`
	Payment       Payment         `json:"payment"`
	ReceiptNo     string          `json:"receipt_no"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
}

// SubjectResult pairs a subject with the marks a student scored in it.
type SubjectResult struct {
	Subject        Subject `json:"subject"`
	TheoryMarks    int     `json:"theory_marks"`
	PracticalMarks int     `json:"practical_marks"`
}

// MarksheetBundle is everything a marksheet renderer needs for one
// student in one exam. Results follow the class's subject order.
type MarksheetBundle struct {
	School  SchoolSettings  `json:"school"`
	Student Student         `json:"student"`
	Class   Class           `json:"class"`
	Exam    Exam            `json:"exam"`
	Results []SubjectResult `json:"results"`
}

// DocumentService assembles print-ready bundles for bills, receipts and
// marksheets. It produces data only; rendering happens client side.
type DocumentService struct {
	pool *pgxpool.Pool
}

func NewDocumentService(pool *pgxpool.Pool) *DocumentService {
	return &DocumentService{pool: pool}
}

// GetBillBundle returns the bill bundle for one invoice.
func (s *DocumentService) GetBillBundle(ctx context.Context, invoiceID int) (*BillBundle, error) {
	invoice, err := scanInvoiceRow(s.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, invoiceID))
	if err != nil {
		return nil, invoiceLookupErr(invoiceID, err)
	}

	school, student, class, err := s.letterhead(ctx, invoice.StudentID, invoice.ClassID)
	if err != nil {
		return nil, err
	}
	return &BillBundle{School: *school, Student: *student, Class: *class, Invoice: *invoice}, nil
}

// GetReceiptBundle returns the receipt bundle for one payment. The
// invoice reflects the ledger as it stands now, which may include
// repairs applied after this payment was taken.
func (s *DocumentService) GetReceiptBundle(ctx context.Context, paymentID int) (*ReceiptBundle, error) {
	payments := NewPaymentService(s.pool)
	payment, receiptNo, err := payments.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	invoice, err := scanInvoiceRow(s.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, payment.InvoiceID))
	if err != nil {
		return nil, invoiceLookupErr(payment.InvoiceID, err)
	}

	school, student, class, err := s.letterhead(ctx, invoice.StudentID, invoice.ClassID)
	if err != nil {
		return nil, err
	}
	return &ReceiptBundle{
		School:        *school,
		Student:       *student,
		Class:         *class,
		Invoice:       *invoice,
		Payment:       *payment,
		ReceiptNo:     receiptNo,
		BalanceBefore: invoice.Balance.Add(payment.Amount),
	}, nil
}

// GetMarksheetBundle returns the marksheet bundle for one student in one
// exam. Only subjects the student has recorded marks for are included.
func (s *DocumentService) GetMarksheetBundle(ctx context.Context, examID, studentID int) (*MarksheetBundle, error) {
	exams := NewExamService(s.pool)
	exam, err := exams.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	student, err := getStudent(ctx, s.pool, studentID)
	if err != nil {
		return nil, err
	}

	school, _, class, err := s.letterhead(ctx, studentID, student.ClassID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.class_id, s.name, s.code, s.full_marks_theory, s.full_marks_practical, s.is_extra,
		       r.theory_marks, r.practical_marks
		FROM results r
		JOIN subjects s ON s.id = r.subject_id
		WHERE r.exam_id = $1 AND r.student_id = $2
		ORDER BY s.is_extra, s.id`, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("get marksheet results for exam %d student %d: %w", examID, studentID, err)
	}
	defer rows.Close()

	var results []SubjectResult
	for rows.Next() {
		var sr SubjectResult
		sub := &sr.Subject
		err := rows.Scan(&sub.ID, &sub.ClassID, &sub.Name, &sub.Code,
			&sub.FullMarksTheory, &sub.FullMarksPractical, &sub.IsExtra,
			&sr.TheoryMarks, &sr.PracticalMarks)
		if err != nil {
			return nil, fmt.Errorf("scan marksheet result: %w", err)
		}
		results = append(results, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get marksheet results for exam %d student %d: %w", examID, studentID, err)
	}

	return &MarksheetBundle{
		School:  *school,
		Student: *student,
		Class:   *class,
		Exam:    *exam,
		Results: results,
	}, nil
}

func (s *DocumentService) letterhead(ctx context.Context, studentID, classID int) (*SchoolSettings, *Student, *Class, error) {
	school, err := getSettings(ctx, s.pool)
	if err != nil {
		return nil, nil, nil, err
	}
	student, err := getStudent(ctx, s.pool, studentID)
	if err != nil {
		return nil, nil, nil, err
	}
	class, err := getClass(ctx, s.pool, classID)
	if err != nil {
		return nil, nil, nil, err
	}
	return school, student, class, nil
}

func invoiceLookupErr(invoiceID int, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &NotFoundError{Entity: "invoice", Ref: strconv.Itoa(invoiceID)}
	}
	return fmt.Errorf("get invoice %d: %w", invoiceID, err)
}
