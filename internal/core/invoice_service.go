package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ledgerLockNS namespaces the per-student advisory lock. Every mutation of a
// student's invoice chain (generate, rebill, payment+repair) runs inside a
// transaction holding pg_advisory_xact_lock(ledgerLockNS, studentID), so the
// chain has a single writer at a time.
const ledgerLockNS = 7462840

// InvoiceService owns the invoice ledger: one invoice per (student, month,
// year), chained by creation time, each carrying the previous invoice's
// balance as the "Previous Dues" line.
type InvoiceService struct {
	pool *pgxpool.Pool

	// AllowRebillAfterPayment controls whether an invoice that already has
	// payments may be regenerated with a new fee selection. The legacy
	// behavior is true: the rebill keeps totalPaid and recomputes balance,
	// which can silently flip a Paid invoice back to Partial.
	AllowRebillAfterPayment bool
}

func NewInvoiceService(pool *pgxpool.Pool) *InvoiceService {
	return &InvoiceService{pool: pool, AllowRebillAfterPayment: true}
}

// GenerateInput is one generate-or-update request.
type GenerateInput struct {
	StudentID    int
	ClassID      int
	Month        string
	Year         int
	SelectedFees []FeeKind
	ExtraLabel   string // label for the ad-hoc extra charge, e.g. "Medical"
	ExtraAmount  decimal.Decimal
}

// GenerateOrUpdateInvoice builds (or rebuilds) the invoice for one student
// and month. The carry is read from the latest other invoice in the
// student's chain, or from the opening balance when none exists. An existing
// invoice for the same (student, month, year) is overwritten in place:
// payments already received are preserved, balance is recomputed from the
// new totalBilled, and createdAt is refreshed, which moves the invoice to
// the end of the chain.
func (s *InvoiceService) GenerateOrUpdateInvoice(ctx context.Context, input GenerateInput) (*Invoice, error) {
	if !ValidMonth(input.Month) {
		return nil, &ValidationError{Field: "month", Reason: "unknown month " + input.Month}
	}
	if input.Year <= 0 {
		return nil, &ValidationError{Field: "year", Reason: "required"}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockStudentLedger(ctx, tx, input.StudentID); err != nil {
		return nil, err
	}

	student, err := getStudent(ctx, tx, input.StudentID)
	if err != nil {
		return nil, err
	}
	class, err := getClass(ctx, tx, input.ClassID)
	if err != nil {
		return nil, err
	}

	charges, err := ComposeLineItems(input.SelectedFees, class.Fees, student.InTuition, input.ExtraLabel, input.ExtraAmount)
	if err != nil {
		return nil, err
	}

	existing, err := findInvoiceForMonth(ctx, tx, input.StudentID, input.Month, input.Year)
	if err != nil {
		return nil, err
	}

	// Carry comes from the most recent invoice other than the one being
	// regenerated; the opening balance seeds a fresh chain.
	carry, err := latestBalanceExcluding(ctx, tx, student, existing)
	if err != nil {
		return nil, err
	}

	items, totalBilled := ApplyCarry(charges, carry)
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal line items: %w", err)
	}

	var inv *Invoice
	if existing != nil {
		if existing.TotalPaid.IsPositive() && !s.AllowRebillAfterPayment {
			return nil, &ConflictError{Reason: fmt.Sprintf(
				"invoice %d already has payments; rebilling is disabled", existing.ID)}
		}
		inv, err = scanInvoiceRow(tx.QueryRow(ctx, `
			UPDATE invoices
			SET class_id = $2, line_items = $3::jsonb, total_billed = $4,
			    balance = $4 - total_paid, created_at = now()
			WHERE id = $1
			RETURNING `+invoiceColumns,
			existing.ID, input.ClassID, string(itemsJSON), totalBilled))
		if err != nil {
			return nil, fmt.Errorf("rebill invoice %d: %w", existing.ID, err)
		}
	} else {
		inv, err = scanInvoiceRow(tx.QueryRow(ctx, `
			INSERT INTO invoices (student_id, class_id, month, year, line_items, total_billed, total_paid, balance)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6, 0, $6)
			RETURNING `+invoiceColumns,
			input.StudentID, input.ClassID, input.Month, input.Year, string(itemsJSON), totalBilled))
		if err != nil {
			return nil, fmt.Errorf("insert invoice: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return inv, nil
}

// BulkFailure records one student whose invoice could not be generated
// during a bulk run.
type BulkFailure struct {
	StudentID   int    `json:"student_id"`
	StudentName string `json:"student_name"`
	Reason      string `json:"reason"`
}

// BulkResult is the outcome of a bulk generation run. The run is not atomic
// across students; Failures lists exactly who was skipped and why.
type BulkResult struct {
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Failures []BulkFailure `json:"failures,omitempty"`
}

// BulkGenerate applies GenerateOrUpdateInvoice to every student in the
// class, with no extra fee. Failures are collected per student rather than
// aborting the run; already-invoiced students count as updates.
func (s *InvoiceService) BulkGenerate(ctx context.Context, classID int, month string, year int, selectedFees []FeeKind) (*BulkResult, error) {
	if !ValidMonth(month) {
		return nil, &ValidationError{Field: "month", Reason: "unknown month " + month}
	}
	if _, err := getClass(ctx, s.pool, classID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name FROM students WHERE class_id = $1 ORDER BY roll_number, name`, classID)
	if err != nil {
		return nil, fmt.Errorf("list students of class %d: %w", classID, err)
	}
	type target struct {
		id   int
		name string
	}
	var targets []target
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.id, &t.name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan student: %w", err)
		}
		targets = append(targets, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	result := &BulkResult{}
	for _, t := range targets {
		existing, err := findInvoiceForMonth(ctx, s.pool, t.id, month, year)
		if err != nil {
			result.Failures = append(result.Failures, BulkFailure{StudentID: t.id, StudentName: t.name, Reason: err.Error()})
			continue
		}

		_, err = s.GenerateOrUpdateInvoice(ctx, GenerateInput{
			StudentID:    t.id,
			ClassID:      classID,
			Month:        month,
			Year:         year,
			SelectedFees: selectedFees,
		})
		if err != nil {
			result.Failures = append(result.Failures, BulkFailure{StudentID: t.id, StudentName: t.name, Reason: err.Error()})
			continue
		}
		if existing != nil {
			result.Updated++
		} else {
			result.Created++
		}
	}
	return result, nil
}

// GetInvoice returns one invoice by id.
func (s *InvoiceService) GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error) {
	inv, err := scanInvoiceRow(s.pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, invoiceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "invoice", Ref: strconv.Itoa(invoiceID)}
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice %d: %w", invoiceID, err)
	}
	return inv, nil
}

// GetInvoiceForMonth returns the invoice for (student, month, year), or a
// NotFoundError.
func (s *InvoiceService) GetInvoiceForMonth(ctx context.Context, studentID int, month string, year int) (*Invoice, error) {
	inv, err := findInvoiceForMonth(ctx, s.pool, studentID, month, year)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, &NotFoundError{Entity: "invoice", Ref: fmt.Sprintf("%d/%s/%d", studentID, month, year)}
	}
	return inv, nil
}

// GetInvoicesForStudent returns the student's full chain, newest first
// (display order; the chain itself is ascending).
func (s *InvoiceService) GetInvoicesForStudent(ctx context.Context, studentID int) ([]Invoice, error) {
	if _, err := getStudent(ctx, s.pool, studentID); err != nil {
		return nil, err
	}
	chain, err := loadChain(ctx, s.pool, studentID)
	if err != nil {
		return nil, err
	}
	// Reverse into newest-first for callers.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// InvoicesExistForMonth reports whether any invoice exists for the class and
// month, used by the bulk screen to warn before double billing.
func (s *InvoiceService) InvoicesExistForMonth(ctx context.Context, classID int, month string, year int) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM invoices WHERE class_id = $1 AND month = $2 AND year = $3`,
		classID, month, year).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count invoices: %w", err)
	}
	return count > 0, nil
}

// ── shared ledger plumbing ───────────────────────────────────────────────────

const invoiceColumns = `id, student_id, class_id, month, year, line_items, total_billed, total_paid, balance, created_at`

// lockStudentLedger serializes chain mutations per student for the duration
// of the surrounding transaction.
func lockStudentLedger(ctx context.Context, tx pgx.Tx, studentID int) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, ledgerLockNS, studentID); err != nil {
		return fmt.Errorf("lock ledger of student %d: %w", studentID, err)
	}
	return nil
}

func scanInvoiceRow(row pgx.Row) (*Invoice, error) {
	inv := &Invoice{}
	var raw []byte
	err := row.Scan(&inv.ID, &inv.StudentID, &inv.ClassID, &inv.Month, &inv.Year,
		&raw, &inv.TotalBilled, &inv.TotalPaid, &inv.Balance, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &inv.LineItems); err != nil {
		return nil, fmt.Errorf("decode line items: %w", err)
	}
	return inv, nil
}

func findInvoiceForMonth(ctx context.Context, q querier, studentID int, month string, year int) (*Invoice, error) {
	inv, err := scanInvoiceRow(q.QueryRow(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE student_id = $1 AND month = $2 AND year = $3`,
		studentID, month, year))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find invoice %d/%s/%d: %w", studentID, month, year, err)
	}
	return inv, nil
}

// latestBalanceExcluding returns the balance to carry into a new or
// regenerated invoice: the latest chain balance ignoring the invoice being
// regenerated, falling back to the student's opening balance.
func latestBalanceExcluding(ctx context.Context, q querier, student *Student, excluded *Invoice) (decimal.Decimal, error) {
	excludedID := 0
	if excluded != nil {
		excludedID = excluded.ID
	}

	var balance decimal.Decimal
	err := q.QueryRow(ctx, `
		SELECT balance FROM invoices
		WHERE student_id = $1 AND id <> $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		student.ID, excludedID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return student.OpeningBalance, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("latest balance of student %d: %w", student.ID, err)
	}
	return balance, nil
}

// loadChain returns the student's invoices in chain order (ascending
// creation time).
func loadChain(ctx context.Context, q querier, studentID int) ([]Invoice, error) {
	rows, err := q.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE student_id = $1
		ORDER BY created_at, id`, studentID)
	if err != nil {
		return nil, fmt.Errorf("load chain of student %d: %w", studentID, err)
	}
	defer rows.Close()

	var chain []Invoice
	for rows.Next() {
		inv := Invoice{}
		var raw []byte
		if err := rows.Scan(&inv.ID, &inv.StudentID, &inv.ClassID, &inv.Month, &inv.Year,
			&raw, &inv.TotalBilled, &inv.TotalPaid, &inv.Balance, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		if err := json.Unmarshal(raw, &inv.LineItems); err != nil {
			return nil, fmt.Errorf("decode line items: %w", err)
		}
		chain = append(chain, inv)
	}
	return chain, rows.Err()
}
