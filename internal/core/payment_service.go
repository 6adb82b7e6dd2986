package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PaymentService records payments and keeps the rest of the student's chain
// consistent. A payment and its full forward repair commit together or not
// at all.
type PaymentService struct {
	pool *pgxpool.Pool
}

func NewPaymentService(pool *pgxpool.Pool) *PaymentService {
	return &PaymentService{pool: pool}
}

// AddPayment appends an immutable payment to the invoice, then repairs every
// invoice created after it: each one's "Previous Dues" is rewritten to its
// predecessor's post-payment balance, totalBilled and balance follow.
// Invoices before the paid one are untouched. Overpayment is allowed and
// leaves a negative balance that propagates forward as credit.
func (s *PaymentService) AddPayment(ctx context.Context, studentID, invoiceID int, amount decimal.Decimal) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Reason: "must be positive"}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockStudentLedger(ctx, tx, studentID); err != nil {
		return nil, err
	}

	paid, err := scanInvoiceRow(tx.QueryRow(ctx, `
		SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, invoiceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "invoice", Ref: strconv.Itoa(invoiceID)}
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice %d: %w", invoiceID, err)
	}
	if paid.StudentID != studentID {
		return nil, &ConflictError{Reason: fmt.Sprintf(
			"invoice %d does not belong to student %d", invoiceID, studentID)}
	}

	payment := &Payment{InvoiceID: invoiceID, Amount: amount}
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, amount, receipt_no)
		VALUES ($1, $2, $3)
		RETURNING id, paid_at`,
		invoiceID, amount, newReceiptNo(),
	).Scan(&payment.ID, &payment.PaidAt)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	newBalance := paid.Balance.Sub(amount)
	if _, err := tx.Exec(ctx, `
		UPDATE invoices SET total_paid = total_paid + $2, balance = balance - $2
		WHERE id = $1`,
		invoiceID, amount); err != nil {
		return nil, fmt.Errorf("apply payment to invoice %d: %w", invoiceID, err)
	}

	// Forward repair, entirely inside this transaction.
	suffix, err := loadChainAfter(ctx, tx, studentID, paid)
	if err != nil {
		return nil, err
	}
	for _, inv := range RepairChain(suffix, 0, newBalance) {
		itemsJSON, err := json.Marshal(inv.LineItems)
		if err != nil {
			return nil, fmt.Errorf("marshal line items: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE invoices SET line_items = $2::jsonb, total_billed = $3, balance = $4
			WHERE id = $1`,
			inv.ID, string(itemsJSON), inv.TotalBilled, inv.Balance); err != nil {
			return nil, fmt.Errorf("repair invoice %d: %w", inv.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return payment, nil
}

// GetPayment returns one payment with its receipt number.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID int) (*Payment, string, error) {
	p := &Payment{}
	var receiptNo string
	err := s.pool.QueryRow(ctx, `
		SELECT id, invoice_id, amount, receipt_no, paid_at FROM payments WHERE id = $1`,
		paymentID,
	).Scan(&p.ID, &p.InvoiceID, &p.Amount, &receiptNo, &p.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", &NotFoundError{Entity: "payment", Ref: strconv.Itoa(paymentID)}
	}
	if err != nil {
		return nil, "", fmt.Errorf("get payment %d: %w", paymentID, err)
	}
	return p, receiptNo, nil
}

// GetPaymentsForStudent returns every payment across the student's
// invoices, newest first.
func (s *PaymentService) GetPaymentsForStudent(ctx context.Context, studentID int) ([]Payment, error) {
	if _, err := getStudent(ctx, s.pool, studentID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.invoice_id, p.amount, p.paid_at
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE i.student_id = $1
		ORDER BY p.paid_at DESC, p.id DESC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("get payments of student %d: %w", studentID, err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// loadChainAfter returns the chain suffix strictly after the given invoice
// in (created_at, id) order.
func loadChainAfter(ctx context.Context, q querier, studentID int, after *Invoice) ([]Invoice, error) {
	rows, err := q.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE student_id = $1 AND (created_at, id) > ($2, $3)
		ORDER BY created_at, id`,
		studentID, after.CreatedAt, after.ID)
	if err != nil {
		return nil, fmt.Errorf("load chain after invoice %d: %w", after.ID, err)
	}
	defer rows.Close()

	var suffix []Invoice
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
		suffix = append(suffix, inv)
	}
	return suffix, rows.Err()
}

// newReceiptNo mints a short human-quotable receipt number.
func newReceiptNo() string {
	return "RCT-" + strings.ToUpper(uuid.NewString()[:8])
}
