package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// StudentFeeSummary is one row of the per-class accounting screen: the
// student's latest invoice and their overall position against the school.
type StudentFeeSummary struct {
	Student        Student         `json:"student"`
	LatestInvoice  *Invoice        `json:"latest_invoice,omitempty"`
	OverallBalance decimal.Decimal `json:"overall_balance"`
	Status         FeeStatus       `json:"status"`
}

// ClassFeeSummary aggregates billing across one class for the accounting
// dashboard. TotalDues is the sum of each student's current overall balance,
// not a sum over invoices (carried dues would be counted once per month).
type ClassFeeSummary struct {
	Class          Class           `json:"class"`
	TotalBilled    decimal.Decimal `json:"total_billed"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	TotalDues      decimal.Decimal `json:"total_dues"`
}

// ReportingService provides read-only fee reporting over the invoice ledger.
type ReportingService struct {
	pool *pgxpool.Pool
}

func NewReportingService(pool *pgxpool.Pool) *ReportingService {
	return &ReportingService{pool: pool}
}

// GetStudentFeeSummaries returns one summary per student of the class,
// ordered by roll number.
func (s *ReportingService) GetStudentFeeSummaries(ctx context.Context, classID int) ([]StudentFeeSummary, error) {
	if _, err := getClass(ctx, s.pool, classID); err != nil {
		return nil, err
	}

	students, err := NewStudentService(s.pool).GetStudents(ctx, StudentFilters{ClassID: classID})
	if err != nil {
		return nil, err
	}

	summaries := make([]StudentFeeSummary, 0, len(students))
	for _, st := range students {
		latest, err := latestInvoice(ctx, s.pool, st.ID)
		if err != nil {
			return nil, err
		}

		summary := StudentFeeSummary{Student: st, LatestInvoice: latest}
		if latest != nil {
			summary.OverallBalance = latest.Balance
		} else {
			summary.OverallBalance = st.OpeningBalance
		}
		summary.Status = classifyBalance(summary.OverallBalance, latest)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetClassFeeSummaries aggregates every class for the dashboard.
func (s *ReportingService) GetClassFeeSummaries(ctx context.Context) ([]ClassFeeSummary, error) {
	classes, err := NewCatalogService(s.pool).GetClasses(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]ClassFeeSummary, 0, len(classes))
	for _, class := range classes {
		var billed, collected, dues decimal.Decimal

		// Billed and collected sum over invoices; dues take each student's
		// latest balance only.
		err := s.pool.QueryRow(ctx, `
			SELECT COALESCE(SUM(total_billed), 0), COALESCE(SUM(total_paid), 0)
			FROM invoices WHERE class_id = $1`,
			class.ID).Scan(&billed, &collected)
		if err != nil {
			return nil, fmt.Errorf("class %d billing totals: %w", class.ID, err)
		}

		err = s.pool.QueryRow(ctx, `
			SELECT COALESCE(SUM(balance), 0) FROM (
				SELECT DISTINCT ON (student_id) balance
				FROM invoices
				WHERE class_id = $1
				ORDER BY student_id, created_at DESC, id DESC
			) latest`,
			class.ID).Scan(&dues)
		if err != nil {
			return nil, fmt.Errorf("class %d dues: %w", class.ID, err)
		}

		summaries = append(summaries, ClassFeeSummary{
			Class:          class,
			TotalBilled:    billed,
			TotalCollected: collected,
			TotalDues:      dues,
		})
	}
	return summaries, nil
}

func latestInvoice(ctx context.Context, q querier, studentID int) (*Invoice, error) {
	inv, err := scanInvoiceRow(q.QueryRow(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE student_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, studentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest invoice of student %d: %w", studentID, err)
	}
	return inv, nil
}

func classifyBalance(balance decimal.Decimal, latest *Invoice) FeeStatus {
	switch {
	case balance.IsNegative():
		return StatusOverpaid
	case balance.IsZero():
		return StatusPaid
	case latest != nil && latest.TotalPaid.IsPositive():
		return StatusPartial
	default:
		return StatusUnpaid
	}
}
