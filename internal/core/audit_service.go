package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerIssue reports every broken chain link found for one student.
type LedgerIssue struct {
	StudentID  int              `json:"student_id"`
	SID        string           `json:"sid"`
	Name       string           `json:"name"`
	Violations []ChainViolation `json:"violations"`
}

// AuditService walks whole ledgers, verifying and optionally rewriting
// every student's chain. It exists for the offline audit tool; the online
// path repairs chains incrementally as payments land.
type AuditService struct {
	pool *pgxpool.Pool
}

func NewAuditService(pool *pgxpool.Pool) *AuditService {
	return &AuditService{pool: pool}
}

// VerifyLedgers checks the chain invariant for every student with ID
// >= fromStudentID and returns the students whose chains are broken.
// fromStudentID allows resuming a walk that previously failed part way.
func (s *AuditService) VerifyLedgers(ctx context.Context, fromStudentID int) ([]LedgerIssue, error) {
	students, err := s.listStudentsFrom(ctx, fromStudentID)
	if err != nil {
		return nil, err
	}

	var issues []LedgerIssue
	lastOK := 0
	for _, st := range students {
		chain, err := loadChain(ctx, s.pool, st.ID)
		if err != nil {
			return issues, &PartialRepairError{LastStudentID: lastOK, Cause: err}
		}
		if violations := VerifyChain(chain, st.OpeningBalance); len(violations) > 0 {
			issues = append(issues, LedgerIssue{
				StudentID:  st.ID,
				SID:        st.SID,
				Name:       st.Name,
				Violations: violations,
			})
		}
		lastOK = st.ID
	}
	return issues, nil
}

// RepairLedgers rewrites the full chain of every student with ID
// >= fromStudentID and returns how many students were touched. Each
// student is repaired in its own transaction under the ledger lock, so a
// failure leaves earlier students repaired; the returned
// PartialRepairError records the last student that completed, letting the
// caller resume from the next one.
func (s *AuditService) RepairLedgers(ctx context.Context, fromStudentID int) (int, error) {
	students, err := s.listStudentsFrom(ctx, fromStudentID)
	if err != nil {
		return 0, err
	}

	repaired := 0
	lastOK := 0
	for _, st := range students {
		if err := s.repairStudent(ctx, st); err != nil {
			return repaired, &PartialRepairError{LastStudentID: lastOK, Cause: err}
		}
		repaired++
		lastOK = st.ID
	}
	return repaired, nil
}

func (s *AuditService) repairStudent(ctx context.Context, st Student) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockStudentLedger(ctx, tx, st.ID); err != nil {
		return err
	}

	chain, err := loadChain(ctx, tx, st.ID)
	if err != nil {
		return err
	}

	for _, inv := range RepairChain(chain, 0, st.OpeningBalance) {
		itemsJSON, err := json.Marshal(inv.LineItems)
		if err != nil {
			return fmt.Errorf("marshal line items: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE invoices SET line_items = $2::jsonb, total_billed = $3, balance = $4
			WHERE id = $1`,
			inv.ID, string(itemsJSON), inv.TotalBilled, inv.Balance); err != nil {
			return fmt.Errorf("repair invoice %d: %w", inv.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *AuditService) listStudentsFrom(ctx context.Context, fromStudentID int) ([]Student, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+studentColumns+` FROM students WHERE id >= $1 ORDER BY id`,
		fromStudentID)
	if err != nil {
		return nil, fmt.Errorf("list students from %d: %w", fromStudentID, err)
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var st Student
		err := rows.Scan(&st.ID, &st.SID, &st.Name, &st.RollNumber, &st.ClassID,
			&st.Address, &st.OpeningBalance, &st.InTuition, &st.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list students from %d: %w", fromStudentID, err)
	}
	return students, nil
}
