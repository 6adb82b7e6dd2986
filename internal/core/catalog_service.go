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

// CatalogService manages classes and their fee schedules.
type CatalogService struct {
	pool *pgxpool.Pool
}

func NewCatalogService(pool *pgxpool.Pool) *CatalogService {
	return &CatalogService{pool: pool}
}

// GetClasses returns every class ordered by name then section.
func (s *CatalogService) GetClasses(ctx context.Context) ([]Class, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, section, fees
		FROM classes
		ORDER BY name, section`)
	if err != nil {
		return nil, fmt.Errorf("get classes: %w", err)
	}
	defer rows.Close()

	var classes []Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

// GetClass returns one class by id.
func (s *CatalogService) GetClass(ctx context.Context, classID int) (*Class, error) {
	return getClass(ctx, s.pool, classID)
}

// CreateClass inserts a class with an all-zero fee schedule.
func (s *CatalogService) CreateClass(ctx context.Context, name, section string) (*Class, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	}

	feesJSON, err := json.Marshal(ZeroFeeSchedule())
	if err != nil {
		return nil, fmt.Errorf("marshal fee schedule: %w", err)
	}

	c := &Class{}
	var raw []byte
	err = s.pool.QueryRow(ctx, `
		INSERT INTO classes (name, section, fees)
		VALUES ($1, $2, $3::jsonb)
		RETURNING id, name, section, fees`,
		name, section, string(feesJSON),
	).Scan(&c.ID, &c.Name, &c.Section, &raw)
	if err != nil {
		return nil, fmt.Errorf("create class %q: %w", name, err)
	}
	if err := json.Unmarshal(raw, &c.Fees); err != nil {
		return nil, fmt.Errorf("decode fee schedule: %w", err)
	}
	return c, nil
}

// UpdateClass renames a class and/or its section.
func (s *CatalogService) UpdateClass(ctx context.Context, classID int, name, section string) (*Class, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE classes SET name = $2, section = $3 WHERE id = $1`,
		classID, name, section)
	if err != nil {
		return nil, fmt.Errorf("update class %d: %w", classID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &NotFoundError{Entity: "class", Ref: strconv.Itoa(classID)}
	}
	return s.GetClass(ctx, classID)
}

// UpdateClassFees merges the given kinds into the class schedule. Untouched
// kinds keep their current amounts; there is no history, overwrites lose the
// prior values.
func (s *CatalogService) UpdateClassFees(ctx context.Context, classID int, changes map[FeeKind]decimal.Decimal) (*Class, error) {
	for kind, amount := range changes {
		if !ValidFeeKind(kind) {
			return nil, &ValidationError{Field: "fees", Reason: "unknown fee kind " + string(kind)}
		}
		if amount.IsNegative() {
			return nil, &ValidationError{Field: string(kind), Reason: "amount must not be negative"}
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := getClass(ctx, tx, classID)
	if err != nil {
		return nil, err
	}

	merged := current.Fees
	if merged == nil {
		merged = ZeroFeeSchedule()
	}
	for kind, amount := range changes {
		merged[kind] = amount
	}

	feesJSON, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("marshal fee schedule: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE classes SET fees = $2::jsonb WHERE id = $1`, classID, string(feesJSON)); err != nil {
		return nil, fmt.Errorf("update fees for class %d: %w", classID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	current.Fees = merged
	return current, nil
}

// querier lets class/student lookups run on either the pool or an open
// transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getClass(ctx context.Context, q querier, classID int) (*Class, error) {
	c := &Class{}
	var raw []byte
	err := q.QueryRow(ctx, `
		SELECT id, name, section, fees FROM classes WHERE id = $1`,
		classID,
	).Scan(&c.ID, &c.Name, &c.Section, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "class", Ref: strconv.Itoa(classID)}
	}
	if err != nil {
		return nil, fmt.Errorf("get class %d: %w", classID, err)
	}
	if err := json.Unmarshal(raw, &c.Fees); err != nil {
		return nil, fmt.Errorf("decode fee schedule: %w", err)
	}
	return c, nil
}

func scanClass(rows pgx.Rows) (*Class, error) {
	c := &Class{}
	var raw []byte
	if err := rows.Scan(&c.ID, &c.Name, &c.Section, &raw); err != nil {
		return nil, fmt.Errorf("scan class: %w", err)
	}
	if err := json.Unmarshal(raw, &c.Fees); err != nil {
		return nil, fmt.Errorf("decode fee schedule: %w", err)
	}
	return c, nil
}
