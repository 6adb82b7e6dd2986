package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StudentService manages enrollment records.
type StudentService struct {
	pool *pgxpool.Pool
}

func NewStudentService(pool *pgxpool.Pool) *StudentService {
	return &StudentService{pool: pool}
}

// StudentFilters narrows GetStudents; zero values mean "no filter".
type StudentFilters struct {
	ClassID int
	Name    string // case-insensitive substring match
}

// StudentInput carries the mutable enrollment fields.
type StudentInput struct {
	Name           string
	RollNumber     int
	ClassID        int
	Address        string
	OpeningBalance decimal.Decimal
	InTuition      bool
}

const studentColumns = `id, sid, name, roll_number, class_id, address, opening_balance, in_tuition, created_at`

// GetStudents lists students ordered by roll number then name.
func (s *StudentService) GetStudents(ctx context.Context, filters StudentFilters) ([]Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students`
	var conds []string
	var args []any

	if filters.ClassID != 0 {
		args = append(args, filters.ClassID)
		conds = append(conds, fmt.Sprintf("class_id = $%d", len(args)))
	}
	if filters.Name != "" {
		args = append(args, "%"+filters.Name+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY roll_number, name"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get students: %w", err)
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.SID, &st.Name, &st.RollNumber, &st.ClassID,
			&st.Address, &st.OpeningBalance, &st.InTuition, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// GetStudent returns one student by id.
func (s *StudentService) GetStudent(ctx context.Context, studentID int) (*Student, error) {
	return getStudent(ctx, s.pool, studentID)
}

// CreateStudent enrolls a student, assigning a random public 6-digit SID.
// Retries a few times on the (unlikely) SID collision.
func (s *StudentService) CreateStudent(ctx context.Context, input StudentInput) (*Student, error) {
	if err := validateStudentInput(ctx, s.pool, input); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 5; attempt++ {
		sid := strconv.Itoa(100000 + rand.IntN(900000))

		st := &Student{}
		err := s.pool.QueryRow(ctx, `
			INSERT INTO students (sid, name, roll_number, class_id, address, opening_balance, in_tuition)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+studentColumns,
			sid, input.Name, input.RollNumber, input.ClassID, input.Address,
			input.OpeningBalance, input.InTuition,
		).Scan(&st.ID, &st.SID, &st.Name, &st.RollNumber, &st.ClassID,
			&st.Address, &st.OpeningBalance, &st.InTuition, &st.CreatedAt)
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create student %q: %w", input.Name, err)
		}
		return st, nil
	}
	return nil, fmt.Errorf("create student %q: could not allocate a unique sid", input.Name)
}

// UpdateStudent rewrites the mutable enrollment fields.
func (s *StudentService) UpdateStudent(ctx context.Context, studentID int, input StudentInput) (*Student, error) {
	if err := validateStudentInput(ctx, s.pool, input); err != nil {
		return nil, err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE students
		SET name = $2, roll_number = $3, class_id = $4, address = $5,
		    opening_balance = $6, in_tuition = $7
		WHERE id = $1`,
		studentID, input.Name, input.RollNumber, input.ClassID, input.Address,
		input.OpeningBalance, input.InTuition)
	if err != nil {
		return nil, fmt.Errorf("update student %d: %w", studentID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &NotFoundError{Entity: "student", Ref: strconv.Itoa(studentID)}
	}
	return s.GetStudent(ctx, studentID)
}

// GetStudentBySID resolves the public 6-digit student number.
func (s *StudentService) GetStudentBySID(ctx context.Context, sid string) (*Student, error) {
	st := &Student{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+studentColumns+` FROM students WHERE sid = $1`, sid,
	).Scan(&st.ID, &st.SID, &st.Name, &st.RollNumber, &st.ClassID,
		&st.Address, &st.OpeningBalance, &st.InTuition, &st.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "student", Ref: sid}
	}
	if err != nil {
		return nil, fmt.Errorf("get student sid %s: %w", sid, err)
	}
	return st, nil
}

func validateStudentInput(ctx context.Context, q querier, input StudentInput) error {
	if input.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if input.OpeningBalance.IsNegative() {
		return &ValidationError{Field: "opening_balance", Reason: "must not be negative"}
	}
	if _, err := getClass(ctx, q, input.ClassID); err != nil {
		return err
	}
	return nil
}

func getStudent(ctx context.Context, q querier, studentID int) (*Student, error) {
	st := &Student{}
	err := q.QueryRow(ctx, `
		SELECT `+studentColumns+` FROM students WHERE id = $1`, studentID,
	).Scan(&st.ID, &st.SID, &st.Name, &st.RollNumber, &st.ClassID,
		&st.Address, &st.OpeningBalance, &st.InTuition, &st.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "student", Ref: strconv.Itoa(studentID)}
	}
	if err != nil {
		return nil, fmt.Errorf("get student %d: %w", studentID, err)
	}
	return st, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
