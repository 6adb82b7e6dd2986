package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamService manages exams, per-class subjects, and result entry.
type ExamService struct {
	pool *pgxpool.Pool
}

func NewExamService(pool *pgxpool.Pool) *ExamService {
	return &ExamService{pool: pool}
}

// GetExams returns every exam, newest first.
func (s *ExamService) GetExams(ctx context.Context) ([]Exam, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, date FROM exams ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("get exams: %w", err)
	}
	defer rows.Close()

	var exams []Exam
	for rows.Next() {
		var e Exam
		if err := rows.Scan(&e.ID, &e.Name, &e.Date); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// GetExam returns one exam by id.
func (s *ExamService) GetExam(ctx context.Context, examID int) (*Exam, error) {
	e := &Exam{}
	err := s.pool.QueryRow(ctx, `SELECT id, name, date FROM exams WHERE id = $1`, examID).
		Scan(&e.ID, &e.Name, &e.Date)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "exam", Ref: strconv.Itoa(examID)}
	}
	if err != nil {
		return nil, fmt.Errorf("get exam %d: %w", examID, err)
	}
	return e, nil
}

// CreateExam records an exam. The date is required.
func (s *ExamService) CreateExam(ctx context.Context, name string, date time.Time) (*Exam, error) {
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	}
	if date.IsZero() {
		return nil, &ValidationError{Field: "date", Reason: "required"}
	}

	e := &Exam{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO exams (name, date) VALUES ($1, $2) RETURNING id, name, date`,
		name, date,
	).Scan(&e.ID, &e.Name, &e.Date)
	if err != nil {
		return nil, fmt.Errorf("create exam %q: %w", name, err)
	}
	return e, nil
}

// SubjectInput carries the mutable subject fields.
type SubjectInput struct {
	Name               string
	Code               string
	FullMarksTheory    int
	FullMarksPractical int
	IsExtra            bool
}

// GetSubjects returns the subjects of a class.
func (s *ExamService) GetSubjects(ctx context.Context, classID int) ([]Subject, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, class_id, name, code, full_marks_theory, full_marks_practical, is_extra
		FROM subjects WHERE class_id = $1 ORDER BY id`, classID)
	if err != nil {
		return nil, fmt.Errorf("get subjects of class %d: %w", classID, err)
	}
	defer rows.Close()

	var subjects []Subject
	for rows.Next() {
		var sub Subject
		if err := rows.Scan(&sub.ID, &sub.ClassID, &sub.Name, &sub.Code,
			&sub.FullMarksTheory, &sub.FullMarksPractical, &sub.IsExtra); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// CreateSubject adds a subject to a class.
func (s *ExamService) CreateSubject(ctx context.Context, classID int, input SubjectInput) (*Subject, error) {
	if input.Name == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	}
	if _, err := getClass(ctx, s.pool, classID); err != nil {
		return nil, err
	}

	sub := &Subject{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO subjects (class_id, name, code, full_marks_theory, full_marks_practical, is_extra)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, class_id, name, code, full_marks_theory, full_marks_practical, is_extra`,
		classID, input.Name, input.Code, input.FullMarksTheory, input.FullMarksPractical, input.IsExtra,
	).Scan(&sub.ID, &sub.ClassID, &sub.Name, &sub.Code,
		&sub.FullMarksTheory, &sub.FullMarksPractical, &sub.IsExtra)
	if err != nil {
		return nil, fmt.Errorf("create subject %q: %w", input.Name, err)
	}
	return sub, nil
}

// UpdateSubject rewrites a subject's fields.
func (s *ExamService) UpdateSubject(ctx context.Context, subjectID int, input SubjectInput) error {
	if input.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE subjects
		SET name = $2, code = $3, full_marks_theory = $4, full_marks_practical = $5, is_extra = $6
		WHERE id = $1`,
		subjectID, input.Name, input.Code, input.FullMarksTheory, input.FullMarksPractical, input.IsExtra)
	if err != nil {
		return fmt.Errorf("update subject %d: %w", subjectID, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "subject", Ref: strconv.Itoa(subjectID)}
	}
	return nil
}

// DeleteSubject removes a subject; its results go with it.
func (s *ExamService) DeleteSubject(ctx context.Context, subjectID int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, subjectID)
	if err != nil {
		return fmt.Errorf("delete subject %d: %w", subjectID, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "subject", Ref: strconv.Itoa(subjectID)}
	}
	return nil
}

// UpsertResult records or corrects one student's marks for a subject in an
// exam.
func (s *ExamService) UpsertResult(ctx context.Context, examID, studentID, subjectID, theoryMarks, practicalMarks int) (*Result, error) {
	if theoryMarks < 0 || practicalMarks < 0 {
		return nil, &ValidationError{Field: "marks", Reason: "must not be negative"}
	}
	if _, err := s.GetExam(ctx, examID); err != nil {
		return nil, err
	}
	if _, err := getStudent(ctx, s.pool, studentID); err != nil {
		return nil, err
	}

	r := &Result{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO results (exam_id, student_id, subject_id, theory_marks, practical_marks)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (exam_id, student_id, subject_id)
		DO UPDATE SET theory_marks = EXCLUDED.theory_marks, practical_marks = EXCLUDED.practical_marks
		RETURNING id, exam_id, student_id, subject_id, theory_marks, practical_marks`,
		examID, studentID, subjectID, theoryMarks, practicalMarks,
	).Scan(&r.ID, &r.ExamID, &r.StudentID, &r.SubjectID, &r.TheoryMarks, &r.PracticalMarks)
	if err != nil {
		return nil, fmt.Errorf("upsert result: %w", err)
	}
	return r, nil
}

// GetResultsForExam returns every recorded result of an exam.
func (s *ExamService) GetResultsForExam(ctx context.Context, examID int) ([]Result, error) {
	if _, err := s.GetExam(ctx, examID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, exam_id, student_id, subject_id, theory_marks, practical_marks
		FROM results WHERE exam_id = $1 ORDER BY student_id, subject_id`, examID)
	if err != nil {
		return nil, fmt.Errorf("get results of exam %d: %w", examID, err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.ExamID, &r.StudentID, &r.SubjectID, &r.TheoryMarks, &r.PracticalMarks); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
