package app

import (
	"github.com/shopspring/decimal"
)

// ClassRequest is the input for creating or renaming a class.
type ClassRequest struct {
	Name    string `json:"name" validate:"required"`
	Section string `json:"section"`
}

// UpdateFeesRequest carries fee schedule changes keyed by fee kind.
// Unknown kinds and negative amounts are rejected in core.
type UpdateFeesRequest struct {
	Fees map[string]decimal.Decimal `json:"fees" validate:"required,min=1"`
}

// StudentRequest is the input for enrolling or editing a student.
type StudentRequest struct {
	Name           string          `json:"name" validate:"required"`
	RollNumber     int             `json:"roll_number" validate:"min=0"`
	ClassID        int             `json:"class_id" validate:"required,gt=0"`
	Address        string          `json:"address"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	InTuition      bool            `json:"in_tuition"`
}

// GenerateInvoiceRequest is the input for billing one student for one month.
type GenerateInvoiceRequest struct {
	StudentID   int             `json:"student_id" validate:"required,gt=0"`
	Month       string          `json:"month" validate:"required"`
	Year        int             `json:"year" validate:"required,gt=2000"`
	Fees        []string        `json:"fees"`
	ExtraLabel  string          `json:"extra_label"`
	ExtraAmount decimal.Decimal `json:"extra_amount"`
}

// BulkGenerateRequest is the input for billing a whole class for one month.
type BulkGenerateRequest struct {
	ClassID int      `json:"class_id" validate:"required,gt=0"`
	Month   string   `json:"month" validate:"required"`
	Year    int      `json:"year" validate:"required,gt=2000"`
	Fees    []string `json:"fees" validate:"required,min=1"`
}

// RecordPaymentRequest is the input for recording money received.
type RecordPaymentRequest struct {
	StudentID int             `json:"student_id" validate:"required,gt=0"`
	InvoiceID int             `json:"invoice_id" validate:"required,gt=0"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
}

// ExamRequest is the input for creating an exam.
type ExamRequest struct {
	Name string `json:"name" validate:"required"`
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// SubjectRequest is the input for creating or editing a subject.
type SubjectRequest struct {
	Name               string `json:"name" validate:"required"`
	Code               string `json:"code"`
	FullMarksTheory    int    `json:"full_marks_theory" validate:"gt=0"`
	FullMarksPractical int    `json:"full_marks_practical" validate:"min=0"`
	IsExtra            bool   `json:"is_extra"`
}

// ResultRequest is the input for saving one student's marks in a subject.
type ResultRequest struct {
	ExamID         int `json:"exam_id" validate:"required,gt=0"`
	StudentID      int `json:"student_id" validate:"required,gt=0"`
	SubjectID      int `json:"subject_id" validate:"required,gt=0"`
	TheoryMarks    int `json:"theory_marks" validate:"min=0"`
	PracticalMarks int `json:"practical_marks" validate:"min=0"`
}

// CreateUserRequest is the input for creating a staff account.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=admin accountant exam"`
}

// PasswordRequest is the input for resetting a staff password.
type PasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

// SettingsRequest is the input for updating the school letterhead.
type SettingsRequest struct {
	SchoolName    string `json:"school_name" validate:"required"`
	SchoolAddress string `json:"school_address"`
	SchoolPhone   string `json:"school_phone"`
}

// ExecuteProposalRequest round-trips a confirmed assistant proposal. The
// client echoes back exactly what InterpretRequest proposed.
type ExecuteProposalRequest struct {
	Action     string          `json:"action" validate:"required,oneof=record_payment generate_invoice"`
	StudentSID string          `json:"student_sid" validate:"required,len=6"`
	Month      string          `json:"month"`
	Year       int             `json:"year"`
	Amount     decimal.Decimal `json:"amount"`
	Fees       []string        `json:"fees"`
}
