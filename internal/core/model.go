package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeKind is the closed set of catalog fees a class can charge.
type FeeKind string

const (
	FeeRegistration FeeKind = "registration"
	FeeMonthly      FeeKind = "monthly"
	FeeExam         FeeKind = "exam"
	FeeSports       FeeKind = "sports"
	FeeMusic        FeeKind = "music"
	FeeMedical      FeeKind = "medical"
	FeeTuition      FeeKind = "tuition"
	FeeStationery   FeeKind = "stationery"
	FeeTieBelt      FeeKind = "tieBelt"
)

// FeeKinds lists every catalog fee kind in display order.
var FeeKinds = []FeeKind{
	FeeRegistration, FeeMonthly, FeeExam, FeeSports, FeeMusic,
	FeeMedical, FeeTuition, FeeStationery, FeeTieBelt,
}

// ValidFeeKind reports whether k is a member of the closed catalog set.
func ValidFeeKind(k FeeKind) bool {
	for _, fk := range FeeKinds {
		if fk == k {
			return true
		}
	}
	return false
}

// FeeSchedule maps each fee kind to its scheduled amount for a class.
// Absent kinds are treated as zero.
type FeeSchedule map[FeeKind]decimal.Decimal

// Amount returns the scheduled amount for kind, zero if unset.
func (s FeeSchedule) Amount(kind FeeKind) decimal.Decimal {
	if s == nil {
		return decimal.Zero
	}
	return s[kind]
}

// ZeroFeeSchedule returns a schedule with every catalog kind set to zero,
// the state a freshly created class starts in.
func ZeroFeeSchedule() FeeSchedule {
	s := make(FeeSchedule, len(FeeKinds))
	for _, k := range FeeKinds {
		s[k] = decimal.Zero
	}
	return s
}

// Months of the Bikram Sambat calendar, in fiscal order starting at Baisakh.
// Used for input validation and display; invoice chains are ordered by
// creation time, not by month.
var Months = []string{
	"Baisakh", "Jestha", "Ashadh", "Shrawan", "Bhadra", "Ashwin",
	"Kartik", "Mangsir", "Poush", "Magh", "Falgun", "Chaitra",
}

// ValidMonth reports whether m is one of the twelve BS month names.
func ValidMonth(m string) bool {
	for _, name := range Months {
		if name == m {
			return true
		}
	}
	return false
}

type Class struct {
	ID      int         `json:"id"`
	Name    string      `json:"name"`
	Section string      `json:"section"`
	Fees    FeeSchedule `json:"fees"`
}

type Student struct {
	ID             int             `json:"id"`
	SID            string          `json:"sid"` // public 6-digit student number
	Name           string          `json:"name"`
	RollNumber     int             `json:"roll_number"`
	ClassID        int             `json:"class_id"`
	Address        string          `json:"address,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	InTuition      bool            `json:"in_tuition"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PreviousDuesLabel is the reserved label of the synthetic line item that
// carries the prior period's unpaid balance. It is always the first line
// item when present.
const PreviousDuesLabel = "Previous Dues"

// LineItem is one charge on an invoice. Exactly one of Kind and Label is
// set: Kind for catalog fees, Label for ad-hoc charges (the extra fee and
// the reserved "Previous Dues" carry).
type LineItem struct {
	Kind   FeeKind         `json:"kind,omitempty"`
	Label  string          `json:"label,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

// IsPreviousDues reports whether this is the synthetic carry line.
func (li LineItem) IsPreviousDues() bool { return li.Label == PreviousDuesLabel }

// Description is what a bill renderer prints for the line.
func (li LineItem) Description() string {
	if li.Label != "" {
		return li.Label
	}
	return string(li.Kind)
}

// Payment is an immutable record of money received against one invoice.
type Payment struct {
	ID        int             `json:"id"`
	InvoiceID int             `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
}

// Invoice is one student's bill for one (month, year) pair. (StudentID,
// Month, Year) is the natural key; ID is the storage surrogate. CreatedAt
// orders the student's chain.
type Invoice struct {
	ID          int             `json:"id"`
	StudentID   int             `json:"student_id"`
	ClassID     int             `json:"class_id"`
	Month       string          `json:"month"`
	Year        int             `json:"year"`
	LineItems   []LineItem      `json:"line_items"`
	TotalBilled decimal.Decimal `json:"total_billed"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	Balance     decimal.Decimal `json:"balance"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PreviousDues returns the carry amount on this invoice, zero when absent.
func (inv *Invoice) PreviousDues() decimal.Decimal {
	for _, li := range inv.LineItems {
		if li.IsPreviousDues() {
			return li.Amount
		}
	}
	return decimal.Zero
}

// CurrentCharges is the sum of all non-carry line items.
func (inv *Invoice) CurrentCharges() decimal.Decimal {
	total := decimal.Zero
	for _, li := range inv.LineItems {
		if !li.IsPreviousDues() {
			total = total.Add(li.Amount)
		}
	}
	return total
}

// FeeStatus classifies an outstanding balance for dashboards.
type FeeStatus string

const (
	StatusPaid     FeeStatus = "Paid"
	StatusPartial  FeeStatus = "Partial"
	StatusUnpaid   FeeStatus = "Unpaid"
	StatusOverpaid FeeStatus = "Overpaid"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleExam       Role = "exam"
)

// ValidRole reports whether r is a known staff role.
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleAccountant || r == RoleExam
}

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// SchoolSettings is the singleton letterhead block printed on every document.
type SchoolSettings struct {
	SchoolName    string `json:"school_name,omitempty"`
	SchoolAddress string `json:"school_address,omitempty"`
	SchoolPhone   string `json:"school_phone,omitempty"`
}

type Exam struct {
	ID   int       `json:"id"`
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

type Subject struct {
	ID                 int    `json:"id"`
	ClassID            int    `json:"class_id"`
	Name               string `json:"name"`
	Code               string `json:"code,omitempty"`
	FullMarksTheory    int    `json:"full_marks_theory"`
	FullMarksPractical int    `json:"full_marks_practical"`
	IsExtra            bool   `json:"is_extra"`
}

type Result struct {
	ID             int `json:"id"`
	ExamID         int `json:"exam_id"`
	StudentID      int `json:"student_id"`
	SubjectID      int `json:"subject_id"`
	TheoryMarks    int `json:"theory_marks"`
	PracticalMarks int `json:"practical_marks"`
}
