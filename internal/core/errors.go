package core

import (
	"errors"
	"fmt"
)

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Entity string // "student", "class", "invoice", ...
	Ref    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Ref)
}

// ValidationError reports rejected input before any write happened.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ConflictError reports a write refused because of the current state of the
// ledger (duplicate username, rebill of a paid invoice with rebilling
// disabled, invoice/student mismatch).
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// PartialRepairError reports an audit/repair run that stopped partway. The
// per-payment repair walk itself is transactional and can never leave this
// state; only the whole-ledger audit walk can, and it resumes from
// LastStudentID.
type PartialRepairError struct {
	LastStudentID int // last student whose chain was fully verified/repaired
	Cause         error
}

func (e *PartialRepairError) Error() string {
	return fmt.Sprintf("repair stopped after student %d: %v", e.LastStudentID, e.Cause)
}

func (e *PartialRepairError) Unwrap() error { return e.Cause }

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
