package app

import (
	"school-office/internal/ai"
	"school-office/internal/core"
)

// StudentLedgerResult is returned by GetStudentLedger.
type StudentLedgerResult struct {
	Student  core.Student   `json:"student"`
	Class    *core.Class    `json:"class,omitempty"`
	Invoices []core.Invoice `json:"invoices"`
	Payments []core.Payment `json:"payments"`
}

// AssistantResult is returned by InterpretRequest.
type AssistantResult struct {
	Proposal        *ai.Proposal `json:"proposal,omitempty"`
	IsClarification bool         `json:"is_clarification"`
	Question        string       `json:"question,omitempty"`
}

// ExecuteProposalResult is returned by ExecuteProposal. Exactly one of
// Invoice and Payment is set, depending on the confirmed action.
type ExecuteProposalResult struct {
	Invoice *core.Invoice `json:"invoice,omitempty"`
	Payment *core.Payment `json:"payment,omitempty"`
}
