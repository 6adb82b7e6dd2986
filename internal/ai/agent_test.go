package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProposalValidate(t *testing.T) {
	cases := []struct {
		name     string
		proposal Proposal
		ok       bool
	}{
		{
			name:     "valid payment",
			proposal: Proposal{Action: ActionRecordPayment, StudentSID: "100001", Amount: "1500.00"},
			ok:       true,
		},
		{
			name:     "payment with zero amount",
			proposal: Proposal{Action: ActionRecordPayment, StudentSID: "100001", Amount: "0"},
			ok:       false,
		},
		{
			name:     "payment with garbage amount",
			proposal: Proposal{Action: ActionRecordPayment, StudentSID: "100001", Amount: "around 500"},
			ok:       false,
		},
		{
			name:     "payment without student",
			proposal: Proposal{Action: ActionRecordPayment, Amount: "500.00"},
			ok:       false,
		},
		{
			name: "valid invoice",
			proposal: Proposal{
				Action: ActionGenerateInvoice, StudentSID: "100001",
				Month: "Baisakh", Year: 2081, Fees: []string{"monthly", "exam"},
			},
			ok: true,
		},
		{
			name: "invoice with bogus month",
			proposal: Proposal{
				Action: ActionGenerateInvoice, StudentSID: "100001",
				Month: "January", Year: 2081, Fees: []string{"monthly"},
			},
			ok: false,
		},
		{
			name: "invoice with unknown fee kind",
			proposal: Proposal{
				Action: ActionGenerateInvoice, StudentSID: "100001",
				Month: "Baisakh", Year: 2081, Fees: []string{"hostel"},
			},
			ok: false,
		},
		{
			name:     "clarify with question",
			proposal: Proposal{Action: ActionClarify, Question: "Which Bikash, 100002 or 100007?"},
			ok:       true,
		},
		{
			name:     "clarify without question",
			proposal: Proposal{Action: ActionClarify},
			ok:       false,
		},
		{
			name:     "unknown action",
			proposal: Proposal{Action: "delete_student"},
			ok:       false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.proposal.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestProposalNormalize(t *testing.T) {
	p := Proposal{
		Action:     " record_payment ",
		StudentSID: " 100001\n",
		Amount:     " 1500.00 ",
		Fees:       []string{" monthly "},
	}
	p.Normalize()
	assert.Equal(t, ActionRecordPayment, p.Action)
	assert.Equal(t, "100001", p.StudentSID)
	assert.Equal(t, "1500.00", p.Amount)
	assert.Equal(t, []string{"monthly"}, p.Fees)
}
