package core

import (
	"github.com/shopspring/decimal"
)

// The invoice chain math lives here as pure functions so the repair walk can
// be exercised without a database and retried safely: services load a
// snapshot, call into this file, and persist the result in one transaction.
//
// Carry semantics: the "Previous Dues" line is present only when the carried
// balance is strictly positive, but the carried balance itself is applied to
// totalBilled with its sign. An overpaid predecessor (negative balance)
// therefore reduces the next invoice's totalBilled below the sum of its own
// charges rather than being dropped.

// ComposeLineItems builds the current-month charge list for an invoice:
// the selected catalog fees at their scheduled rates, tuition auto-injected
// when the student is enrolled in tuition and it is not already selected,
// and an optional ad-hoc extra charge. The carry line is not included; see
// ApplyCarry.
func ComposeLineItems(selected []FeeKind, fees FeeSchedule, inTuition bool, extraLabel string, extraAmount decimal.Decimal) ([]LineItem, error) {
	items := make([]LineItem, 0, len(selected)+2)
	seen := make(map[FeeKind]bool, len(selected))

	for _, kind := range selected {
		if !ValidFeeKind(kind) {
			return nil, &ValidationError{Field: "fees", Reason: "unknown fee kind " + string(kind)}
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		items = append(items, LineItem{Kind: kind, Amount: fees.Amount(kind)})
	}

	if inTuition && !seen[FeeTuition] && fees.Amount(FeeTuition).IsPositive() {
		items = append(items, LineItem{Kind: FeeTuition, Amount: fees.Amount(FeeTuition)})
	}

	if extraAmount.IsPositive() {
		if extraLabel == "" || extraLabel == PreviousDuesLabel {
			return nil, &ValidationError{Field: "extra_fee", Reason: "invalid extra fee label"}
		}
		items = append(items, LineItem{Label: extraLabel, Amount: extraAmount})
	} else if extraAmount.IsNegative() {
		return nil, &ValidationError{Field: "extra_fee", Reason: "amount must not be negative"}
	}

	return items, nil
}

// ApplyCarry takes an invoice's current-month charges (any existing carry
// line is discarded) and the balance carried from the preceding invoice,
// and returns the final line items plus totalBilled. The carry line is
// inserted at the head only when the carry is strictly positive; the carry
// amount feeds totalBilled regardless of sign.
func ApplyCarry(items []LineItem, carry decimal.Decimal) ([]LineItem, decimal.Decimal) {
	charges := make([]LineItem, 0, len(items)+1)
	total := decimal.Zero
	for _, li := range items {
		if li.IsPreviousDues() {
			continue
		}
		charges = append(charges, li)
		total = total.Add(li.Amount)
	}

	if carry.IsPositive() {
		charges = append([]LineItem{{Label: PreviousDuesLabel, Amount: carry}}, charges...)
	}
	return charges, total.Add(carry)
}

// RepairChain recomputes chain[fromIdx:] after an earlier balance changed.
// prior is the balance of the invoice immediately preceding chain[fromIdx]
// (the student's opening balance when fromIdx is 0). Each step rewrites the
// carry line, totalBilled, and balance while leaving the invoice's own
// payments untouched, then threads the new balance into the next step.
//
// The input is treated as an immutable snapshot ordered by creation time;
// the returned slice holds the recomputed suffix.
func RepairChain(chain []Invoice, fromIdx int, prior decimal.Decimal) []Invoice {
	if fromIdx < 0 {
		fromIdx = 0
	}
	repaired := make([]Invoice, 0, len(chain)-fromIdx)

	carry := prior
	for i := fromIdx; i < len(chain); i++ {
		inv := chain[i]
		inv.LineItems, inv.TotalBilled = ApplyCarry(inv.LineItems, carry)
		inv.Balance = inv.TotalBilled.Sub(inv.TotalPaid)
		repaired = append(repaired, inv)
		carry = inv.Balance
	}
	return repaired
}

// ChainViolation describes one broken link found by VerifyChain.
type ChainViolation struct {
	InvoiceID int             `json:"invoice_id"`
	Month     string          `json:"month"`
	Year      int             `json:"year"`
	Want      decimal.Decimal `json:"want"` // expected carry (predecessor balance)
	Got       decimal.Decimal `json:"got"`  // carry recorded on the invoice
}

// VerifyChain checks the ordering invariant over a full chain: every
// invoice's recorded carry must equal its predecessor's balance (the opening
// balance for the first invoice), with non-positive carries recorded as no
// line at all but still reflected in totalBilled.
func VerifyChain(chain []Invoice, opening decimal.Decimal) []ChainViolation {
	var violations []ChainViolation

	prior := opening
	for _, inv := range chain {
		want := prior
		got := inv.PreviousDues()

		ok := false
		switch {
		case want.IsPositive():
			ok = got.Equal(want) && inv.TotalBilled.Equal(inv.CurrentCharges().Add(want))
		default:
			// No carry line expected; totalBilled must still absorb the
			// signed carry.
			ok = got.IsZero() && inv.TotalBilled.Equal(inv.CurrentCharges().Add(want))
		}
		if !ok || !inv.Balance.Equal(inv.TotalBilled.Sub(inv.TotalPaid)) {
			violations = append(violations, ChainViolation{
				InvoiceID: inv.ID,
				Month:     inv.Month,
				Year:      inv.Year,
				Want:      want,
				Got:       got,
			})
		}
		prior = inv.Balance
	}
	return violations
}
