package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testSchedule() FeeSchedule {
	s := ZeroFeeSchedule()
	s[FeeMonthly] = d(1000)
	s[FeeTuition] = d(500)
	s[FeeExam] = d(300)
	return s
}

// makeInvoice builds an unpaid invoice from charges plus a signed carry.
func makeInvoice(id int, month string, carry decimal.Decimal, charges ...LineItem) Invoice {
	items, billed := ApplyCarry(charges, carry)
	return Invoice{
		ID:          id,
		StudentID:   1,
		Month:       month,
		Year:        2081,
		LineItems:   items,
		TotalBilled: billed,
		TotalPaid:   decimal.Zero,
		Balance:     billed,
		CreatedAt:   time.Now(),
	}
}

func TestComposeLineItems(t *testing.T) {
	fees := testSchedule()

	t.Run("selected fees at catalog rates", func(t *testing.T) {
		items, err := ComposeLineItems([]FeeKind{FeeMonthly, FeeExam}, fees, false, "", decimal.Zero)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, FeeMonthly, items[0].Kind)
		assert.True(t, items[0].Amount.Equal(d(1000)))
		assert.True(t, items[1].Amount.Equal(d(300)))
	})

	t.Run("tuition auto-injected for tuition students", func(t *testing.T) {
		items, err := ComposeLineItems([]FeeKind{FeeMonthly}, fees, true, "", decimal.Zero)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, FeeTuition, items[1].Kind)
		assert.True(t, items[1].Amount.Equal(d(500)))
	})

	t.Run("tuition not injected twice", func(t *testing.T) {
		items, err := ComposeLineItems([]FeeKind{FeeTuition}, fees, true, "", decimal.Zero)
		require.NoError(t, err)
		require.Len(t, items, 1)
	})

	t.Run("tuition not injected at zero rate", func(t *testing.T) {
		items, err := ComposeLineItems([]FeeKind{FeeMonthly}, ZeroFeeSchedule(), true, "", decimal.Zero)
		require.NoError(t, err)
		require.Len(t, items, 1)
	})

	t.Run("extra ad-hoc fee", func(t *testing.T) {
		items, err := ComposeLineItems([]FeeKind{FeeMonthly}, fees, false, "Medical", d(250))
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Medical", items[1].Label)
		assert.Empty(t, items[1].Kind)
	})

	t.Run("unknown fee kind rejected", func(t *testing.T) {
		_, err := ComposeLineItems([]FeeKind{"bus"}, fees, false, "", decimal.Zero)
		assert.True(t, IsValidation(err))
	})

	t.Run("extra fee cannot impersonate the carry line", func(t *testing.T) {
		_, err := ComposeLineItems(nil, fees, false, PreviousDuesLabel, d(10))
		assert.True(t, IsValidation(err))
	})

	t.Run("negative extra fee rejected", func(t *testing.T) {
		_, err := ComposeLineItems(nil, fees, false, "Medical", d(-5))
		assert.True(t, IsValidation(err))
	})

	t.Run("duplicate selections collapse", func(t *testing.T) {
		items, err := ComposeLineItems([]FeeKind{FeeMonthly, FeeMonthly}, fees, false, "", decimal.Zero)
		require.NoError(t, err)
		require.Len(t, items, 1)
	})
}

func TestApplyCarry(t *testing.T) {
	charges := []LineItem{{Kind: FeeMonthly, Amount: d(1000)}}

	t.Run("positive carry becomes head line item", func(t *testing.T) {
		items, billed := ApplyCarry(charges, d(400))
		require.Len(t, items, 2)
		assert.True(t, items[0].IsPreviousDues())
		assert.True(t, items[0].Amount.Equal(d(400)))
		assert.True(t, billed.Equal(d(1400)))
	})

	t.Run("zero carry adds nothing", func(t *testing.T) {
		items, billed := ApplyCarry(charges, decimal.Zero)
		require.Len(t, items, 1)
		assert.True(t, billed.Equal(d(1000)))
	})

	t.Run("negative carry reduces the bill without a line", func(t *testing.T) {
		items, billed := ApplyCarry(charges, d(-100))
		require.Len(t, items, 1)
		assert.True(t, billed.Equal(d(900)))
	})

	t.Run("stale carry line is replaced, not stacked", func(t *testing.T) {
		stale := append([]LineItem{{Label: PreviousDuesLabel, Amount: d(999)}}, charges...)
		items, billed := ApplyCarry(stale, d(400))
		require.Len(t, items, 2)
		assert.True(t, items[0].Amount.Equal(d(400)))
		assert.True(t, billed.Equal(d(1400)))
	})

	t.Run("idempotent for identical inputs", func(t *testing.T) {
		items1, billed1 := ApplyCarry(charges, d(400))
		items2, billed2 := ApplyCarry(items1, d(400))
		assert.Equal(t, items1, items2)
		assert.True(t, billed1.Equal(billed2))
	})
}

// The spec §8-style scenario: three sequential fully-unpaid invoices, then a
// payment clears the first and the repair ripples forward.
func TestRepairChain_Propagation(t *testing.T) {
	monthly := LineItem{Kind: FeeMonthly, Amount: d(1000)}

	a := makeInvoice(1, "Baisakh", decimal.Zero, monthly) // billed 1000
	b := makeInvoice(2, "Jestha", a.Balance, monthly)     // carry 1000, billed 2000
	c := makeInvoice(3, "Ashadh", b.Balance, monthly)     // carry 2000, billed 3000

	chain := []Invoice{a, b, c}
	require.Empty(t, VerifyChain(chain, decimal.Zero))

	// Pay A in full.
	a.TotalPaid = d(1000)
	a.Balance = decimal.Zero
	chain[0] = a

	repaired := RepairChain(chain, 1, a.Balance)
	require.Len(t, repaired, 2)

	newB, newC := repaired[0], repaired[1]
	assert.True(t, newB.PreviousDues().IsZero(), "B's carry line must be removed")
	assert.True(t, newB.TotalBilled.Equal(d(1000)))
	assert.True(t, newB.Balance.Equal(d(1000)))

	assert.True(t, newC.PreviousDues().Equal(d(1000)))
	assert.True(t, newC.TotalBilled.Equal(d(2000)))
	assert.True(t, newC.Balance.Equal(d(2000)))

	chain = append(chain[:1], repaired...)
	assert.Empty(t, VerifyChain(chain, decimal.Zero))
}

func TestRepairChain_OverpaymentPropagatesCredit(t *testing.T) {
	monthly := LineItem{Kind: FeeMonthly, Amount: d(1000)}

	a := makeInvoice(1, "Baisakh", decimal.Zero, monthly)
	b := makeInvoice(2, "Jestha", a.Balance, monthly)

	// Overpay A by 150: balance goes negative and must reduce, not vanish
	// from, B's bill.
	a.TotalPaid = d(1150)
	a.Balance = a.TotalBilled.Sub(a.TotalPaid)
	require.True(t, a.Balance.Equal(d(-150)))

	repaired := RepairChain([]Invoice{a, b}, 1, a.Balance)
	require.Len(t, repaired, 1)

	newB := repaired[0]
	assert.True(t, newB.PreviousDues().IsZero())
	assert.True(t, newB.TotalBilled.Equal(d(850)), "credit reduces the next bill")
	assert.True(t, newB.Balance.Equal(d(850)))

	assert.Empty(t, VerifyChain([]Invoice{a, newB}, decimal.Zero))
}

func TestRepairChain_PreservesPaymentsOnLaterInvoices(t *testing.T) {
	monthly := LineItem{Kind: FeeMonthly, Amount: d(1000)}

	a := makeInvoice(1, "Baisakh", decimal.Zero, monthly)
	b := makeInvoice(2, "Jestha", a.Balance, monthly)
	b.TotalPaid = d(600)
	b.Balance = b.TotalBilled.Sub(b.TotalPaid) // 1400

	a.TotalPaid = d(1000)
	a.Balance = decimal.Zero

	repaired := RepairChain([]Invoice{a, b}, 1, a.Balance)
	newB := repaired[0]
	assert.True(t, newB.TotalPaid.Equal(d(600)), "repair never touches totalPaid")
	assert.True(t, newB.TotalBilled.Equal(d(1000)))
	assert.True(t, newB.Balance.Equal(d(400)))
}

// Worked scenario from the accounting handbook: opening balance 0, monthly
// fee 1000, partial payment, next month carries the remainder.
func TestChain_MonthlyScenario(t *testing.T) {
	monthly := LineItem{Kind: FeeMonthly, Amount: d(1000)}

	baisakh := makeInvoice(1, "Baisakh", decimal.Zero, monthly)
	require.True(t, baisakh.TotalBilled.Equal(d(1000)))
	require.True(t, baisakh.Balance.Equal(d(1000)))

	// Pay 600.
	baisakh.TotalPaid = d(600)
	baisakh.Balance = baisakh.TotalBilled.Sub(baisakh.TotalPaid)
	require.True(t, baisakh.Balance.Equal(d(400)))

	jestha := makeInvoice(2, "Jestha", baisakh.Balance, monthly)
	assert.True(t, jestha.PreviousDues().Equal(d(400)))
	assert.True(t, jestha.TotalBilled.Equal(d(1400)))
	assert.True(t, jestha.Balance.Equal(d(1400)))

	// Clear Baisakh's remaining 400 out of order; Jestha must be repaired.
	baisakh.TotalPaid = d(1000)
	baisakh.Balance = decimal.Zero
	repaired := RepairChain([]Invoice{baisakh, jestha}, 1, baisakh.Balance)
	jestha = repaired[0]
	assert.True(t, jestha.PreviousDues().IsZero())
	assert.True(t, jestha.TotalBilled.Equal(d(1000)))
	assert.True(t, jestha.Balance.Equal(d(1000)))

	assert.Empty(t, VerifyChain([]Invoice{baisakh, jestha}, decimal.Zero))
}

func TestVerifyChain_FlagsBrokenLinks(t *testing.T) {
	monthly := LineItem{Kind: FeeMonthly, Amount: d(1000)}

	a := makeInvoice(1, "Baisakh", decimal.Zero, monthly)
	b := makeInvoice(2, "Jestha", d(999), monthly) // wrong carry: should be 1000

	violations := VerifyChain([]Invoice{a, b}, decimal.Zero)
	require.Len(t, violations, 1)
	assert.Equal(t, 2, violations[0].InvoiceID)
	assert.True(t, violations[0].Want.Equal(d(1000)))
	assert.True(t, violations[0].Got.Equal(d(999)))
}

func TestVerifyChain_OpeningBalanceSeedsFirstInvoice(t *testing.T) {
	monthly := LineItem{Kind: FeeMonthly, Amount: d(1000)}

	first := makeInvoice(1, "Baisakh", d(500), monthly)
	assert.Empty(t, VerifyChain([]Invoice{first}, d(500)))
	assert.NotEmpty(t, VerifyChain([]Invoice{first}, decimal.Zero))
}
