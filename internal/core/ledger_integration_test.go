package core_test

import (
	"context"
	"os"
	"testing"

	"school-office/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE results, payments, invoices, subjects, exams, students, classes, settings, users RESTART IDENTITY CASCADE;

		INSERT INTO settings (key, data) VALUES ('school', '{"school_name": "Test Academy"}');

		INSERT INTO classes (id, name, section, fees) VALUES
		(1, 'Five', 'A', '{"monthly": "1000", "exam": "300", "tuition": "500", "sports": "150"}');

		INSERT INTO students (id, sid, name, roll_number, class_id, opening_balance, in_tuition) VALUES
		(1, '100001', 'Anju Karki', 1, 1, 0, false),
		(2, '100002', 'Bikash Thapa', 2, 1, 250, false),
		(3, '100003', 'Chandra Rai', 3, 1, 0, true);

		SELECT setval('classes_id_seq', 10);
		SELECT setval('students_id_seq', 10);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func mustGenerate(t *testing.T, svc *core.InvoiceService, input core.GenerateInput) *core.Invoice {
	t.Helper()
	inv, err := svc.GenerateOrUpdateInvoice(context.Background(), input)
	if err != nil {
		t.Fatalf("GenerateOrUpdateInvoice(%s %d) failed: %v", input.Month, input.Year, err)
	}
	return inv
}

func TestInvoice_FirstInvoiceHasNoCarry(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	invoices := core.NewInvoiceService(pool)
	inv := mustGenerate(t, invoices, core.GenerateInput{
		StudentID:    1,
		ClassID:      1,
		Month:        "Baisakh",
		Year:         2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly},
	})

	if !inv.TotalBilled.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("totalBilled = %s, want 1000", inv.TotalBilled)
	}
	if !inv.PreviousDues().IsZero() {
		t.Errorf("first invoice carries previous dues %s, want none", inv.PreviousDues())
	}
	if !inv.Balance.Equal(inv.TotalBilled) {
		t.Errorf("balance = %s, want %s", inv.Balance, inv.TotalBilled)
	}
}

func TestInvoice_OpeningBalanceSeedsFirstInvoice(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	invoices := core.NewInvoiceService(pool)
	inv := mustGenerate(t, invoices, core.GenerateInput{
		StudentID:    2,
		ClassID:      1,
		Month:        "Baisakh",
		Year:         2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly},
	})

	if !inv.PreviousDues().Equal(decimal.NewFromInt(250)) {
		t.Errorf("previous dues = %s, want 250 from opening balance", inv.PreviousDues())
	}
	if !inv.TotalBilled.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("totalBilled = %s, want 1250", inv.TotalBilled)
	}
}

func TestInvoice_TuitionAutoApplied(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	invoices := core.NewInvoiceService(pool)
	inv := mustGenerate(t, invoices, core.GenerateInput{
		StudentID:    3,
		ClassID:      1,
		Month:        "Baisakh",
		Year:         2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly},
	})

	// 1000 monthly + 500 tuition injected for enrolled students.
	if !inv.TotalBilled.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("totalBilled = %s, want 1500 with tuition", inv.TotalBilled)
	}
}

func TestInvoice_CarryPropagatesAcrossMonths(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	invoices := core.NewInvoiceService(pool)
	payments := core.NewPaymentService(pool)

	baisakh := mustGenerate(t, invoices, core.GenerateInput{
		StudentID: 1, ClassID: 1, Month: "Baisakh", Year: 2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly},
	})

	if _, err := payments.AddPayment(ctx, 1, baisakh.ID, decimal.NewFromInt(600)); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	jestha := mustGenerate(t, invoices, core.GenerateInput{
		StudentID: 1, ClassID: 1, Month: "Jestha", Year: 2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly},
	})

	if !jestha.PreviousDues().Equal(decimal.NewFromInt(400)) {
		t.Errorf("Jestha previous dues = %s, want 400", jestha.PreviousDues())
	}
	if !jestha.TotalBilled.Equal(decimal.NewFromInt(1400)) {
		t.Errorf("Jestha totalBilled = %s, want 1400", jestha.TotalBilled)
	}
}

func TestPayment_RepairsDownstreamInvoices(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	invoices := core.NewInvoiceService(pool)
	payments := core.NewPaymentService(pool)

	baisakh := mustGenerate(t, invoices, core.GenerateInput{
		StudentID: 1, ClassID: 1, Month: "Baisakh", Year: 2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly},
	})
	mustGenerate(t, invoices, core.GenerateInput{
		StudentID: 1, ClassID: 1, Month: "Jestha", Year: 2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly},
	})

	// Settle Baisakh in full. Jestha was issued with a 1000 carry that no
	// longer exists, so the repair must rewrite it.
	if _, err := payments.AddPayment(ctx, 1, baisakh.ID, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	jestha, err := invoices.GetInvoiceForMonth(ctx, 1, "Jestha", 2081)
	if err != nil {
		t.Fatalf("GetInvoiceForMonth failed: %v", err)
	}
	if !jestha.PreviousDues().IsZero() {
		t.Errorf("Jestha previous dues after repair = %s, want 0", jestha.PreviousDues())
	}
	if !jestha.TotalBilled.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Jestha totalBilled after repair = %s, want 1000", jestha.TotalBilled)
	}
	if !jestha.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Jestha balance after repair = %s, want 1000", jestha.Balance)
	}
}

func TestPayment_OverpaymentCarriesCreditForward(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	invoices := core.NewInvoiceService(pool)
	payments := core.NewPaymentService(pool)

	baisakh := mustGenerate(t, invoices, core.GenerateInput{
		StudentID: 1, ClassID: 1, Month: "Baisakh", Year: 2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly},
	})

	if _, err := payments.AddPayment(ctx, 1, baisakh.ID, decimal.NewFromInt(1150)); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	jestha := mustGenerate(t, invoices, core.GenerateInput{
		StudentID: 1, ClassID: 1, Month: "Jestha", Year: 2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly},
	})

	// The 150 credit reduces the bill but never appears as a line item.
	if !jestha.PreviousDues().IsZero() {
		t.Errorf("credit must not surface as a previous dues line, got %s", jestha.PreviousDues())
	}
	if !jestha.TotalBilled.Equal(decimal.NewFromInt(850)) {
		t.Errorf("Jestha totalBilled = %s, want 850 after credit", jestha.TotalBilled)
	}
}

func TestInvoice_RegenerationPreservesPayments(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	invoices := core.NewInvoiceService(pool)
	payments := core.NewPaymentService(pool)

	baisakh := mustGenerate(t, invoices, core.GenerateInput{
		StudentID: 1, ClassID: 1, Month: "Baisakh", Year: 2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly},
	})
	if _, err := payments.AddPayment(ctx, 1, baisakh.ID, decimal.NewFromInt(400)); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	// Rebill the same month with the exam fee added.
	rebilled := mustGenerate(t, invoices, core.GenerateInput{
		StudentID: 1, ClassID: 1, Month: "Baisakh", Year: 2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly, core.FeeExam},
	})

	if rebilled.ID != baisakh.ID {
		t.Errorf("rebill created a new invoice %d, want update of %d", rebilled.ID, baisakh.ID)
	}
	if !rebilled.TotalPaid.Equal(decimal.NewFromInt(400)) {
		t.Errorf("totalPaid = %s, want 400 preserved", rebilled.TotalPaid)
	}
	if !rebilled.TotalBilled.Equal(decimal.NewFromInt(1300)) {
		t.Errorf("totalBilled = %s, want 1300", rebilled.TotalBilled)
	}
	if !rebilled.Balance.Equal(decimal.NewFromInt(900)) {
		t.Errorf("balance = %s, want 900", rebilled.Balance)
	}
}

func TestInvoice_RebillBlockedAfterPaymentWhenDisabled(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	invoices := core.NewInvoiceService(pool)
	invoices.AllowRebillAfterPayment = false
	payments := core.NewPaymentService(pool)

	baisakh := mustGenerate(t, invoices, core.GenerateInput{
		StudentID: 1, ClassID: 1, Month: "Baisakh", Year: 2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly},
	})
	if _, err := payments.AddPayment(ctx, 1, baisakh.ID, decimal.NewFromInt(400)); err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	_, err := invoices.GenerateOrUpdateInvoice(ctx, core.GenerateInput{
		StudentID: 1, ClassID: 1, Month: "Baisakh", Year: 2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly, core.FeeExam},
	})
	if !core.IsConflict(err) {
		t.Fatalf("expected conflict on rebill of a paid invoice, got %v", err)
	}
}

func TestBulkGenerate_CreatesAndUpdates(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	invoices := core.NewInvoiceService(pool)

	// Student 1 already has a Baisakh invoice; the bulk run should update
	// it and create fresh ones for students 2 and 3.
	mustGenerate(t, invoices, core.GenerateInput{
		StudentID: 1, ClassID: 1, Month: "Baisakh", Year: 2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly},
	})

	result, err := invoices.BulkGenerate(ctx, 1, "Baisakh", 2081, []core.FeeKind{core.FeeMonthly})
	if err != nil {
		t.Fatalf("BulkGenerate failed: %v", err)
	}

	if result.Created != 2 {
		t.Errorf("created = %d, want 2", result.Created)
	}
	if result.Updated != 1 {
		t.Errorf("updated = %d, want 1", result.Updated)
	}
	if len(result.Failures) != 0 {
		t.Errorf("failures = %v, want none", result.Failures)
	}

	exists, err := invoices.InvoicesExistForMonth(ctx, 1, "Baisakh", 2081)
	if err != nil {
		t.Fatalf("InvoicesExistForMonth failed: %v", err)
	}
	if !exists {
		t.Error("InvoicesExistForMonth = false after bulk run")
	}
}

func TestPayment_ReceiptReconstructsBalanceBefore(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	invoices := core.NewInvoiceService(pool)
	payments := core.NewPaymentService(pool)
	documents := core.NewDocumentService(pool)

	baisakh := mustGenerate(t, invoices, core.GenerateInput{
		StudentID: 1, ClassID: 1, Month: "Baisakh", Year: 2081,
		SelectedFees: []core.FeeKind{core.FeeMonthly},
	})
	payment, err := payments.AddPayment(ctx, 1, baisakh.ID, decimal.NewFromInt(600))
	if err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}

	bundle, err := documents.GetReceiptBundle(ctx, payment.ID)
	if err != nil {
		t.Fatalf("GetReceiptBundle failed: %v", err)
	}
	if bundle.ReceiptNo == "" {
		t.Error("receipt number is empty")
	}
	if !bundle.BalanceBefore.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balanceBefore = %s, want 1000", bundle.BalanceBefore)
	}
	if bundle.School.SchoolName != "Test Academy" {
		t.Errorf("school name = %q, want seed value", bundle.School.SchoolName)
	}
}
