package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mhodges/ledgermatch/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// seedBankAccount creates a bank account and its GL account.
func seedBankAccount(t *testing.T, store *SQLiteStorage, name, glAccount string) {
	t.Helper()
	ctx := context.Background()

	if err := store.SaveAccount(ctx, &model.Account{
		Name:        glAccount,
		AccountType: "Bank",
		Company:     "ACME GmbH",
	}); err != nil {
		t.Fatalf("Failed to save account: %v", err)
	}
	if err := store.SaveBankAccount(ctx, &model.BankAccount{
		Name:    name,
		Account: glAccount,
		Company: "ACME GmbH",
	}); err != nil {
		t.Fatalf("Failed to save bank account: %v", err)
	}
}

// makeDeposit builds a submitted deposit transaction.
func makeDeposit(name, bankAccount string, amount float64, date time.Time) model.BankTransaction {
	return model.BankTransaction{
		Name:              name,
		Date:              date,
		Description:       "test deposit",
		Currency:          "EUR",
		BankAccount:       bankAccount,
		Company:           "ACME GmbH",
		Status:            model.StatusUnreconciled,
		Deposit:           amount,
		UnallocatedAmount: amount,
		DocStatus:         model.DocStatusSubmitted,
	}
}

// makeWithdrawal builds a submitted withdrawal transaction.
func makeWithdrawal(name, bankAccount string, amount float64, date time.Time) model.BankTransaction {
	txn := makeDeposit(name, bankAccount, amount, date)
	txn.Description = "test withdrawal"
	txn.Deposit = 0
	txn.Withdrawal = amount
	return txn
}

func TestMigrate(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("reaches expected version", func(t *testing.T) {
		version, err := store.schemaVersion(ctx)
		if err != nil {
			t.Fatalf("Failed to read schema version: %v", err)
		}
		if version != ExpectedSchemaVersion {
			t.Errorf("schema version = %d, want %d", version, ExpectedSchemaVersion)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("Second migrate failed: %v", err)
		}
	})

	t.Run("creates all voucher tables", func(t *testing.T) {
		tables := []string{
			"accounts", "bank_accounts", "bank_transactions",
			"payment_entries", "journal_entries", "journal_entry_accounts",
			"sales_invoices", "sales_invoice_payments", "purchase_invoices",
			"loan_disbursements", "loan_repayments", "allocations", "consents",
		}
		for _, table := range tables {
			var count int
			err := store.db.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
				table).Scan(&count)
			if err != nil {
				t.Fatalf("Failed to check table %s: %v", table, err)
			}
			if count != 1 {
				t.Errorf("table %s missing", table)
			}
		}
	})
}

func TestGetVoucherClaim(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	posting := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("payment entry", func(t *testing.T) {
		err := store.SavePaymentEntry(ctx, &model.PaymentEntry{
			Name:        "PE-claim",
			PaymentType: model.PaymentTypeReceive,
			PostingDate: posting,
			PaidAmount:  125.50,
			DocStatus:   model.DocStatusSubmitted,
		})
		if err != nil {
			t.Fatalf("Failed to save payment entry: %v", err)
		}

		claim, err := store.GetVoucherClaim(ctx, model.DoctypePaymentEntry, "PE-claim")
		if err != nil {
			t.Fatalf("GetVoucherClaim() error = %v", err)
		}
		if claim.PaidAmount != 125.50 {
			t.Errorf("PaidAmount = %v, want 125.50", claim.PaidAmount)
		}
		if !claim.DocStatus.IsSubmitted() {
			t.Errorf("DocStatus = %v, want submitted", claim.DocStatus)
		}
		if claim.ClearanceDate != nil {
			t.Errorf("ClearanceDate = %v, want nil", *claim.ClearanceDate)
		}
	})

	t.Run("journal entry uses largest leg", func(t *testing.T) {
		err := store.SaveJournalEntry(ctx, &model.JournalEntry{
			Name:        "JE-claim",
			PostingDate: posting,
			DocStatus:   model.DocStatusSubmitted,
		}, []model.JournalEntryAccount{
			{Parent: "JE-claim", Account: "Bank - AC", Debit: 300},
			{Parent: "JE-claim", Account: "Sales - AC", Credit: 300},
		})
		if err != nil {
			t.Fatalf("Failed to save journal entry: %v", err)
		}

		claim, err := store.GetVoucherClaim(ctx, model.DoctypeJournalEntry, "JE-claim")
		if err != nil {
			t.Fatalf("GetVoucherClaim() error = %v", err)
		}
		if claim.PaidAmount != 300 {
			t.Errorf("PaidAmount = %v, want 300", claim.PaidAmount)
		}
	})

	t.Run("sales invoice sums payment rows", func(t *testing.T) {
		err := store.SaveSalesInvoice(ctx, &model.SalesInvoice{
			Name:              "SI-claim",
			Customer:          "ACME Corp",
			PostingDate:       posting,
			GrandTotal:        200,
			OutstandingAmount: 0,
			DocStatus:         model.DocStatusSubmitted,
		}, []model.SalesInvoicePayment{
			{Parent: "SI-claim", Account: "Bank - AC", Amount: 150},
			{Parent: "SI-claim", Account: "Cash - AC", Amount: 50},
		})
		if err != nil {
			t.Fatalf("Failed to save sales invoice: %v", err)
		}

		claim, err := store.GetVoucherClaim(ctx, model.DoctypeSalesInvoice, "SI-claim")
		if err != nil {
			t.Fatalf("GetVoucherClaim() error = %v", err)
		}
		if claim.PaidAmount != 200 {
			t.Errorf("PaidAmount = %v, want 200", claim.PaidAmount)
		}
	})

	t.Run("unknown doctype", func(t *testing.T) {
		_, err := store.GetVoucherClaim(ctx, "Delivery Note", "DN-1")
		if err == nil {
			t.Fatal("expected error for unknown doctype")
		}
	})

	t.Run("missing voucher", func(t *testing.T) {
		_, err := store.GetVoucherClaim(ctx, model.DoctypePaymentEntry, "PE-missing")
		if !IsNotFound(err) {
			t.Errorf("error = %v, want not-found", err)
		}
	})
}

func TestConsents(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	expiry := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	consent := &model.Consent{
		Company:      "ACME GmbH",
		ConsentID:    "consent-1",
		ConsentToken: "token-1",
		Expiry:       expiry,
	}

	if err := store.SaveConsent(ctx, consent); err != nil {
		t.Fatalf("SaveConsent() error = %v", err)
	}

	t.Run("round trip", func(t *testing.T) {
		got, err := store.GetConsent(ctx, "ACME GmbH")
		if err != nil {
			t.Fatalf("GetConsent() error = %v", err)
		}
		if got.ConsentID != "consent-1" || got.ConsentToken != "token-1" {
			t.Errorf("got %+v", got)
		}
		if !got.Expiry.Equal(expiry) {
			t.Errorf("Expiry = %v, want %v", got.Expiry, expiry)
		}
	})

	t.Run("upsert replaces token", func(t *testing.T) {
		consent.ConsentToken = "token-2"
		if err := store.SaveConsent(ctx, consent); err != nil {
			t.Fatalf("SaveConsent() error = %v", err)
		}
		got, err := store.GetConsent(ctx, "ACME GmbH")
		if err != nil {
			t.Fatalf("GetConsent() error = %v", err)
		}
		if got.ConsentToken != "token-2" {
			t.Errorf("ConsentToken = %s, want token-2", got.ConsentToken)
		}
	})

	t.Run("missing company", func(t *testing.T) {
		_, err := store.GetConsent(ctx, "Unknown GmbH")
		if !IsNotFound(err) {
			t.Errorf("error = %v, want not-found", err)
		}
	})
}

func TestAccounts(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	seedBankAccount(t, store, "Checking - ACME Bank", "Bank - AC")

	account, err := store.GetAccount(ctx, "Bank - AC")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if account.AccountType != "Bank" {
		t.Errorf("AccountType = %s, want Bank", account.AccountType)
	}

	bankAccount, err := store.GetBankAccount(ctx, "Checking - ACME Bank")
	if err != nil {
		t.Fatalf("GetBankAccount() error = %v", err)
	}
	if bankAccount.Account != "Bank - AC" {
		t.Errorf("Account = %s, want Bank - AC", bankAccount.Account)
	}

	if _, err := store.GetBankAccount(ctx, "Savings - ACME Bank"); !IsNotFound(err) {
		t.Errorf("error = %v, want not-found", err)
	}
}

func BenchmarkSaveBankTransactions(b *testing.B) {
	tmpDir := b.TempDir()
	store, err := NewSQLiteStorage(filepath.Join(tmpDir, "bench.db"))
	if err != nil {
		b.Fatalf("Failed to create storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		b.Fatalf("Failed to migrate: %v", err)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		txn := makeDeposit(fmt.Sprintf("bench-%d", i), "Checking - ACME Bank", 100, base)
		if err := store.SaveBankTransactions(ctx, []model.BankTransaction{txn}); err != nil {
			b.Fatal(err)
		}
	}
}
