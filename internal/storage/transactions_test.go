package storage

import (
	"context"
	"testing"
	"time"

	"github.com/mhodges/ledgermatch/internal/model"
	"github.com/mhodges/ledgermatch/internal/service"
)

func TestSaveBankTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	date := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("save and read back", func(t *testing.T) {
		txn := makeDeposit("txn-1", "Checking - ACME Bank", 250.75, date)
		txn.ReferenceNumber = "REF-001"

		if err := store.SaveBankTransactions(ctx, []model.BankTransaction{txn}); err != nil {
			t.Fatalf("SaveBankTransactions() error = %v", err)
		}

		got, err := store.GetBankTransaction(ctx, "txn-1")
		if err != nil {
			t.Fatalf("GetBankTransaction() error = %v", err)
		}
		if got.Deposit != 250.75 || got.UnallocatedAmount != 250.75 {
			t.Errorf("amounts = %v/%v, want 250.75", got.Deposit, got.UnallocatedAmount)
		}
		if got.ReferenceNumber != "REF-001" {
			t.Errorf("ReferenceNumber = %s, want REF-001", got.ReferenceNumber)
		}
		if got.Status != model.StatusUnreconciled {
			t.Errorf("Status = %s, want Unreconciled", got.Status)
		}
	})

	t.Run("reimport does not clobber allocation state", func(t *testing.T) {
		// Simulate partial reconciliation, then reimport the same line.
		if _, err := store.db.ExecContext(ctx,
			`UPDATE bank_transactions SET unallocated_amount = 100 WHERE name = 'txn-1'`); err != nil {
			t.Fatalf("Failed to update: %v", err)
		}

		txn := makeDeposit("txn-1", "Checking - ACME Bank", 250.75, date)
		if err := store.SaveBankTransactions(ctx, []model.BankTransaction{txn}); err != nil {
			t.Fatalf("SaveBankTransactions() error = %v", err)
		}

		got, err := store.GetBankTransaction(ctx, "txn-1")
		if err != nil {
			t.Fatalf("GetBankTransaction() error = %v", err)
		}
		if got.UnallocatedAmount != 100 {
			t.Errorf("UnallocatedAmount = %v, want 100 (import must not overwrite)", got.UnallocatedAmount)
		}
	})

	t.Run("rejects both sides set", func(t *testing.T) {
		bad := makeDeposit("txn-bad", "Checking - ACME Bank", 10, date)
		bad.Withdrawal = 10
		if err := store.SaveBankTransactions(ctx, []model.BankTransaction{bad}); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("missing transaction", func(t *testing.T) {
		if _, err := store.GetBankTransaction(ctx, "txn-nope"); !IsNotFound(err) {
			t.Errorf("error = %v, want not-found", err)
		}
	})
}

func TestGetUnreconciledTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	jan := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	reconciled := makeDeposit("txn-done", "Checking - ACME Bank", 50, jan)
	reconciled.UnallocatedAmount = 0
	reconciled.Status = model.StatusReconciled

	draft := makeDeposit("txn-draft", "Checking - ACME Bank", 75, feb)
	draft.DocStatus = model.DocStatusDraft

	other := makeDeposit("txn-other", "Savings - ACME Bank", 60, feb)

	transactions := []model.BankTransaction{
		makeDeposit("txn-mar", "Checking - ACME Bank", 30, mar),
		makeDeposit("txn-jan", "Checking - ACME Bank", 10, jan),
		makeWithdrawal("txn-feb", "Checking - ACME Bank", 20, feb),
		reconciled,
		draft,
		other,
	}
	if err := store.SaveBankTransactions(ctx, transactions); err != nil {
		t.Fatalf("SaveBankTransactions() error = %v", err)
	}

	t.Run("filters and orders by date", func(t *testing.T) {
		got, err := store.GetUnreconciledTransactions(ctx, service.TransactionFilter{
			BankAccount: "Checking - ACME Bank",
		})
		if err != nil {
			t.Fatalf("GetUnreconciledTransactions() error = %v", err)
		}

		want := []string{"txn-jan", "txn-feb", "txn-mar"}
		if len(got) != len(want) {
			t.Fatalf("got %d transactions, want %d", len(got), len(want))
		}
		for i, name := range want {
			if got[i].Name != name {
				t.Errorf("got[%d] = %s, want %s", i, got[i].Name, name)
			}
		}
	})

	t.Run("date bounds", func(t *testing.T) {
		got, err := store.GetUnreconciledTransactions(ctx, service.TransactionFilter{
			BankAccount: "Checking - ACME Bank",
			FromDate:    &feb,
			ToDate:      &feb,
		})
		if err != nil {
			t.Fatalf("GetUnreconciledTransactions() error = %v", err)
		}
		if len(got) != 1 || got[0].Name != "txn-feb" {
			t.Errorf("got %v, want only txn-feb", got)
		}
	})

	t.Run("empty result is non-nil", func(t *testing.T) {
		got, err := store.GetUnreconciledTransactions(ctx, service.TransactionFilter{
			BankAccount: "Nonexistent - Bank",
		})
		if err != nil {
			t.Fatalf("GetUnreconciledTransactions() error = %v", err)
		}
		if got == nil {
			t.Error("result is nil, want empty slice")
		}
		if len(got) != 0 {
			t.Errorf("got %d transactions, want 0", len(got))
		}
	})
}
