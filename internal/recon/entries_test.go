package recon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhodges/ledgermatch/internal/common"
	"github.com/mhodges/ledgermatch/internal/model"
	"github.com/mhodges/ledgermatch/internal/storage"
)

func seedEntryAccounts(t *testing.T, store *storage.SQLiteStorage) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, &model.Account{
		Name: "Debtors - AC", AccountType: model.AccountTypeReceivable, Company: testCompany,
	}))
	require.NoError(t, store.SaveAccount(ctx, &model.Account{
		Name: "Creditors - AC", AccountType: model.AccountTypePayable, Company: testCompany,
	}))
}

func TestCreatePaymentEntry(t *testing.T) {
	svc, store := newTestService(t)
	seedEntryAccounts(t, store)
	ctx := context.Background()

	txn := testDeposit("txn-pe", 100, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.SaveBankTransactions(ctx, []model.BankTransaction{txn}))

	t.Run("submit and reconcile", func(t *testing.T) {
		name, updated, err := svc.CreatePaymentEntry(ctx, EntryRequest{
			TransactionName: "txn-pe",
			PartyType:       "Customer",
			Party:           "ACME Corp",
			SecondAccount:   "Debtors - AC",
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.NotEmpty(t, name)
		assert.Equal(t, model.StatusReconciled, updated.Status)
		assert.Equal(t, 0.0, updated.UnallocatedAmount)

		claim, err := store.GetVoucherClaim(ctx, model.DoctypePaymentEntry, name)
		require.NoError(t, err)
		assert.Equal(t, 100.0, claim.PaidAmount)
		assert.True(t, claim.DocStatus.IsSubmitted())
		assert.NotNil(t, claim.ClearanceDate)
	})

	t.Run("missing party", func(t *testing.T) {
		txn := testDeposit("txn-pe2", 50, time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC))
		require.NoError(t, store.SaveBankTransactions(ctx, []model.BankTransaction{txn}))

		_, _, err := svc.CreatePaymentEntry(ctx, EntryRequest{
			TransactionName: "txn-pe2",
			SecondAccount:   "Debtors - AC",
		})
		var userErr *common.UserError
		require.ErrorAs(t, err, &userErr)
	})

	t.Run("wrong account type for direction", func(t *testing.T) {
		_, _, err := svc.CreatePaymentEntry(ctx, EntryRequest{
			TransactionName: "txn-pe2",
			PartyType:       "Customer",
			Party:           "ACME Corp",
			SecondAccount:   "Creditors - AC",
		})
		var userErr *common.UserError
		require.ErrorAs(t, err, &userErr)
	})

	t.Run("draft leaves transaction untouched", func(t *testing.T) {
		name, updated, err := svc.CreatePaymentEntry(ctx, EntryRequest{
			TransactionName: "txn-pe2",
			PartyType:       "Customer",
			Party:           "ACME Corp",
			SecondAccount:   "Debtors - AC",
			AllowEdit:       true,
		})
		require.NoError(t, err)
		assert.Nil(t, updated)

		claim, err := store.GetVoucherClaim(ctx, model.DoctypePaymentEntry, name)
		require.NoError(t, err)
		assert.False(t, claim.DocStatus.IsSubmitted())

		got, err := store.GetBankTransaction(ctx, "txn-pe2")
		require.NoError(t, err)
		assert.Equal(t, 50.0, got.UnallocatedAmount)
	})
}

func TestCreateJournalEntry(t *testing.T) {
	svc, store := newTestService(t)
	seedEntryAccounts(t, store)
	ctx := context.Background()

	require.NoError(t, store.SaveAccount(ctx, &model.Account{
		Name: "Bank Charges - AC", AccountType: "Expense", Company: testCompany,
	}))

	txn := testDeposit("txn-je", 75, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.SaveBankTransactions(ctx, []model.BankTransaction{txn}))

	t.Run("submit and reconcile", func(t *testing.T) {
		name, updated, err := svc.CreateJournalEntry(ctx, EntryRequest{
			TransactionName: "txn-je",
			SecondAccount:   "Debtors - AC",
			PartyType:       "Customer",
			Party:           "ACME Corp",
			EntryType:       "Bank Entry",
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, model.StatusReconciled, updated.Status)

		// The bank leg carries the transaction amount.
		claim, err := store.GetVoucherClaim(ctx, model.DoctypeJournalEntry, name)
		require.NoError(t, err)
		assert.Equal(t, 75.0, claim.PaidAmount)
		assert.NotNil(t, claim.ClearanceDate)
	})

	t.Run("missing second account", func(t *testing.T) {
		txn := testDeposit("txn-je2", 20, time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC))
		require.NoError(t, store.SaveBankTransactions(ctx, []model.BankTransaction{txn}))

		_, _, err := svc.CreateJournalEntry(ctx, EntryRequest{
			TransactionName: "txn-je2",
		})
		var userErr *common.UserError
		require.ErrorAs(t, err, &userErr)
	})

	t.Run("unknown second account", func(t *testing.T) {
		_, _, err := svc.CreateJournalEntry(ctx, EntryRequest{
			TransactionName: "txn-je2",
			SecondAccount:   "Nonexistent - AC",
		})
		assert.Error(t, err)
	})

	t.Run("missing party on receivable account", func(t *testing.T) {
		_, _, err := svc.CreateJournalEntry(ctx, EntryRequest{
			TransactionName: "txn-je2",
			SecondAccount:   "Debtors - AC",
		})
		var userErr *common.UserError
		require.ErrorAs(t, err, &userErr)

		got, err := store.GetBankTransaction(ctx, "txn-je2")
		require.NoError(t, err)
		assert.Equal(t, 20.0, got.UnallocatedAmount)
	})

	t.Run("missing party on payable account", func(t *testing.T) {
		withdrawal := model.BankTransaction{
			Name: "txn-je3", Date: time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
			Currency: "EUR", BankAccount: testBankAccount, Company: testCompany,
			Status: model.StatusUnreconciled, Withdrawal: 30, UnallocatedAmount: 30,
			DocStatus: model.DocStatusSubmitted,
		}
		require.NoError(t, store.SaveBankTransactions(ctx, []model.BankTransaction{withdrawal}))

		_, _, err := svc.CreateJournalEntry(ctx, EntryRequest{
			TransactionName: "txn-je3",
			SecondAccount:   "Creditors - AC",
		})
		var userErr *common.UserError
		require.ErrorAs(t, err, &userErr)
	})

	t.Run("expense account needs no party", func(t *testing.T) {
		name, updated, err := svc.CreateJournalEntry(ctx, EntryRequest{
			TransactionName: "txn-je2",
			SecondAccount:   "Bank Charges - AC",
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.NotEmpty(t, name)
		assert.Equal(t, model.StatusReconciled, updated.Status)
	})

	t.Run("refuses reconciled transaction", func(t *testing.T) {
		_, _, err := svc.CreateJournalEntry(ctx, EntryRequest{
			TransactionName: "txn-je",
			SecondAccount:   "Debtors - AC",
		})
		var userErr *common.UserError
		require.ErrorAs(t, err, &userErr)
	})
}
