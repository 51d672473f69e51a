// Package service defines the interfaces shared across the application.
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/mhodges/ledgermatch/internal/model"
)

// TransactionFilter bounds a bank-transaction query. Nil dates mean
// unbounded on that side.
type TransactionFilter struct {
	FromDate    *time.Time
	ToDate      *time.Time
	BankAccount string
}

// Querier runs read queries. *sql.DB and *sql.Tx both satisfy it; the
// matching engine only ever needs this much of the database.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Storage is the persistence contract for the reconciliation engine.
type Storage interface {
	// Bank transaction operations.
	SaveBankTransactions(ctx context.Context, transactions []model.BankTransaction) error
	GetBankTransaction(ctx context.Context, name string) (*model.BankTransaction, error)
	GetUnreconciledTransactions(ctx context.Context, filter TransactionFilter) ([]model.BankTransaction, error)

	// Chart-of-accounts lookups.
	GetBankAccount(ctx context.Context, name string) (*model.BankAccount, error)
	GetAccount(ctx context.Context, name string) (*model.Account, error)

	// Voucher operations.
	SavePaymentEntry(ctx context.Context, entry *model.PaymentEntry) error
	SaveJournalEntry(ctx context.Context, entry *model.JournalEntry, accounts []model.JournalEntryAccount) error
	GetVoucherClaim(ctx context.Context, doctype, name string) (*model.VoucherClaim, error)

	// Allocation bookkeeping. ReconcileVouchers applies the voucher list to
	// the transaction atomically and returns its post-application state.
	GetAllocationTotals(ctx context.Context, doctype, name string) ([]model.AllocationTotal, error)
	ReconcileVouchers(ctx context.Context, transactionName string, vouchers []model.VoucherRef) (*model.BankTransaction, error)

	// Consent storage for the open-banking connector.
	SaveConsent(ctx context.Context, consent *model.Consent) error
	GetConsent(ctx context.Context, company string) (*model.Consent, error)

	// Database management.
	Querier() Querier
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for transient failures.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
