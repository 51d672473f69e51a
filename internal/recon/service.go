// Package recon ties the matching engine to storage: it finds linked
// payments for a transaction, adjusts them for prior allocations, applies
// reconciliations, and drives unattended batch runs.
package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/mhodges/ledgermatch/internal/matcher"
	"github.com/mhodges/ledgermatch/internal/model"
	"github.com/mhodges/ledgermatch/internal/service"
)

// LinkedPaymentOptions controls a linked-payments search. DocumentTypes
// uses the matcher's request keys; an empty list searches nothing.
type LinkedPaymentOptions struct {
	FromDate          *time.Time
	ToDate            *time.Time
	FromReferenceDate *time.Time
	ToReferenceDate   *time.Time
	DocumentTypes     []string
	FilterByReference bool
	StrictReference   bool
}

// Service exposes the reconciliation workflows over a storage backend and
// a matcher.
type Service struct {
	storage service.Storage
	matcher *matcher.Matcher
}

// NewService creates a reconciliation service.
func NewService(storage service.Storage, m *matcher.Matcher) *Service {
	return &Service{storage: storage, matcher: m}
}

// GetBankTransactions lists submitted transactions with unallocated amounts
// for a bank account, oldest first.
func (s *Service) GetBankTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.BankTransaction, error) {
	return s.storage.GetUnreconciledTransactions(ctx, filter)
}

// GetLinkedPayments finds ranked candidate vouchers for a transaction,
// with each candidate's amount reduced by what previous reconciliations
// already consumed.
func (s *Service) GetLinkedPayments(ctx context.Context, transactionName string, opts LinkedPaymentOptions) ([]model.MatchCandidate, error) {
	txn, err := s.storage.GetBankTransaction(ctx, transactionName)
	if err != nil {
		return nil, err
	}

	bankAccount, err := s.storage.GetBankAccount(ctx, txn.BankAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bank account for %s: %w", transactionName, err)
	}

	mc := matcher.NewContext(*txn, bankAccount.Account, bankAccount.Company, opts.DocumentTypes)
	mc.FromDate = opts.FromDate
	mc.ToDate = opts.ToDate
	mc.FromReferenceDate = opts.FromReferenceDate
	mc.ToReferenceDate = opts.ToReferenceDate
	mc.FilterByReference = opts.FilterByReference
	mc.StrictReference = opts.StrictReference

	candidates, err := s.matcher.CheckMatching(ctx, mc)
	if err != nil {
		return nil, err
	}

	return subtractAllocations(ctx, s.storage, bankAccount.Account, candidates)
}

// Reconcile applies the given vouchers to a transaction and returns its
// updated state.
func (s *Service) Reconcile(ctx context.Context, transactionName string, vouchers []model.VoucherRef) (*model.BankTransaction, error) {
	return s.storage.ReconcileVouchers(ctx, transactionName, vouchers)
}
