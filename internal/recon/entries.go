package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mhodges/ledgermatch/internal/common"
	"github.com/mhodges/ledgermatch/internal/model"
)

// EntryRequest describes a voucher to create from an unmatched bank
// transaction. SecondAccount is the non-bank side of the entry. When
// AllowEdit is set the voucher is saved as a draft and nothing is
// reconciled; otherwise it is submitted and immediately applied to the
// transaction.
type EntryRequest struct {
	ReferenceDate   time.Time
	TransactionName string
	ReferenceNumber string
	PartyType       string
	Party           string
	SecondAccount   string
	EntryType       string
	AllowEdit       bool
}

func shortID() string {
	return uuid.NewString()[:8]
}

// loadOpenTransaction fetches a transaction and checks it can still take
// allocations.
func (s *Service) loadOpenTransaction(ctx context.Context, name string) (*model.BankTransaction, string, error) {
	txn, err := s.storage.GetBankTransaction(ctx, name)
	if err != nil {
		return nil, "", err
	}
	if !txn.DocStatus.IsSubmitted() {
		return nil, "", common.NewUserError(
			fmt.Sprintf("bank transaction %s is not submitted", name), nil)
	}
	if txn.UnallocatedAmount <= 0 {
		return nil, "", common.NewUserError(
			fmt.Sprintf("bank transaction %s has no unallocated amount left", name),
			common.ErrNothingToAllocate)
	}

	bankAccount, err := s.storage.GetBankAccount(ctx, txn.BankAccount)
	if err != nil {
		return nil, "", err
	}
	return txn, bankAccount.Account, nil
}

// validatePartyAccount checks that the chosen party-side account carries
// the right account type for the transaction direction: money coming in
// settles receivables, money going out settles payables.
func (s *Service) validatePartyAccount(ctx context.Context, accountName string, deposit bool) error {
	account, err := s.storage.GetAccount(ctx, accountName)
	if err != nil {
		return err
	}

	expected := model.AccountTypePayable
	if deposit {
		expected = model.AccountTypeReceivable
	}
	if account.AccountType != expected {
		return common.NewUserError(
			fmt.Sprintf("account %s must be of type %s, got %s",
				accountName, expected, account.AccountType), nil)
	}
	return nil
}

// CreatePaymentEntry builds a payment entry from a bank transaction for its
// full unallocated amount. It returns the voucher name and, when the entry
// was submitted and applied, the transaction's updated state.
func (s *Service) CreatePaymentEntry(ctx context.Context, req EntryRequest) (string, *model.BankTransaction, error) {
	txn, glAccount, err := s.loadOpenTransaction(ctx, req.TransactionName)
	if err != nil {
		return "", nil, err
	}
	if req.PartyType == "" || req.Party == "" {
		return "", nil, common.NewUserError("party type and party are required", nil)
	}
	if err := s.validatePartyAccount(ctx, req.SecondAccount, txn.IsDeposit()); err != nil {
		return "", nil, err
	}

	entry := &model.PaymentEntry{
		Name:          fmt.Sprintf("PE-%s", shortID()),
		PaymentType:   txn.PaymentType(),
		PostingDate:   txn.Date,
		ReferenceNo:   req.ReferenceNumber,
		ReferenceDate: req.ReferenceDate,
		PartyType:     req.PartyType,
		Party:         req.Party,
		PaidAmount:    txn.UnallocatedAmount,
		DocStatus:     model.DocStatusSubmitted,
	}
	if entry.ReferenceNo == "" {
		entry.ReferenceNo = txn.ReferenceNumber
	}
	if txn.IsDeposit() {
		entry.PaidFrom = req.SecondAccount
		entry.PaidTo = glAccount
		entry.ToCurrency = txn.Currency
	} else {
		entry.PaidFrom = glAccount
		entry.PaidTo = req.SecondAccount
		entry.FromCurrency = txn.Currency
	}
	if req.AllowEdit {
		entry.DocStatus = model.DocStatusDraft
	}

	if err := s.storage.SavePaymentEntry(ctx, entry); err != nil {
		return "", nil, err
	}
	if req.AllowEdit {
		return entry.Name, nil, nil
	}

	updated, err := s.storage.ReconcileVouchers(ctx, txn.Name, []model.VoucherRef{
		{Doctype: model.DoctypePaymentEntry, Name: entry.Name, Amount: entry.PaidAmount},
	})
	if err != nil {
		return "", nil, err
	}
	return entry.Name, updated, nil
}

// CreateJournalEntry builds a two-leg journal entry from a bank
// transaction: one leg on the bank GL account, the balancing leg on the
// requested second account.
func (s *Service) CreateJournalEntry(ctx context.Context, req EntryRequest) (string, *model.BankTransaction, error) {
	txn, glAccount, err := s.loadOpenTransaction(ctx, req.TransactionName)
	if err != nil {
		return "", nil, err
	}
	if req.SecondAccount == "" {
		return "", nil, common.NewUserError("second account is required", nil)
	}
	account, err := s.storage.GetAccount(ctx, req.SecondAccount)
	if err != nil {
		return "", nil, err
	}
	if account.AccountType == model.AccountTypeReceivable || account.AccountType == model.AccountTypePayable {
		if req.PartyType == "" || req.Party == "" {
			return "", nil, common.NewUserError(
				fmt.Sprintf("party type and party are required for %s account %s",
					account.AccountType, req.SecondAccount), nil)
		}
	}

	entryType := req.EntryType
	if entryType == "" {
		entryType = "Bank Entry"
	}

	entry := &model.JournalEntry{
		Name:          fmt.Sprintf("JE-%s", shortID()),
		VoucherType:   entryType,
		PostingDate:   txn.Date,
		ChequeNo:      req.ReferenceNumber,
		ChequeDate:    req.ReferenceDate,
		PayToRecdFrom: req.Party,
		DocStatus:     model.DocStatusSubmitted,
	}
	if entry.ChequeNo == "" {
		entry.ChequeNo = txn.ReferenceNumber
	}
	if req.AllowEdit {
		entry.DocStatus = model.DocStatusDraft
	}

	amount := txn.UnallocatedAmount
	bankLeg := model.JournalEntryAccount{
		Parent:          entry.Name,
		Account:         glAccount,
		AccountCurrency: txn.Currency,
	}
	otherLeg := model.JournalEntryAccount{
		Parent:    entry.Name,
		Account:   req.SecondAccount,
		PartyType: req.PartyType,
	}
	if txn.IsDeposit() {
		bankLeg.Debit = amount
		otherLeg.Credit = amount
	} else {
		bankLeg.Credit = amount
		otherLeg.Debit = amount
	}

	if err := s.storage.SaveJournalEntry(ctx, entry, []model.JournalEntryAccount{bankLeg, otherLeg}); err != nil {
		return "", nil, err
	}
	if req.AllowEdit {
		return entry.Name, nil, nil
	}

	updated, err := s.storage.ReconcileVouchers(ctx, txn.Name, []model.VoucherRef{
		{Doctype: model.DoctypeJournalEntry, Name: entry.Name, Amount: amount},
	})
	if err != nil {
		return "", nil, err
	}
	return entry.Name, updated, nil
}
