package kosma

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mhodges/ledgermatch/internal/common"
	"github.com/mhodges/ledgermatch/internal/model"
	"github.com/mhodges/ledgermatch/internal/service"
)

// Transaction states and types as reported by Kosma.
const (
	stateProcessed = "PROCESSED"
	typeCredit     = "CREDIT"
	typeDebit      = "DEBIT"
)

const dateLayout = "2006-01-02"

// Syncer pulls bank transactions from Kosma into local storage.
type Syncer struct {
	client  *Client
	storage service.Storage
	retry   service.RetryOptions
}

// NewSyncer creates a syncer.
func NewSyncer(client *Client, storage service.Storage, retry service.RetryOptions) *Syncer {
	return &Syncer{client: client, storage: storage, retry: retry}
}

// StoreConsent persists the consent issued by a completed bank flow so
// later syncs can run without user interaction.
func (s *Syncer) StoreConsent(ctx context.Context, company string, flow *SessionFlow) error {
	if flow.ConsentID == "" || flow.ConsentToken == "" {
		return common.NewUserError("bank flow did not issue a consent", nil)
	}

	expiry, err := time.Parse(dateLayout, flow.ConsentExpiry)
	if err != nil {
		expiry, err = time.Parse(time.RFC3339, flow.ConsentExpiry)
	}
	if err != nil {
		return fmt.Errorf("failed to parse consent expiry %q: %w", flow.ConsentExpiry, err)
	}

	return s.storage.SaveConsent(ctx, &model.Consent{
		Company:      company,
		ConsentID:    flow.ConsentID,
		ConsentToken: flow.ConsentToken,
		Expiry:       expiry,
	})
}

// consent loads the stored consent for a company and refuses one that is
// expired or about to expire. Renewal needs a user-driven bank flow, so
// there is nothing to do here but report it.
func (s *Syncer) consent(ctx context.Context, company string) (*model.Consent, error) {
	consent, err := s.storage.GetConsent(ctx, company)
	if err != nil {
		return nil, err
	}
	if consent.NeedsRenewal(time.Now()) {
		return nil, common.NewUserError(
			fmt.Sprintf("consent for %s is expired or expiring, run a new bank authorization flow", company),
			common.ErrConsentExpired)
	}
	return consent, nil
}

// SyncAccount fetches all transactions for one Kosma account since
// startDate and stores the new ones against the given bank account.
// Returns the number of transactions received from the API.
func (s *Syncer) SyncAccount(ctx context.Context, company, bankAccount, accountID string, startDate time.Time) (int, error) {
	consent, err := s.consent(ctx, company)
	if err != nil {
		return 0, err
	}

	var fetched []Transaction
	err = common.WithRetry(ctx, func() error {
		var fetchErr error
		fetched, fetchErr = s.client.ConsentTransactions(
			ctx, accountID, startDate.Format(dateLayout), consent)
		return fetchErr
	}, s.retry)
	if err != nil {
		return 0, err
	}

	transactions := make([]model.BankTransaction, 0, len(fetched))
	for _, raw := range fetched {
		txn, err := convertTransaction(raw, bankAccount, company)
		if err != nil {
			slog.Warn("Skipping unconvertible transaction",
				"transaction", raw.TransactionID, "error", err)
			continue
		}
		if txn == nil {
			continue
		}
		transactions = append(transactions, *txn)
	}

	if err := s.storage.SaveBankTransactions(ctx, transactions); err != nil {
		return 0, err
	}

	slog.Info("Synced Kosma account",
		"company", company,
		"bank_account", bankAccount,
		"account", accountID,
		"received", len(fetched),
		"converted", len(transactions))
	return len(fetched), nil
}

// convertTransaction maps a Kosma transaction onto the local model. Pending
// transactions are dropped: they can still change or disappear, and the
// stable id only exists once processed.
func convertTransaction(raw Transaction, bankAccount, company string) (*model.BankTransaction, error) {
	if raw.State != stateProcessed {
		return nil, nil
	}
	if raw.TransactionID == "" {
		return nil, fmt.Errorf("transaction has no id")
	}

	date, err := time.Parse(dateLayout, raw.ValueDate)
	if err != nil {
		date, err = time.Parse(dateLayout, raw.Date)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction date: %w", err)
	}

	amount := decimal.NewFromInt(raw.Amount.Amount).Div(decimal.NewFromInt(100))
	magnitude := amount.Abs().InexactFloat64()

	reference := raw.BankReferences.EndToEnd
	if reference == "" {
		reference = raw.Reference
	}

	txn := &model.BankTransaction{
		Name:              raw.TransactionID,
		Date:              date,
		Description:       raw.Reference,
		Currency:          raw.Amount.Currency,
		BankAccount:       bankAccount,
		Company:           company,
		ReferenceNumber:   reference,
		Status:            model.StatusUnreconciled,
		UnallocatedAmount: magnitude,
		DocStatus:         model.DocStatusSubmitted,
	}
	if raw.CounterParty.Holder != "" {
		txn.Party = raw.CounterParty.Holder
	}

	switch raw.Type {
	case typeCredit:
		txn.Deposit = magnitude
	case typeDebit:
		txn.Withdrawal = magnitude
	default:
		if amount.IsNegative() {
			txn.Withdrawal = magnitude
		} else {
			txn.Deposit = magnitude
		}
	}

	return txn, nil
}
