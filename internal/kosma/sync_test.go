package kosma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhodges/ledgermatch/internal/common"
	"github.com/mhodges/ledgermatch/internal/model"
	"github.com/mhodges/ledgermatch/internal/service"
	"github.com/mhodges/ledgermatch/internal/storage"
)

func newTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func processedTransaction(id string, minorUnits int64, txnType string) Transaction {
	txn := Transaction{
		TransactionID: id,
		ValueDate:     "2026-06-15",
		Reference:     "Invoice 42",
		State:         stateProcessed,
		Type:          txnType,
	}
	txn.Amount = Amount{Amount: minorUnits, Currency: "EUR"}
	return txn
}

func TestConvertTransaction(t *testing.T) {
	t.Run("credit becomes deposit", func(t *testing.T) {
		raw := processedTransaction("t-1", 12345, typeCredit)
		raw.CounterParty.Holder = "ACME Corp"

		txn, err := convertTransaction(raw, "Checking - ACME Bank", "ACME GmbH")
		require.NoError(t, err)
		require.NotNil(t, txn)

		assert.Equal(t, "t-1", txn.Name)
		assert.Equal(t, 123.45, txn.Deposit)
		assert.Equal(t, 0.0, txn.Withdrawal)
		assert.Equal(t, 123.45, txn.UnallocatedAmount)
		assert.Equal(t, "EUR", txn.Currency)
		assert.Equal(t, "ACME Corp", txn.Party)
		assert.Equal(t, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), txn.Date)
		assert.Equal(t, model.StatusUnreconciled, txn.Status)
		assert.True(t, txn.DocStatus.IsSubmitted())
	})

	t.Run("debit becomes withdrawal", func(t *testing.T) {
		txn, err := convertTransaction(processedTransaction("t-2", 5000, typeDebit),
			"Checking - ACME Bank", "ACME GmbH")
		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.Equal(t, 50.0, txn.Withdrawal)
		assert.Equal(t, 0.0, txn.Deposit)
	})

	t.Run("sign decides when type is unknown", func(t *testing.T) {
		txn, err := convertTransaction(processedTransaction("t-3", -2500, ""),
			"Checking - ACME Bank", "ACME GmbH")
		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.Equal(t, 25.0, txn.Withdrawal)
	})

	t.Run("pending transaction is skipped", func(t *testing.T) {
		raw := processedTransaction("t-4", 1000, typeCredit)
		raw.State = "PENDING"

		txn, err := convertTransaction(raw, "Checking - ACME Bank", "ACME GmbH")
		require.NoError(t, err)
		assert.Nil(t, txn)
	})

	t.Run("missing id is an error", func(t *testing.T) {
		raw := processedTransaction("", 1000, typeCredit)
		_, err := convertTransaction(raw, "Checking - ACME Bank", "ACME GmbH")
		assert.Error(t, err)
	})

	t.Run("end to end reference wins over description", func(t *testing.T) {
		raw := processedTransaction("t-5", 1000, typeCredit)
		raw.BankReferences.EndToEnd = "E2E-99"

		txn, err := convertTransaction(raw, "Checking - ACME Bank", "ACME GmbH")
		require.NoError(t, err)
		assert.Equal(t, "E2E-99", txn.ReferenceNumber)
		assert.Equal(t, "Invoice 42", txn.Description)
	})

	t.Run("description is the reference fallback", func(t *testing.T) {
		txn, err := convertTransaction(processedTransaction("t-6", 1000, typeCredit),
			"Checking - ACME Bank", "ACME GmbH")
		require.NoError(t, err)
		assert.Equal(t, "Invoice 42", txn.ReferenceNumber)
	})

	t.Run("falls back to booking date", func(t *testing.T) {
		raw := processedTransaction("t-7", 1000, typeCredit)
		raw.ValueDate = ""
		raw.Date = "2026-06-10"

		txn, err := convertTransaction(raw, "Checking - ACME Bank", "ACME GmbH")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), txn.Date)
	})
}

func TestStoreConsent(t *testing.T) {
	store := newTestStorage(t)
	syncer := NewSyncer(nil, store, service.RetryOptions{})
	ctx := context.Background()

	flow := &SessionFlow{
		ConsentID:     "consent-1",
		ConsentToken:  "tok-1",
		ConsentExpiry: "2027-01-01",
	}
	require.NoError(t, syncer.StoreConsent(ctx, "ACME GmbH", flow))

	consent, err := store.GetConsent(ctx, "ACME GmbH")
	require.NoError(t, err)
	assert.Equal(t, "consent-1", consent.ConsentID)
	assert.Equal(t, 2027, consent.Expiry.Year())

	t.Run("missing consent", func(t *testing.T) {
		err := syncer.StoreConsent(ctx, "ACME GmbH", &SessionFlow{})
		var userErr *common.UserError
		require.ErrorAs(t, err, &userErr)
	})

	t.Run("unparseable expiry", func(t *testing.T) {
		err := syncer.StoreConsent(ctx, "ACME GmbH", &SessionFlow{
			ConsentID: "consent-2", ConsentToken: "tok-2", ConsentExpiry: "soon",
		})
		assert.Error(t, err)
	})
}

func TestSyncAccountRefusesStaleConsent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConsent(ctx, &model.Consent{
		Company:      "ACME GmbH",
		ConsentID:    "consent-old",
		ConsentToken: "tok-old",
		Expiry:       time.Now().Add(30 * time.Minute),
	}))

	syncer := NewSyncer(nil, store, service.RetryOptions{})
	_, err := syncer.SyncAccount(ctx, "ACME GmbH", "Checking - ACME Bank", "acc-1", time.Now().AddDate(0, -3, 0))
	assert.ErrorIs(t, err, common.ErrConsentExpired)
}

func TestSyncAccountDoesNotRetryConsentErrors(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConsent(ctx, &model.Consent{
		Company:      "ACME GmbH",
		ConsentID:    "consent-1",
		ConsentToken: "tok-bad",
		Expiry:       time.Now().AddDate(0, 6, 0),
	}))

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "invalid consent token"},
		})
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(testConfig(srv.URL + "/api/method/"))
	require.NoError(t, err)

	syncer := NewSyncer(client, store, service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	})
	_, err = syncer.SyncAccount(ctx, "ACME GmbH", "Checking - ACME Bank", "acc-1",
		time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))

	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, err.Error(), "invalid consent token")

	// The rejection is terminal: the backend must see exactly one request.
	assert.Equal(t, 1, requests)
}

func TestSyncAccount(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConsent(ctx, &model.Consent{
		Company:      "ACME GmbH",
		ConsentID:    "consent-1",
		ConsentToken: "tok-1",
		Expiry:       time.Now().AddDate(0, 6, 0),
	}))

	pending := processedTransaction("t-pending", 999, typeCredit)
	pending.State = "PENDING"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(t, w, map[string]any{
			"transactions": []Transaction{
				processedTransaction("t-dep", 10000, typeCredit),
				processedTransaction("t-wd", 2500, typeDebit),
				pending,
			},
		})
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(testConfig(srv.URL + "/api/method/"))
	require.NoError(t, err)

	syncer := NewSyncer(client, store, service.RetryOptions{MaxAttempts: 1})
	received, err := syncer.SyncAccount(ctx, "ACME GmbH", "Checking - ACME Bank", "acc-1",
		time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, received)

	deposit, err := store.GetBankTransaction(ctx, "t-dep")
	require.NoError(t, err)
	assert.Equal(t, 100.0, deposit.Deposit)
	assert.Equal(t, "Checking - ACME Bank", deposit.BankAccount)

	withdrawal, err := store.GetBankTransaction(ctx, "t-wd")
	require.NoError(t, err)
	assert.Equal(t, 25.0, withdrawal.Withdrawal)

	// The pending one never reaches storage.
	_, err = store.GetBankTransaction(ctx, "t-pending")
	assert.True(t, storage.IsNotFound(err))
}
