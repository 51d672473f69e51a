// Package kosma talks to the Kosma open-banking admin backend. All calls
// are JSON POSTs authenticated with an API token; the backend proxies the
// actual bank flows and hands back sessions, consents, accounts, and
// transactions.
package kosma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mhodges/ledgermatch/internal/common"
	"github.com/mhodges/ledgermatch/internal/model"
)

// Admin API methods.
const (
	methodGetClientToken      = "banking_admin.api.get_client_token"
	methodFlowAccounts        = "banking_admin.api.fetch_accounts_and_bank"
	methodConsentAccounts     = "banking_admin.api.fetch_consent_accounts"
	methodConsentTransactions = "banking_admin.api.fetch_consent_transactions"
	methodEndSession          = "banking_admin.api.end_session"
)

// Config holds the connection settings for the admin backend.
type Config struct {
	URL        string
	APIToken   string
	CustomerID string
	IPAddress  string
	Timeout    time.Duration
}

// Client is a Kosma admin backend client.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

// NewClient validates the config and builds a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: kosma url", common.ErrMissingConfig)
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("%w: kosma api token", common.ErrMissingConfig)
	}
	if cfg.CustomerID == "" {
		return nil, fmt.Errorf("%w: kosma customer id", common.ErrMissingConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// SessionFlow is the client-token bundle that starts a bank flow in the
// user's browser.
type SessionFlow struct {
	SessionID       string `json:"session_id"`
	SessionIDShort  string `json:"session_id_short"`
	FlowID          string `json:"flow_id"`
	ClientToken     string `json:"client_token"`
	ConsentID       string `json:"consent_id"`
	ConsentToken    string `json:"consent_token"`
	ConsentExpiry   string `json:"consent_expiry"`
	TransactionsURL string `json:"pagination_url"`
}

// Account is a bank account as reported by Kosma.
type Account struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	IBAN        string `json:"iban"`
	BankName    string `json:"bank_name"`
	Currency    string `json:"account_currency"`
}

// AccountsResult is the account list for a flow or consent.
type AccountsResult struct {
	Accounts []Account `json:"accounts"`
	BankName string    `json:"bank_name"`
}

// Amount is a monetary value in minor units.
type Amount struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Transaction is one bank transaction as reported by Kosma.
type Transaction struct {
	TransactionID    string `json:"transaction_id"`
	Date             string `json:"date"`
	ValueDate        string `json:"value_date"`
	Amount           Amount `json:"amount"`
	Reference        string `json:"reference"`
	BankReferences   struct {
		EndToEnd string `json:"end_to_end"`
	} `json:"bank_references"`
	CounterParty struct {
		Holder string `json:"holder"`
	} `json:"counter_party"`
	State string `json:"state"`
	Type  string `json:"transaction_type"`
}

// transactionPage is one page of the paginated transaction fetch.
type transactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   struct {
		URL    string `json:"url"`
		Offset string `json:"offset"`
	} `json:"pagination"`
}

type apiResponse struct {
	Message json.RawMessage `json:"message"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// baseData returns the fields every request carries.
func (c *Client) baseData() map[string]any {
	return map[string]any{
		"ip_address":  c.cfg.IPAddress,
		"customer_id": c.cfg.CustomerID,
	}
}

// post sends one admin API call and decodes the message payload into out.
// A remote error message is surfaced verbatim; rate limiting and server
// errors map to the retryable sentinels.
func (c *Client) post(ctx context.Context, method string, data map[string]any, out any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.cfg.APIToken)

	slog.Debug("Calling Kosma admin API", "method", method)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrKosmaConnection, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var parsed apiResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil && resp.StatusCode < 400 {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", common.ErrKosmaRateLimit, method)
	case resp.StatusCode >= 500:
		return common.NewRetryableError(
			fmt.Errorf("kosma server error: %d - %s", resp.StatusCode, string(raw)), true)
	case resp.StatusCode >= 400:
		if parsed.Error != nil && parsed.Error.Message != "" {
			return common.NewUserError(parsed.Error.Message, nil)
		}
		return common.NewRetryableError(
			fmt.Errorf("kosma API error: %d - %s", resp.StatusCode, string(raw)), false)
	}

	if out != nil && len(parsed.Message) > 0 {
		if err := json.Unmarshal(parsed.Message, out); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", method, err)
		}
	}
	return nil
}

// GetClientToken starts a bank flow and returns the session and client
// token for it. The account and date bounds are optional and only used for
// transaction flows.
func (c *Client) GetClientToken(ctx context.Context, currentFlow string, account *Account, fromDate, toDate string) (*SessionFlow, error) {
	data := c.baseData()
	data["current_flow"] = currentFlow
	data["account"] = account
	data["from_date"] = fromDate
	data["to_date"] = toDate

	var flow SessionFlow
	if err := c.post(ctx, methodGetClientToken, data, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

// FlowAccounts fetches the accounts and bank discovered by a completed
// flow.
func (c *Client) FlowAccounts(ctx context.Context, sessionID, flowID string) (*AccountsResult, error) {
	data := c.baseData()
	data["session_id"] = sessionID
	data["flow_id"] = flowID

	var result AccountsResult
	if err := c.post(ctx, methodFlowAccounts, data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ConsentAccounts fetches accounts using a stored consent, without a new
// bank flow.
func (c *Client) ConsentAccounts(ctx context.Context, consent *model.Consent) (*AccountsResult, error) {
	data := c.baseData()
	data["consent_id"] = consent.ConsentID
	data["consent_token"] = consent.ConsentToken

	var result AccountsResult
	if err := c.post(ctx, methodConsentAccounts, data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ConsentTransactions fetches all transactions for an account since
// startDate, following the pagination offsets until the backend reports no
// next page.
func (c *Client) ConsentTransactions(ctx context.Context, accountID, startDate string, consent *model.Consent) ([]Transaction, error) {
	var transactions []Transaction
	nextURL := ""
	offset := ""

	for {
		data := c.baseData()
		data["account_id"] = accountID
		data["start_date"] = startDate
		data["consent_id"] = consent.ConsentID
		data["consent_token"] = consent.ConsentToken
		data["url"] = nextURL
		data["offset"] = offset

		var page transactionPage
		if err := c.post(ctx, methodConsentTransactions, data, &page); err != nil {
			return nil, err
		}
		transactions = append(transactions, page.Transactions...)

		if page.Pagination.Offset == "" {
			break
		}
		nextURL = page.Pagination.URL
		offset = page.Pagination.Offset
	}

	slog.Debug("Fetched Kosma transactions",
		"account", accountID, "count", len(transactions))
	return transactions, nil
}

// EndSession closes a flow session on the backend. Failures are logged,
// not returned: the session expires on its own either way.
func (c *Client) EndSession(ctx context.Context, sessionID string) {
	data := c.baseData()
	data["session_id"] = sessionID

	if err := c.post(ctx, methodEndSession, data, nil); err != nil {
		slog.Warn("Failed to end Kosma session", "session", sessionID, "error", err)
	}
}
