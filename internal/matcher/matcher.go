// Package matcher implements the voucher-matching engine: given a bank
// transaction, it finds accounting documents that plausibly correspond to it
// and ranks them by how many criteria they match.
package matcher

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mhodges/ledgermatch/internal/model"
	"github.com/mhodges/ledgermatch/internal/service"
)

// Query is one parameterized candidate query. Every query selects the same
// uniform column list so a single scanner handles all voucher variants:
//
//	rank, doctype, name, paid_amount, reference_no, reference_date,
//	party, party_type, posting_date, currency,
//	reference_number_match, amount_match, party_match, unallocated_amount_match
//
// All filter values are bound arguments; builders never interpolate data
// into SQL text.
type Query struct {
	SQL  string
	Args []any
}

// MatchContext carries a transaction's comparison keys and the requested
// matching modes through the orchestrator and every query builder. The
// strict-reference mode used by auto-reconciliation is an explicit field
// here, never process-global state, so concurrent batches cannot clobber
// each other.
type MatchContext struct {
	FromDate          *time.Time
	ToDate            *time.Time
	FromReferenceDate *time.Time
	ToReferenceDate   *time.Time
	Transaction       model.BankTransaction
	Company           string
	AccountFromTo     string
	DocumentTypes     []string
	Filters           model.MatchFilters
	ExactMatch        bool
	ExactPartyMatch   bool
	UnpaidInvoices    bool
	FilterByReference bool
	StrictReference   bool
}

// NewContext derives a MatchContext from a transaction and its bank
// account's GL account. Matching always compares against the transaction's
// unallocated amount, not its face value.
func NewContext(txn model.BankTransaction, glAccount, company string, documentTypes []string) MatchContext {
	accountFromTo := "paid_from"
	if txn.IsDeposit() {
		accountFromTo = "paid_to"
	}

	mc := MatchContext{
		Transaction:   txn,
		Company:       company,
		AccountFromTo: accountFromTo,
		DocumentTypes: documentTypes,
		Filters: model.MatchFilters{
			Amount:      txn.UnallocatedAmount,
			PaymentType: txn.PaymentType(),
			ReferenceNo: txn.ReferenceNumber,
			PartyType:   txn.PartyType,
			Party:       txn.Party,
			BankAccount: glAccount,
		},
	}
	mc.ExactMatch = mc.HasDocumentType(model.DocTypeExactMatch)
	mc.ExactPartyMatch = mc.HasDocumentType(model.DocTypeExactPartyMatch)
	mc.UnpaidInvoices = mc.HasDocumentType(model.DocTypeUnpaidInvoices)
	return mc
}

// HasDocumentType reports whether a document-type key was requested.
func (mc MatchContext) HasDocumentType(key string) bool {
	for _, t := range mc.DocumentTypes {
		if t == key {
			return true
		}
	}
	return false
}

// Matcher is the matching orchestrator. It fans out to the built-in query
// builders plus any registered extension sources, merges their candidates,
// and ranks the result.
type Matcher struct {
	querier         service.Querier
	registry        *Registry
	salaryProbe     sync.Once
	hasSalaryColumn bool
}

// New creates a matcher backed by a query runner and an extension registry.
// A nil registry means no extensions.
func New(querier service.Querier, registry *Registry) *Matcher {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Matcher{querier: querier, registry: registry}
}

// CheckMatching finds and ranks all candidate vouchers for a transaction.
// The result is ordered by rank descending; tie order is unspecified. It is
// never nil: no candidates yields an empty slice.
func (m *Matcher) CheckMatching(ctx context.Context, mc MatchContext) ([]model.MatchCandidate, error) {
	queries := defaultQueries(mc)

	loanQueries, err := m.loanQueries(ctx, mc)
	if err != nil {
		return nil, err
	}
	queries = append(queries, loanQueries...)

	for _, source := range m.registry.Sources() {
		queries = append(queries, source(mc)...)
	}

	candidates := []model.MatchCandidate{}
	for _, query := range queries {
		rows, err := m.runQuery(ctx, query)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, rows...)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Rank > candidates[j].Rank
	})

	slog.Debug("Matched candidates",
		"transaction", mc.Transaction.Name,
		"queries", len(queries),
		"candidates", len(candidates))

	return candidates, nil
}

func (m *Matcher) runQuery(ctx context.Context, query Query) ([]model.MatchCandidate, error) {
	rows, err := m.querier.QueryContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return nil, fmt.Errorf("matching query failed: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var candidates []model.MatchCandidate
	for rows.Next() {
		candidate, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return candidates, nil
}

func scanCandidate(rows *sql.Rows) (*model.MatchCandidate, error) {
	var c model.MatchCandidate
	var referenceNo, party, partyType, currency sql.NullString
	var referenceDate, postingDate sql.NullTime

	if err := rows.Scan(
		&c.Rank, &c.Doctype, &c.Name, &c.PaidAmount,
		&referenceNo, &referenceDate, &party, &partyType,
		&postingDate, &currency,
		&c.ReferenceNumberMatch, &c.AmountMatch, &c.PartyMatch, &c.UnallocatedAmountMatch,
	); err != nil {
		return nil, fmt.Errorf("failed to scan candidate: %w", err)
	}

	c.ReferenceNo = referenceNo.String
	c.Party = party.String
	c.PartyType = partyType.String
	c.Currency = currency.String
	if referenceDate.Valid {
		c.ReferenceDate = referenceDate.Time
	}
	if postingDate.Valid {
		c.PostingDate = postingDate.Time
	}
	return &c, nil
}
