package matcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mhodges/ledgermatch/internal/model"
)

// Loan vouchers rank on reference and party only; the paid amount still
// gates candidacy but does not contribute to the rank. Loans also ignore
// the posting-date window entirely.

// repaymentHasSalaryColumn probes the loan_repayments table once per
// matcher. Older databases predate the repay_from_salary column; on those
// the filter is simply skipped instead of failing every match.
func (m *Matcher) repaymentHasSalaryColumn(ctx context.Context) (bool, error) {
	var probeErr error
	m.salaryProbe.Do(func() {
		rows, err := m.querier.QueryContext(ctx, `PRAGMA table_info(loan_repayments)`)
		if err != nil {
			probeErr = fmt.Errorf("failed to inspect loan_repayments schema: %w", err)
			return
		}
		defer func() {
			if err := rows.Close(); err != nil {
				slog.Error("failed to close rows", "error", err)
			}
		}()

		for rows.Next() {
			var cid int
			var name, colType string
			var notNull, pk int
			var dflt any
			if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
				probeErr = fmt.Errorf("failed to scan table info: %w", err)
				return
			}
			if name == "repay_from_salary" {
				m.hasSalaryColumn = true
			}
		}
		probeErr = rows.Err()
	})
	return m.hasSalaryColumn, probeErr
}

// loanQueries builds the loan-voucher queries. Disbursements pay money out,
// so they only match withdrawals; repayments bring money in and only match
// deposits.
func (m *Matcher) loanQueries(ctx context.Context, mc MatchContext) ([]Query, error) {
	var queries []Query

	if !mc.Transaction.IsDeposit() && mc.HasDocumentType(model.DocTypeLoanDisbursement) {
		queries = append(queries, loanDisbursementQuery(mc))
	}
	if mc.Transaction.IsDeposit() && mc.HasDocumentType(model.DocTypeLoanRepayment) {
		hasSalary, err := m.repaymentHasSalaryColumn(ctx)
		if err != nil {
			return nil, err
		}
		queries = append(queries, loanRepaymentQuery(mc, hasSalary))
	}

	return queries, nil
}

func loanDisbursementQuery(mc MatchContext) Query {
	f := mc.Filters

	partyClause := ""
	if mc.ExactPartyMatch {
		partyClause = "AND applicant = ?"
	}

	sqlText := fmt.Sprintf(`
		SELECT
			(CASE WHEN reference_number = ? THEN 1 ELSE 0 END
			+ CASE WHEN applicant = ? THEN 1 ELSE 0 END
			+ 1) AS rank,
			'Loan Disbursement' AS doctype,
			name,
			disbursed_amount AS paid_amount,
			reference_number AS reference_no,
			reference_date,
			applicant AS party,
			applicant_type AS party_type,
			disbursement_date AS posting_date,
			'' AS currency,
			CASE WHEN reference_number = ? THEN 1 ELSE 0 END AS reference_number_match,
			0 AS amount_match,
			CASE WHEN applicant = ? THEN 1 ELSE 0 END AS party_match,
			0 AS unallocated_amount_match
		FROM loan_disbursements
		WHERE docstatus = 1
			AND clearance_date IS NULL
			AND disbursement_account = ?
			AND %s
			%s`,
		amountPredicate("disbursed_amount", mc.ExactMatch), partyClause)

	args := []any{f.ReferenceNo, f.Party, f.ReferenceNo, f.Party, f.BankAccount}
	if mc.ExactMatch {
		args = append(args, f.Amount)
	}
	if mc.ExactPartyMatch {
		args = append(args, f.Party)
	}

	return Query{SQL: sqlText, Args: args}
}

func loanRepaymentQuery(mc MatchContext, hasSalaryColumn bool) Query {
	f := mc.Filters

	salaryClause := ""
	if hasSalaryColumn {
		salaryClause = "AND repay_from_salary = 0"
	}
	partyClause := ""
	if mc.ExactPartyMatch {
		partyClause = "AND applicant = ?"
	}

	sqlText := fmt.Sprintf(`
		SELECT
			(CASE WHEN reference_number = ? THEN 1 ELSE 0 END
			+ CASE WHEN applicant = ? THEN 1 ELSE 0 END
			+ 1) AS rank,
			'Loan Repayment' AS doctype,
			name,
			amount_paid AS paid_amount,
			reference_number AS reference_no,
			reference_date,
			applicant AS party,
			applicant_type AS party_type,
			posting_date,
			'' AS currency,
			CASE WHEN reference_number = ? THEN 1 ELSE 0 END AS reference_number_match,
			0 AS amount_match,
			CASE WHEN applicant = ? THEN 1 ELSE 0 END AS party_match,
			0 AS unallocated_amount_match
		FROM loan_repayments
		WHERE docstatus = 1
			AND clearance_date IS NULL
			AND payment_account = ?
			AND %s
			%s
			%s`,
		amountPredicate("amount_paid", mc.ExactMatch), salaryClause, partyClause)

	args := []any{f.ReferenceNo, f.Party, f.ReferenceNo, f.Party, f.BankAccount}
	if mc.ExactMatch {
		args = append(args, f.Amount)
	}
	if mc.ExactPartyMatch {
		args = append(args, f.Party)
	}

	return Query{SQL: sqlText, Args: args}
}
