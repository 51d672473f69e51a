package matcher

import (
	"fmt"

	"github.com/mhodges/ledgermatch/internal/model"
)

// defaultQueries assembles the built-in candidate queries, gating each
// builder on the requested document types and the transaction's direction:
// deposits look at receive-side vouchers, withdrawals at pay-side ones.
func defaultQueries(mc MatchContext) []Query {
	var queries []Query

	if mc.HasDocumentType(model.DocTypePaymentEntry) {
		queries = append(queries, paymentEntryQuery(mc))
	}
	if mc.HasDocumentType(model.DocTypeJournalEntry) {
		queries = append(queries, journalEntryQuery(mc))
	}
	if mc.Transaction.IsDeposit() && mc.HasDocumentType(model.DocTypeSalesInvoice) {
		if mc.UnpaidInvoices {
			queries = append(queries, unpaidSalesInvoiceQuery(mc))
		} else {
			queries = append(queries, salesInvoiceQuery(mc))
		}
	}
	if !mc.Transaction.IsDeposit() && mc.HasDocumentType(model.DocTypePurchaseInvoice) {
		if mc.UnpaidInvoices {
			queries = append(queries, unpaidPurchaseInvoiceQuery(mc))
		} else {
			queries = append(queries, purchaseInvoiceQuery(mc))
		}
	}
	if mc.HasDocumentType(model.DocTypeBankTransaction) {
		queries = append(queries, bankTransactionQuery(mc))
	}

	return queries
}

// amountPredicate is the shared amount rule: equality under exact match,
// otherwise any positive amount qualifies.
func amountPredicate(column string, exact bool) string {
	if exact {
		return column + " = ?"
	}
	return column + " > 0"
}

// dateWindow returns the date-filter clause and ordering column. In
// reference-date mode the window applies to the reference/cheque date
// instead of the posting date. The clause is only emitted when the caller
// supplied both bounds.
func dateWindow(mc MatchContext, postingColumn, referenceColumn string) (clause, orderBy string, args []any) {
	if mc.FilterByReference {
		orderBy = referenceColumn
		if mc.FromReferenceDate != nil && mc.ToReferenceDate != nil {
			clause = fmt.Sprintf("AND %s BETWEEN ? AND ?", referenceColumn)
			args = []any{*mc.FromReferenceDate, *mc.ToReferenceDate}
		}
		return clause, orderBy, args
	}

	orderBy = postingColumn
	if mc.FromDate != nil && mc.ToDate != nil {
		clause = fmt.Sprintf("AND %s BETWEEN ? AND ?", postingColumn)
		args = []any{*mc.FromDate, *mc.ToDate}
	}
	return clause, orderBy, args
}

// paymentEntryQuery matches payment entries on the transaction's side of
// the ledger: paid_to for deposits, paid_from for withdrawals. Internal
// transfers are always eligible regardless of direction.
func paymentEntryQuery(mc MatchContext) Query {
	f := mc.Filters
	currencyColumn := "paid_from_account_currency"
	if mc.Transaction.IsDeposit() {
		currencyColumn = "paid_to_account_currency"
	}

	dateClause, orderBy, dateArgs := dateWindow(mc, "posting_date", "reference_date")

	strictClause := ""
	if mc.StrictReference {
		strictClause = "AND reference_no = ?"
	}
	partyClause := ""
	if mc.ExactPartyMatch {
		partyClause = "AND (party_type = ? AND party = ?)"
	}

	sqlText := fmt.Sprintf(`
		SELECT
			(CASE WHEN reference_no = ? THEN 1 ELSE 0 END
			+ CASE WHEN (party_type = ? AND party = ?) THEN 1 ELSE 0 END
			+ CASE WHEN paid_amount = ? THEN 1 ELSE 0 END
			+ 1) AS rank,
			'Payment Entry' AS doctype,
			name,
			paid_amount,
			reference_no,
			reference_date,
			party,
			party_type,
			posting_date,
			%s AS currency,
			CASE WHEN reference_no = ? THEN 1 ELSE 0 END AS reference_number_match,
			CASE WHEN paid_amount = ? THEN 1 ELSE 0 END AS amount_match,
			CASE WHEN (party_type = ? AND party = ?) THEN 1 ELSE 0 END AS party_match,
			0 AS unallocated_amount_match
		FROM payment_entries
		WHERE docstatus = 1
			AND payment_type IN (?, 'Internal Transfer')
			AND IFNULL(clearance_date, '') = ''
			AND %s = ?
			AND %s
			%s
			%s
			%s
		ORDER BY %s`,
		currencyColumn, mc.AccountFromTo,
		amountPredicate("paid_amount", mc.ExactMatch),
		dateClause, strictClause, partyClause, orderBy)

	args := []any{
		f.ReferenceNo, f.PartyType, f.Party, f.Amount,
		f.ReferenceNo, f.Amount, f.PartyType, f.Party,
		f.PaymentType, f.BankAccount,
	}
	if mc.ExactMatch {
		args = append(args, f.Amount)
	}
	args = append(args, dateArgs...)
	if mc.StrictReference {
		args = append(args, f.ReferenceNo)
	}
	if mc.ExactPartyMatch {
		args = append(args, f.PartyType, f.Party)
	}

	return Query{SQL: sqlText, Args: args}
}

// journalEntryQuery matches journal entry legs against the bank GL account.
// The side is judged purely by the transaction direction, not the account
// type: one bank can hold both asset- and liability-style accounts.
func journalEntryQuery(mc MatchContext) Query {
	f := mc.Filters
	amountColumn := "jea.debit"
	if !mc.Transaction.IsDeposit() {
		amountColumn = "jea.credit"
	}

	dateClause, orderBy, dateArgs := dateWindow(mc, "je.posting_date", "je.cheque_date")

	strictClause := ""
	if mc.StrictReference {
		strictClause = "AND je.cheque_no = ?"
	}

	sqlText := fmt.Sprintf(`
		SELECT
			(CASE WHEN je.cheque_no = ? THEN 1 ELSE 0 END
			+ CASE WHEN %[1]s = ? THEN 1 ELSE 0 END
			+ 1) AS rank,
			'Journal Entry' AS doctype,
			je.name,
			%[1]s AS paid_amount,
			je.cheque_no AS reference_no,
			je.cheque_date AS reference_date,
			je.pay_to_recd_from AS party,
			jea.party_type,
			je.posting_date,
			jea.account_currency AS currency,
			CASE WHEN je.cheque_no = ? THEN 1 ELSE 0 END AS reference_number_match,
			CASE WHEN %[1]s = ? THEN 1 ELSE 0 END AS amount_match,
			0 AS party_match,
			0 AS unallocated_amount_match
		FROM journal_entry_accounts jea
		JOIN journal_entries je ON jea.parent = je.name
		WHERE je.docstatus = 1
			AND je.voucher_type != 'Opening Entry'
			AND IFNULL(je.clearance_date, '') = ''
			AND jea.account = ?
			AND %[2]s
			%[3]s
			%[4]s
		ORDER BY %[5]s`,
		amountColumn,
		amountPredicate(amountColumn, mc.ExactMatch),
		dateClause, strictClause, orderBy)

	args := []any{
		f.ReferenceNo, f.Amount,
		f.ReferenceNo, f.Amount,
		f.BankAccount,
	}
	if mc.ExactMatch {
		args = append(args, f.Amount)
	}
	args = append(args, dateArgs...)
	if mc.StrictReference {
		args = append(args, f.ReferenceNo)
	}

	return Query{SQL: sqlText, Args: args}
}

// salesInvoiceQuery matches sales invoices paid directly into the bank
// account through their payment rows. Deposits only.
func salesInvoiceQuery(mc MatchContext) Query {
	f := mc.Filters

	partyClause := ""
	if mc.ExactPartyMatch {
		partyClause = "AND si.customer = ?"
	}

	sqlText := fmt.Sprintf(`
		SELECT
			(CASE WHEN si.customer = ? THEN 1 ELSE 0 END
			+ CASE WHEN sip.amount = ? THEN 1 ELSE 0 END
			+ 1) AS rank,
			'Sales Invoice' AS doctype,
			si.name,
			sip.amount AS paid_amount,
			si.name AS reference_no,
			NULL AS reference_date,
			si.customer AS party,
			'Customer' AS party_type,
			si.posting_date,
			si.currency,
			0 AS reference_number_match,
			CASE WHEN sip.amount = ? THEN 1 ELSE 0 END AS amount_match,
			CASE WHEN si.customer = ? THEN 1 ELSE 0 END AS party_match,
			0 AS unallocated_amount_match
		FROM sales_invoice_payments sip
		JOIN sales_invoices si ON sip.parent = si.name
		WHERE si.docstatus = 1
			AND si.is_return = 0
			AND IFNULL(sip.clearance_date, '') = ''
			AND sip.account = ?
			AND %s
			%s`,
		amountPredicate("sip.amount", mc.ExactMatch), partyClause)

	args := []any{f.Party, f.Amount, f.Amount, f.Party, f.BankAccount}
	if mc.ExactMatch {
		args = append(args, f.Amount)
	}
	if mc.ExactPartyMatch {
		args = append(args, f.Party)
	}

	return Query{SQL: sqlText, Args: args}
}

// unpaidSalesInvoiceQuery offers outstanding sales invoices: the claimable
// amount is the outstanding balance while exact matching compares the
// invoice grand total.
func unpaidSalesInvoiceQuery(mc MatchContext) Query {
	f := mc.Filters

	exactClause := ""
	if mc.ExactMatch {
		exactClause = "AND grand_total = ?"
	}
	partyClause := ""
	if mc.ExactPartyMatch {
		partyClause = "AND customer = ?"
	}

	sqlText := fmt.Sprintf(`
		SELECT
			(CASE WHEN customer = ? THEN 1 ELSE 0 END
			+ CASE WHEN grand_total = ? THEN 1 ELSE 0 END
			+ 1) AS rank,
			'Sales Invoice' AS doctype,
			name,
			outstanding_amount AS paid_amount,
			name AS reference_no,
			NULL AS reference_date,
			customer AS party,
			'Customer' AS party_type,
			posting_date,
			currency,
			0 AS reference_number_match,
			CASE WHEN grand_total = ? THEN 1 ELSE 0 END AS amount_match,
			CASE WHEN customer = ? THEN 1 ELSE 0 END AS party_match,
			0 AS unallocated_amount_match
		FROM sales_invoices
		WHERE docstatus = 1
			AND is_return = 0
			AND outstanding_amount > 0
			%s
			%s`,
		exactClause, partyClause)

	args := []any{f.Party, f.Amount, f.Amount, f.Party}
	if mc.ExactMatch {
		args = append(args, f.Amount)
	}
	if mc.ExactPartyMatch {
		args = append(args, f.Party)
	}

	return Query{SQL: sqlText, Args: args}
}

// purchaseInvoiceQuery matches purchase invoices that double as payment
// vouchers (is_paid) against the bank account. Withdrawals only.
func purchaseInvoiceQuery(mc MatchContext) Query {
	f := mc.Filters

	partyClause := ""
	if mc.ExactPartyMatch {
		partyClause = "AND supplier = ?"
	}

	sqlText := fmt.Sprintf(`
		SELECT
			(CASE WHEN supplier = ? THEN 1 ELSE 0 END
			+ CASE WHEN paid_amount = ? THEN 1 ELSE 0 END
			+ 1) AS rank,
			'Purchase Invoice' AS doctype,
			name,
			paid_amount,
			name AS reference_no,
			NULL AS reference_date,
			supplier AS party,
			'Supplier' AS party_type,
			posting_date,
			currency,
			0 AS reference_number_match,
			CASE WHEN paid_amount = ? THEN 1 ELSE 0 END AS amount_match,
			CASE WHEN supplier = ? THEN 1 ELSE 0 END AS party_match,
			0 AS unallocated_amount_match
		FROM purchase_invoices
		WHERE docstatus = 1
			AND is_paid = 1
			AND is_return = 0
			AND IFNULL(clearance_date, '') = ''
			AND cash_bank_account = ?
			AND %s
			%s`,
		amountPredicate("paid_amount", mc.ExactMatch), partyClause)

	args := []any{f.Party, f.Amount, f.Amount, f.Party, f.BankAccount}
	if mc.ExactMatch {
		args = append(args, f.Amount)
	}
	if mc.ExactPartyMatch {
		args = append(args, f.Party)
	}

	return Query{SQL: sqlText, Args: args}
}

// unpaidPurchaseInvoiceQuery mirrors unpaidSalesInvoiceQuery for the
// supplier side.
func unpaidPurchaseInvoiceQuery(mc MatchContext) Query {
	f := mc.Filters

	exactClause := ""
	if mc.ExactMatch {
		exactClause = "AND grand_total = ?"
	}
	partyClause := ""
	if mc.ExactPartyMatch {
		partyClause = "AND supplier = ?"
	}

	sqlText := fmt.Sprintf(`
		SELECT
			(CASE WHEN supplier = ? THEN 1 ELSE 0 END
			+ CASE WHEN grand_total = ? THEN 1 ELSE 0 END
			+ 1) AS rank,
			'Purchase Invoice' AS doctype,
			name,
			outstanding_amount AS paid_amount,
			name AS reference_no,
			NULL AS reference_date,
			supplier AS party,
			'Supplier' AS party_type,
			posting_date,
			currency,
			0 AS reference_number_match,
			CASE WHEN grand_total = ? THEN 1 ELSE 0 END AS amount_match,
			CASE WHEN supplier = ? THEN 1 ELSE 0 END AS party_match,
			0 AS unallocated_amount_match
		FROM purchase_invoices
		WHERE docstatus = 1
			AND is_return = 0
			AND outstanding_amount > 0
			%s
			%s`,
		exactClause, partyClause)

	args := []any{f.Party, f.Amount, f.Amount, f.Party}
	if mc.ExactMatch {
		args = append(args, f.Amount)
	}
	if mc.ExactPartyMatch {
		args = append(args, f.Party)
	}

	return Query{SQL: sqlText, Args: args}
}

// bankTransactionQuery finds opposite-direction transactions in the same
// bank account, for matching internal transfers transaction-to-transaction.
// It never returns the transaction itself.
func bankTransactionQuery(mc MatchContext) Query {
	f := mc.Filters
	amountColumn := "withdrawal"
	if !mc.Transaction.IsDeposit() {
		amountColumn = "deposit"
	}

	partyClause := ""
	if mc.ExactPartyMatch {
		partyClause = "AND party_type = ? AND party = ?"
	}

	sqlText := fmt.Sprintf(`
		SELECT
			(CASE WHEN reference_number = ? THEN 1 ELSE 0 END
			+ CASE WHEN %[1]s = ? THEN 1 ELSE 0 END
			+ CASE WHEN (party_type = ? AND party = ?) THEN 1 ELSE 0 END
			+ CASE WHEN unallocated_amount = ? THEN 1 ELSE 0 END
			+ 1) AS rank,
			'Bank Transaction' AS doctype,
			name,
			unallocated_amount AS paid_amount,
			reference_number AS reference_no,
			date AS reference_date,
			party,
			party_type,
			date AS posting_date,
			currency,
			CASE WHEN reference_number = ? THEN 1 ELSE 0 END AS reference_number_match,
			CASE WHEN %[1]s = ? THEN 1 ELSE 0 END AS amount_match,
			CASE WHEN (party_type = ? AND party = ?) THEN 1 ELSE 0 END AS party_match,
			CASE WHEN unallocated_amount = ? THEN 1 ELSE 0 END AS unallocated_amount_match
		FROM bank_transactions
		WHERE docstatus = 1
			AND status != 'Reconciled'
			AND name != ?
			AND bank_account = ?
			AND %[2]s
			%[3]s`,
		amountColumn,
		amountPredicate(amountColumn, mc.ExactMatch),
		partyClause)

	args := []any{
		f.ReferenceNo, f.Amount, f.PartyType, f.Party, f.Amount,
		f.ReferenceNo, f.Amount, f.PartyType, f.Party, f.Amount,
		mc.Transaction.Name, mc.Transaction.BankAccount,
	}
	if mc.ExactMatch {
		args = append(args, f.Amount)
	}
	if mc.ExactPartyMatch {
		args = append(args, f.PartyType, f.Party)
	}

	return Query{SQL: sqlText, Args: args}
}
