package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mhodges/ledgermatch/internal/model"
)

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SavePaymentEntry inserts or replaces a payment entry.
func (s *SQLiteStorage) SavePaymentEntry(ctx context.Context, entry *model.PaymentEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("payment entry cannot be nil")
	}
	if err := validateString(entry.Name, "payment entry name"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO payment_entries (
			name, payment_type, posting_date, reference_no, reference_date,
			party_type, party, paid_from, paid_to,
			paid_from_account_currency, paid_to_account_currency,
			paid_amount, clearance_date, docstatus
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Name, entry.PaymentType, entry.PostingDate, entry.ReferenceNo,
		nullableTime(entry.ReferenceDate), entry.PartyType, entry.Party,
		entry.PaidFrom, entry.PaidTo, entry.FromCurrency, entry.ToCurrency,
		entry.PaidAmount, entry.ClearanceDate, entry.DocStatus)
	if err != nil {
		return fmt.Errorf("failed to save payment entry: %w", err)
	}
	return nil
}

// SaveJournalEntry inserts or replaces a journal entry and its account rows.
func (s *SQLiteStorage) SaveJournalEntry(ctx context.Context, entry *model.JournalEntry, accounts []model.JournalEntryAccount) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("journal entry cannot be nil")
	}
	if err := validateString(entry.Name, "journal entry name"); err != nil {
		return err
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO journal_entries (
			name, voucher_type, posting_date, cheque_no, cheque_date,
			pay_to_recd_from, clearance_date, docstatus
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Name, entry.VoucherType, entry.PostingDate, entry.ChequeNo,
		nullableTime(entry.ChequeDate), entry.PayToRecdFrom,
		entry.ClearanceDate, entry.DocStatus); err != nil {
		return fmt.Errorf("failed to save journal entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM journal_entry_accounts WHERE parent = ?`, entry.Name); err != nil {
		return fmt.Errorf("failed to clear journal entry accounts: %w", err)
	}

	for _, account := range accounts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO journal_entry_accounts (
				parent, account, party_type, account_currency, credit, debit
			) VALUES (?, ?, ?, ?, ?, ?)`,
			entry.Name, account.Account, account.PartyType,
			account.AccountCurrency, account.Credit, account.Debit); err != nil {
			return fmt.Errorf("failed to save journal entry account: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit journal entry: %w", err)
	}
	return nil
}

// SaveSalesInvoice inserts or replaces a sales invoice and its payment rows.
func (s *SQLiteStorage) SaveSalesInvoice(ctx context.Context, invoice *model.SalesInvoice, payments []model.SalesInvoicePayment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if invoice == nil {
		return fmt.Errorf("sales invoice cannot be nil")
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO sales_invoices (
			name, customer, posting_date, currency, grand_total,
			outstanding_amount, is_return, docstatus
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.Name, invoice.Customer, invoice.PostingDate, invoice.Currency,
		invoice.GrandTotal, invoice.OutstandingAmount, invoice.IsReturn,
		invoice.DocStatus); err != nil {
		return fmt.Errorf("failed to save sales invoice: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sales_invoice_payments WHERE parent = ?`, invoice.Name); err != nil {
		return fmt.Errorf("failed to clear sales invoice payments: %w", err)
	}

	for _, payment := range payments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sales_invoice_payments (parent, account, amount, clearance_date)
			VALUES (?, ?, ?, ?)`,
			invoice.Name, payment.Account, payment.Amount, payment.ClearanceDate); err != nil {
			return fmt.Errorf("failed to save sales invoice payment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sales invoice: %w", err)
	}
	return nil
}

// SavePurchaseInvoice inserts or replaces a purchase invoice.
func (s *SQLiteStorage) SavePurchaseInvoice(ctx context.Context, invoice *model.PurchaseInvoice) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if invoice == nil {
		return fmt.Errorf("purchase invoice cannot be nil")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO purchase_invoices (
			name, supplier, posting_date, currency, cash_bank_account,
			grand_total, outstanding_amount, paid_amount, is_paid, is_return,
			clearance_date, docstatus
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.Name, invoice.Supplier, invoice.PostingDate, invoice.Currency,
		invoice.CashBankAccount, invoice.GrandTotal, invoice.OutstandingAmount,
		invoice.PaidAmount, invoice.IsPaid, invoice.IsReturn,
		invoice.ClearanceDate, invoice.DocStatus)
	if err != nil {
		return fmt.Errorf("failed to save purchase invoice: %w", err)
	}
	return nil
}

// SaveLoanDisbursement inserts or replaces a loan disbursement.
func (s *SQLiteStorage) SaveLoanDisbursement(ctx context.Context, loan *model.LoanDisbursement) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if loan == nil {
		return fmt.Errorf("loan disbursement cannot be nil")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO loan_disbursements (
			name, applicant_type, applicant, disbursed_amount, reference_number,
			reference_date, disbursement_date, disbursement_account,
			clearance_date, docstatus
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.Name, loan.ApplicantType, loan.Applicant, loan.DisbursedAmount,
		loan.ReferenceNumber, nullableTime(loan.ReferenceDate),
		loan.DisbursementDate, loan.DisbursementAccount,
		loan.ClearanceDate, loan.DocStatus)
	if err != nil {
		return fmt.Errorf("failed to save loan disbursement: %w", err)
	}
	return nil
}

// SaveLoanRepayment inserts or replaces a loan repayment.
func (s *SQLiteStorage) SaveLoanRepayment(ctx context.Context, loan *model.LoanRepayment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if loan == nil {
		return fmt.Errorf("loan repayment cannot be nil")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO loan_repayments (
			name, applicant_type, applicant, amount_paid, reference_number,
			reference_date, posting_date, payment_account, repay_from_salary,
			clearance_date, docstatus
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loan.Name, loan.ApplicantType, loan.Applicant, loan.AmountPaid,
		loan.ReferenceNumber, nullableTime(loan.ReferenceDate),
		loan.PostingDate, loan.PaymentAccount, loan.RepayFromSalary,
		loan.ClearanceDate, loan.DocStatus)
	if err != nil {
		return fmt.Errorf("failed to save loan repayment: %w", err)
	}
	return nil
}

// GetVoucherClaim returns the claimable amount and lifecycle state of a
// voucher, regardless of its variant.
func (s *SQLiteStorage) GetVoucherClaim(ctx context.Context, doctype, name string) (*model.VoucherClaim, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return getVoucherClaim(ctx, s.db, doctype, name)
}

// claimQueries maps each voucher variant to a query producing the uniform
// (paid_amount, docstatus, clearance_date) projection. The journal entry
// claim is the largest single leg, which is what a bank-side leg carries.
var claimQueries = map[string]string{
	model.DoctypePaymentEntry: `
		SELECT paid_amount, docstatus, clearance_date FROM payment_entries WHERE name = ?`,
	model.DoctypeJournalEntry: `
		SELECT (SELECT IFNULL(MAX(MAX(credit, debit)), 0)
			FROM journal_entry_accounts WHERE parent = je.name),
			je.docstatus, je.clearance_date
		FROM journal_entries je WHERE je.name = ?`,
	model.DoctypeSalesInvoice: `
		SELECT CASE
			WHEN EXISTS (SELECT 1 FROM sales_invoice_payments WHERE parent = si.name)
			THEN (SELECT SUM(amount) FROM sales_invoice_payments WHERE parent = si.name)
			ELSE si.outstanding_amount
		END,
			si.docstatus,
			(SELECT MIN(clearance_date) FROM sales_invoice_payments WHERE parent = si.name)
		FROM sales_invoices si WHERE si.name = ?`,
	model.DoctypePurchaseInvoice: `
		SELECT CASE WHEN is_paid = 1 THEN paid_amount ELSE outstanding_amount END,
			docstatus, clearance_date
		FROM purchase_invoices WHERE name = ?`,
	model.DoctypeLoanDisbursement: `
		SELECT disbursed_amount, docstatus, clearance_date FROM loan_disbursements WHERE name = ?`,
	model.DoctypeLoanRepayment: `
		SELECT amount_paid, docstatus, clearance_date FROM loan_repayments WHERE name = ?`,
	model.DoctypeBankTransaction: `
		SELECT unallocated_amount, docstatus, NULL FROM bank_transactions WHERE name = ?`,
}

func getVoucherClaim(ctx context.Context, q rowQuerier, doctype, name string) (*model.VoucherClaim, error) {
	query, ok := claimQueries[doctype]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDoctype, doctype)
	}

	claim := &model.VoucherClaim{Doctype: doctype, Name: name}
	var paidAmount sql.NullFloat64
	var clearance sql.NullString
	err := q.QueryRowContext(ctx, query, name).Scan(&paidAmount, &claim.DocStatus, &clearance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", ErrVoucherNotFound, doctype, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s %s: %w", doctype, name, err)
	}

	claim.PaidAmount = paidAmount.Float64
	if clearance.Valid {
		claim.ClearanceDate = &clearance.String
	}
	return claim, nil
}

// nullableTime converts a zero time into NULL so DATE columns stay clean.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
