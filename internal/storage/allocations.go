package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mhodges/ledgermatch/internal/common"
	"github.com/mhodges/ledgermatch/internal/model"
)

// GetAllocationTotals returns the amounts already allocated to a voucher,
// summed per GL account.
func (s *SQLiteStorage) GetAllocationTotals(ctx context.Context, doctype, name string) ([]model.AllocationTotal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(doctype, "doctype"); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT gl_account, SUM(amount)
		FROM allocations
		WHERE voucher_doctype = ? AND voucher_name = ?
		GROUP BY gl_account`, doctype, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation totals: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var totals []model.AllocationTotal
	for rows.Next() {
		var total model.AllocationTotal
		if err := rows.Scan(&total.GLAccount, &total.Total); err != nil {
			return nil, fmt.Errorf("failed to scan allocation total: %w", err)
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocation totals: %w", err)
	}

	return totals, nil
}

// ReconcileVouchers applies an ordered voucher list against a bank
// transaction inside a single database transaction. Each voucher is
// idempotent: a voucher already allocated against this transaction is
// skipped, never double-subtracted. Allocations are clamped to the remaining
// unallocated amount, so the transaction's unallocated_amount never goes
// negative even when the caller passes overlapping candidates. On any
// failure the whole application rolls back.
func (s *SQLiteStorage) ReconcileVouchers(ctx context.Context, transactionName string, vouchers []model.VoucherRef) (*model.BankTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionName, "transactionName"); err != nil {
		return nil, err
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer rollback()

	txn, err := getBankTransaction(ctx, tx, transactionName)
	if err != nil {
		return nil, err
	}
	if !txn.DocStatus.IsSubmitted() {
		return nil, common.NewUserError(
			fmt.Sprintf("bank transaction %s is not submitted", transactionName), nil)
	}
	if txn.UnallocatedAmount <= 0 {
		return nil, common.NewUserError(
			fmt.Sprintf("bank transaction %s has no unallocated amount left", transactionName),
			common.ErrNothingToAllocate)
	}

	var glAccount string
	err = tx.QueryRowContext(ctx,
		`SELECT account FROM bank_accounts WHERE name = ?`, txn.BankAccount).Scan(&glAccount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBankAccountNotFound, txn.BankAccount)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bank account: %w", err)
	}

	remaining := decimal.NewFromFloat(txn.UnallocatedAmount)
	allocated := 0

	for _, voucher := range vouchers {
		if remaining.IsZero() {
			break
		}
		if voucher.Doctype == "" || voucher.Name == "" {
			return nil, common.NewUserError("voucher doctype and name are required", nil)
		}
		if voucher.Doctype == model.DoctypeBankTransaction && voucher.Name == txn.Name {
			return nil, common.NewUserError(
				"a bank transaction cannot be reconciled against itself", nil)
		}

		var existing int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM allocations
			WHERE bank_transaction = ? AND voucher_doctype = ? AND voucher_name = ?`,
			txn.Name, voucher.Doctype, voucher.Name).Scan(&existing); err != nil {
			return nil, fmt.Errorf("failed to check existing allocation: %w", err)
		}
		if existing > 0 {
			slog.Debug("Voucher already allocated, skipping",
				"transaction", txn.Name, "doctype", voucher.Doctype, "voucher", voucher.Name)
			continue
		}

		claim, err := getVoucherClaim(ctx, tx, voucher.Doctype, voucher.Name)
		if err != nil {
			return nil, err
		}
		if !claim.DocStatus.IsSubmitted() {
			return nil, common.NewUserError(
				fmt.Sprintf("%s %s is not submitted", voucher.Doctype, voucher.Name), nil)
		}

		amount := decimal.NewFromFloat(voucher.Amount)
		if amount.GreaterThan(remaining) {
			amount = remaining
		}
		if !amount.IsPositive() {
			continue
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO allocations (id, bank_transaction, voucher_doctype, voucher_name, gl_account, amount)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), txn.Name, voucher.Doctype, voucher.Name,
			glAccount, amount.InexactFloat64()); err != nil {
			return nil, fmt.Errorf("failed to record allocation: %w", err)
		}

		if err := s.settleVoucher(ctx, tx, txn, claim, glAccount, amount); err != nil {
			return nil, err
		}

		remaining = remaining.Sub(amount)
		allocated++
	}

	status := txn.Status
	if remaining.IsZero() {
		status = model.StatusReconciled
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE bank_transactions SET unallocated_amount = ?, status = ? WHERE name = ?`,
		remaining.InexactFloat64(), status, txn.Name); err != nil {
		return nil, fmt.Errorf("failed to update bank transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reconciliation: %w", err)
	}

	slog.Info("Reconciled vouchers against transaction",
		"transaction", txn.Name,
		"vouchers_applied", allocated,
		"unallocated_amount", remaining.InexactFloat64(),
		"status", status)

	txn.UnallocatedAmount = remaining.InexactFloat64()
	txn.Status = status
	return txn, nil
}

// settleVoucher stamps the voucher's clearance date once its allocations
// cover its claimable amount. A bank-transaction voucher has no clearance
// date; its own unallocated amount is reduced instead so both sides of a
// transfer settle together.
func (s *SQLiteStorage) settleVoucher(ctx context.Context, tx *sql.Tx, txn *model.BankTransaction, claim *model.VoucherClaim, glAccount string, amount decimal.Decimal) error {
	if claim.Doctype == model.DoctypeBankTransaction {
		counterRemaining := decimal.NewFromFloat(claim.PaidAmount).Sub(amount)
		if counterRemaining.IsNegative() {
			counterRemaining = decimal.Zero
		}
		counterStatus := model.StatusUnreconciled
		if counterRemaining.IsZero() {
			counterStatus = model.StatusReconciled
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE bank_transactions SET unallocated_amount = ?, status = ? WHERE name = ?`,
			counterRemaining.InexactFloat64(), counterStatus, claim.Name); err != nil {
			return fmt.Errorf("failed to settle counterparty transaction: %w", err)
		}
		return nil
	}

	var total float64
	if err := tx.QueryRowContext(ctx, `
		SELECT IFNULL(SUM(amount), 0) FROM allocations
		WHERE voucher_doctype = ? AND voucher_name = ?`,
		claim.Doctype, claim.Name).Scan(&total); err != nil {
		return fmt.Errorf("failed to total voucher allocations: %w", err)
	}
	if decimal.NewFromFloat(total).LessThan(decimal.NewFromFloat(claim.PaidAmount)) {
		return nil
	}

	var query string
	var args []any
	switch claim.Doctype {
	case model.DoctypePaymentEntry:
		query = `UPDATE payment_entries SET clearance_date = ? WHERE name = ?`
		args = []any{txn.Date, claim.Name}
	case model.DoctypeJournalEntry:
		query = `UPDATE journal_entries SET clearance_date = ? WHERE name = ?`
		args = []any{txn.Date, claim.Name}
	case model.DoctypeSalesInvoice:
		query = `UPDATE sales_invoice_payments SET clearance_date = ? WHERE parent = ? AND account = ?`
		args = []any{txn.Date, claim.Name, glAccount}
	case model.DoctypePurchaseInvoice:
		query = `UPDATE purchase_invoices SET clearance_date = ? WHERE name = ?`
		args = []any{txn.Date, claim.Name}
	case model.DoctypeLoanDisbursement:
		query = `UPDATE loan_disbursements SET clearance_date = ? WHERE name = ?`
		args = []any{txn.Date, claim.Name}
	case model.DoctypeLoanRepayment:
		query = `UPDATE loan_repayments SET clearance_date = ? WHERE name = ?`
		args = []any{txn.Date, claim.Name}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownDoctype, claim.Doctype)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to stamp clearance on %s %s: %w", claim.Doctype, claim.Name, err)
	}
	return nil
}
