package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mhodges/ledgermatch/internal/model"
	"github.com/mhodges/ledgermatch/internal/service"
)

const bankTransactionColumns = `name, date, description, deposit, withdrawal, currency,
	bank_account, company, unallocated_amount, reference_number, party_type, party,
	status, docstatus`

// SaveBankTransactions upserts a batch of bank transactions. Re-importing a
// statement is a no-op for transactions that already exist: allocation state
// is never overwritten by an import.
func (s *SQLiteStorage) SaveBankTransactions(ctx context.Context, transactions []model.BankTransaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for i := range transactions {
		if err := transactions[i].Validate(); err != nil {
			return fmt.Errorf("invalid bank transaction: %w", err)
		}
	}

	tx, rollback, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO bank_transactions (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING`, bankTransactionColumns))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Error("failed to close statement", "error", err)
		}
	}()

	saved := 0
	for _, t := range transactions {
		res, err := stmt.ExecContext(ctx,
			t.Name, t.Date, t.Description, t.Deposit, t.Withdrawal, t.Currency,
			t.BankAccount, t.Company, t.UnallocatedAmount, t.ReferenceNumber,
			t.PartyType, t.Party, t.Status, t.DocStatus,
		)
		if err != nil {
			return fmt.Errorf("failed to save bank transaction %s: %w", t.Name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			saved++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bank transactions: %w", err)
	}

	slog.Info("Saved bank transactions", "received", len(transactions), "new", saved)
	return nil
}

// GetBankTransaction retrieves one bank transaction by name.
func (s *SQLiteStorage) GetBankTransaction(ctx context.Context, name string) (*model.BankTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return getBankTransaction(ctx, s.db, name)
}

func getBankTransaction(ctx context.Context, q service.Querier, name string) (*model.BankTransaction, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM bank_transactions WHERE name = ?`, bankTransactionColumns), name)
	if err != nil {
		return nil, fmt.Errorf("failed to query bank transaction: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read bank transaction: %w", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, name)
	}

	t, err := scanBankTransaction(rows)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanBankTransaction(rows *sql.Rows) (*model.BankTransaction, error) {
	var t model.BankTransaction
	if err := rows.Scan(
		&t.Name, &t.Date, &t.Description, &t.Deposit, &t.Withdrawal, &t.Currency,
		&t.BankAccount, &t.Company, &t.UnallocatedAmount, &t.ReferenceNumber,
		&t.PartyType, &t.Party, &t.Status, &t.DocStatus,
	); err != nil {
		return nil, fmt.Errorf("failed to scan bank transaction: %w", err)
	}
	return &t, nil
}

// GetUnreconciledTransactions returns submitted transactions with a positive
// unallocated amount for a bank account, date ascending, optionally bounded.
func (s *SQLiteStorage) GetUnreconciledTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.BankTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(filter.BankAccount, "bankAccount"); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM bank_transactions
		WHERE bank_account = ?
		AND docstatus = 1
		AND unallocated_amount > 0`, bankTransactionColumns)
	args := []any{filter.BankAccount}

	if filter.FromDate != nil {
		query += ` AND date >= ?`
		args = append(args, *filter.FromDate)
	}
	if filter.ToDate != nil {
		query += ` AND date <= ?`
		args = append(args, *filter.ToDate)
	}
	query += ` ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bank transactions: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	transactions := []model.BankTransaction{}
	for rows.Next() {
		t, err := scanBankTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bank transactions: %w", err)
	}

	return transactions, nil
}

// IsNotFound reports whether an error is one of the storage not-found
// sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrBankAccountNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrVoucherNotFound) ||
		errors.Is(err, ErrConsentNotFound)
}
