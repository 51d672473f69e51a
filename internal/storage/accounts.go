package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mhodges/ledgermatch/internal/model"
)

// SaveAccount upserts a ledger account.
func (s *SQLiteStorage) SaveAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("account cannot be nil")
	}
	if err := validateString(account.Name, "account name"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (name, account_type, company)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET account_type = excluded.account_type, company = excluded.company`,
		account.Name, account.AccountType, account.Company)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// GetAccount retrieves a ledger account by name.
func (s *SQLiteStorage) GetAccount(ctx context.Context, name string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var account model.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT name, account_type, company FROM accounts WHERE name = ?`, name).
		Scan(&account.Name, &account.AccountType, &account.Company)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &account, nil
}

// SaveBankAccount upserts a bank account.
func (s *SQLiteStorage) SaveBankAccount(ctx context.Context, account *model.BankAccount) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("bank account cannot be nil")
	}
	if err := validateString(account.Name, "bank account name"); err != nil {
		return err
	}
	if err := validateString(account.Account, "bank account GL account"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bank_accounts (name, account, company)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET account = excluded.account, company = excluded.company`,
		account.Name, account.Account, account.Company)
	if err != nil {
		return fmt.Errorf("failed to save bank account: %w", err)
	}
	return nil
}

// GetBankAccount retrieves a bank account with its GL account and company.
func (s *SQLiteStorage) GetBankAccount(ctx context.Context, name string) (*model.BankAccount, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var account model.BankAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT name, account, company FROM bank_accounts WHERE name = ?`, name).
		Scan(&account.Name, &account.Account, &account.Company)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBankAccountNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query bank account: %w", err)
	}
	return &account, nil
}
