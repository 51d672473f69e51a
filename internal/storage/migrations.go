package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Core ledger schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS accounts (
					name TEXT PRIMARY KEY,
					account_type TEXT NOT NULL DEFAULT '',
					company TEXT NOT NULL DEFAULT ''
				)`,

				`CREATE TABLE IF NOT EXISTS bank_accounts (
					name TEXT PRIMARY KEY,
					account TEXT NOT NULL,
					company TEXT NOT NULL DEFAULT ''
				)`,

				`CREATE TABLE IF NOT EXISTS bank_transactions (
					name TEXT PRIMARY KEY,
					date DATETIME NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					deposit REAL NOT NULL DEFAULT 0,
					withdrawal REAL NOT NULL DEFAULT 0,
					currency TEXT NOT NULL DEFAULT '',
					bank_account TEXT NOT NULL,
					company TEXT NOT NULL DEFAULT '',
					unallocated_amount REAL NOT NULL DEFAULT 0,
					reference_number TEXT NOT NULL DEFAULT '',
					party_type TEXT NOT NULL DEFAULT '',
					party TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL DEFAULT 'Unreconciled',
					docstatus INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_bank_transactions_date ON bank_transactions(date)`,
				`CREATE INDEX idx_bank_transactions_account ON bank_transactions(bank_account)`,

				`CREATE TABLE IF NOT EXISTS payment_entries (
					name TEXT PRIMARY KEY,
					payment_type TEXT NOT NULL,
					posting_date DATETIME NOT NULL,
					reference_no TEXT NOT NULL DEFAULT '',
					reference_date DATETIME,
					party_type TEXT NOT NULL DEFAULT '',
					party TEXT NOT NULL DEFAULT '',
					paid_from TEXT NOT NULL DEFAULT '',
					paid_to TEXT NOT NULL DEFAULT '',
					paid_from_account_currency TEXT NOT NULL DEFAULT '',
					paid_to_account_currency TEXT NOT NULL DEFAULT '',
					paid_amount REAL NOT NULL DEFAULT 0,
					clearance_date DATETIME,
					docstatus INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_payment_entries_posting ON payment_entries(posting_date)`,

				`CREATE TABLE IF NOT EXISTS journal_entries (
					name TEXT PRIMARY KEY,
					voucher_type TEXT NOT NULL DEFAULT '',
					posting_date DATETIME NOT NULL,
					cheque_no TEXT NOT NULL DEFAULT '',
					cheque_date DATETIME,
					pay_to_recd_from TEXT NOT NULL DEFAULT '',
					clearance_date DATETIME,
					docstatus INTEGER NOT NULL DEFAULT 0
				)`,

				`CREATE TABLE IF NOT EXISTS journal_entry_accounts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					parent TEXT NOT NULL REFERENCES journal_entries(name),
					account TEXT NOT NULL,
					party_type TEXT NOT NULL DEFAULT '',
					account_currency TEXT NOT NULL DEFAULT '',
					credit REAL NOT NULL DEFAULT 0,
					debit REAL NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_jea_parent ON journal_entry_accounts(parent)`,
				`CREATE INDEX idx_jea_account ON journal_entry_accounts(account)`,

				`CREATE TABLE IF NOT EXISTS sales_invoices (
					name TEXT PRIMARY KEY,
					customer TEXT NOT NULL,
					posting_date DATETIME NOT NULL,
					currency TEXT NOT NULL DEFAULT '',
					grand_total REAL NOT NULL DEFAULT 0,
					outstanding_amount REAL NOT NULL DEFAULT 0,
					is_return INTEGER NOT NULL DEFAULT 0,
					docstatus INTEGER NOT NULL DEFAULT 0
				)`,

				`CREATE TABLE IF NOT EXISTS sales_invoice_payments (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					parent TEXT NOT NULL REFERENCES sales_invoices(name),
					account TEXT NOT NULL,
					amount REAL NOT NULL DEFAULT 0,
					clearance_date DATETIME
				)`,
				`CREATE INDEX idx_sip_parent ON sales_invoice_payments(parent)`,

				`CREATE TABLE IF NOT EXISTS purchase_invoices (
					name TEXT PRIMARY KEY,
					supplier TEXT NOT NULL,
					posting_date DATETIME NOT NULL,
					currency TEXT NOT NULL DEFAULT '',
					cash_bank_account TEXT NOT NULL DEFAULT '',
					grand_total REAL NOT NULL DEFAULT 0,
					outstanding_amount REAL NOT NULL DEFAULT 0,
					paid_amount REAL NOT NULL DEFAULT 0,
					is_paid INTEGER NOT NULL DEFAULT 0,
					is_return INTEGER NOT NULL DEFAULT 0,
					clearance_date DATETIME,
					docstatus INTEGER NOT NULL DEFAULT 0
				)`,

				`CREATE TABLE IF NOT EXISTS allocations (
					id TEXT PRIMARY KEY,
					bank_transaction TEXT NOT NULL REFERENCES bank_transactions(name),
					voucher_doctype TEXT NOT NULL,
					voucher_name TEXT NOT NULL,
					gl_account TEXT NOT NULL,
					amount REAL NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE UNIQUE INDEX idx_allocations_txn_voucher
					ON allocations(bank_transaction, voucher_doctype, voucher_name)`,
				`CREATE INDEX idx_allocations_voucher ON allocations(voucher_doctype, voucher_name)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Loan disbursement and repayment vouchers",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS loan_disbursements (
					name TEXT PRIMARY KEY,
					applicant_type TEXT NOT NULL DEFAULT '',
					applicant TEXT NOT NULL DEFAULT '',
					disbursed_amount REAL NOT NULL DEFAULT 0,
					reference_number TEXT NOT NULL DEFAULT '',
					reference_date DATETIME,
					disbursement_date DATETIME NOT NULL,
					disbursement_account TEXT NOT NULL,
					clearance_date DATETIME,
					docstatus INTEGER NOT NULL DEFAULT 0
				)`,

				`CREATE TABLE IF NOT EXISTS loan_repayments (
					name TEXT PRIMARY KEY,
					applicant_type TEXT NOT NULL DEFAULT '',
					applicant TEXT NOT NULL DEFAULT '',
					amount_paid REAL NOT NULL DEFAULT 0,
					reference_number TEXT NOT NULL DEFAULT '',
					reference_date DATETIME,
					posting_date DATETIME NOT NULL,
					payment_account TEXT NOT NULL,
					repay_from_salary INTEGER NOT NULL DEFAULT 0,
					clearance_date DATETIME,
					docstatus INTEGER NOT NULL DEFAULT 0
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Open-banking consent storage",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS consents (
					company TEXT PRIMARY KEY,
					consent_id TEXT NOT NULL,
					consent_token TEXT NOT NULL,
					consent_expiry DATETIME NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`)
			if err != nil {
				return fmt.Errorf("failed to create consents table: %w", err)
			}
			return nil
		},
	},
}

// Migrate brings the database schema up to the expected version.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_versions (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}

	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Description, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO schema_versions (version, description) VALUES (?, ?)`,
			migration.Version, migration.Description,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	final, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if final != ExpectedSchemaVersion {
		return fmt.Errorf("schema version %d does not match expected version %d", final, ExpectedSchemaVersion)
	}

	return nil
}

func (s *SQLiteStorage) schemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_versions`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}
