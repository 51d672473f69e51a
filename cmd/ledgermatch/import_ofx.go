package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mhodges/ledgermatch/internal/model"
	"github.com/mhodges/ledgermatch/internal/ofx"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import bank transactions from OFX/QFX files",
		Long: `Import bank statement files exported from your bank. Transactions
are stored against the given bank account; statement lines already in
the database are skipped.

Examples:
  ledgermatch import-ofx --bank-account "Checking - ACME Bank" ~/Downloads/jan_2026.qfx
  ledgermatch import-ofx --bank-account "Checking - ACME Bank" ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().String("bank-account", "", "bank account to import into (required)")
	cmd.Flags().String("company", "", "company the transactions belong to")
	cmd.Flags().BoolP("dry-run", "d", false, "preview import without saving")
	_ = cmd.MarkFlagRequired("bank-account")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	bankAccount, _ := cmd.Flags().GetString("bank-account")
	company, _ := cmd.Flags().GetString("company")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}
	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
	}

	parser := ofx.NewParser()
	ctx := cmd.Context()

	var transactions []model.BankTransaction
	seen := make(map[string]bool)

	for _, filePath := range allFiles {
		f, err := os.Open(filePath)
		if err != nil {
			slog.Error("Failed to open file", "file", filePath, "error", err)
			continue
		}

		parsed, err := parser.ParseFile(ctx, f, bankAccount, company)
		_ = f.Close()
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", filePath, "error", err)
			continue
		}

		added := 0
		for _, txn := range parsed {
			if seen[txn.Name] {
				continue
			}
			seen[txn.Name] = true
			transactions = append(transactions, txn)
			added++
		}

		slog.Info("Processed file",
			"file", filepath.Base(filePath),
			"transactions_found", len(parsed),
			"added", added,
			"duplicates", len(parsed)-added)
	}

	if len(transactions) == 0 {
		slog.Warn("No transactions found in any file")
		return nil
	}

	if dryRun {
		fmt.Printf("Dry run: would import %d transactions into %s\n", len(transactions), bankAccount)
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveBankTransactions(ctx, transactions); err != nil {
		return err
	}

	fmt.Printf("Imported %d transactions into %s\n", len(transactions), bankAccount)
	return nil
}
