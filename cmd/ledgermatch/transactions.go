package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhodges/ledgermatch/internal/service"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List unreconciled bank transactions",
		Long: `List submitted bank transactions that still have an unallocated
amount, oldest first.

Examples:
  ledgermatch transactions --bank-account "Checking - ACME Bank"
  ledgermatch transactions --bank-account "Checking - ACME Bank" --from 2026-01-01 --to 2026-06-30`,
		RunE: runTransactions,
	}

	cmd.Flags().String("bank-account", "", "bank account to list transactions for (required)")
	cmd.Flags().String("from", "", "only transactions on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "only transactions on or before this date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("bank-account")

	return cmd
}

func runTransactions(cmd *cobra.Command, _ []string) error {
	bankAccount, _ := cmd.Flags().GetString("bank-account")
	fromDate, err := parseDateFlag(cmd, "from")
	if err != nil {
		return err
	}
	toDate, err := parseDateFlag(cmd, "to")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	transactions, err := store.GetUnreconciledTransactions(ctx, service.TransactionFilter{
		BankAccount: bankAccount,
		FromDate:    fromDate,
		ToDate:      toDate,
	})
	if err != nil {
		return err
	}

	if len(transactions) == 0 {
		fmt.Println("No unreconciled transactions found.")
		return nil
	}

	fmt.Printf("%-30s %-12s %10s %10s %12s  %s\n",
		"NAME", "DATE", "DEPOSIT", "WITHDRAWAL", "UNALLOCATED", "DESCRIPTION")
	for _, txn := range transactions {
		fmt.Printf("%-30s %-12s %10.2f %10.2f %12.2f  %s\n",
			txn.Name,
			txn.Date.Format(dateLayout),
			txn.Deposit,
			txn.Withdrawal,
			txn.UnallocatedAmount,
			txn.Description)
	}
	fmt.Printf("\n%d transactions\n", len(transactions))

	return nil
}
