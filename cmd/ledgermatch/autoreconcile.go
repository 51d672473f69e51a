package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mhodges/ledgermatch/internal/recon"
	"github.com/mhodges/ledgermatch/internal/service"
)

func autoReconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auto-reconcile",
		Short: "Reconcile a batch of transactions without interaction",
		Long: `Walk every unreconciled transaction for a bank account, oldest
first, and apply all payment entries and journal entries whose reference
number matches the transaction's. Transactions without a confident match
are left untouched.

Examples:
  ledgermatch auto-reconcile --bank-account "Checking - ACME Bank"
  ledgermatch auto-reconcile --bank-account "Checking - ACME Bank" --from 2026-01-01`,
		RunE: runAutoReconcile,
	}

	cmd.Flags().String("bank-account", "", "bank account to reconcile (required)")
	cmd.Flags().String("from", "", "only transactions on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "only transactions on or before this date (YYYY-MM-DD)")
	cmd.Flags().Bool("by-reference-date", false, "bound candidate vouchers by reference date instead of posting date")
	cmd.Flags().String("from-reference-date", "", "only vouchers with a reference date on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("to-reference-date", "", "only vouchers with a reference date on or before this date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("bank-account")

	return cmd
}

func runAutoReconcile(cmd *cobra.Command, _ []string) error {
	bankAccount, _ := cmd.Flags().GetString("bank-account")
	fromDate, err := parseDateFlag(cmd, "from")
	if err != nil {
		return err
	}
	toDate, err := parseDateFlag(cmd, "to")
	if err != nil {
		return err
	}
	byReference, _ := cmd.Flags().GetBool("by-reference-date")
	fromRefDate, err := parseDateFlag(cmd, "from-reference-date")
	if err != nil {
		return err
	}
	toRefDate, err := parseDateFlag(cmd, "to-reference-date")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Reconciling"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	}

	result, err := initReconService(store).AutoReconcile(ctx, recon.AutoReconcileOptions{
		Filter: service.TransactionFilter{
			BankAccount: bankAccount,
			FromDate:    fromDate,
			ToDate:      toDate,
		},
		FromReferenceDate: fromRefDate,
		ToReferenceDate:   toRefDate,
		FilterByReference: byReference,
	}, progress)
	if err != nil {
		return err
	}

	fmt.Printf("\nProcessed %d transactions: %d reconciled, %d partially reconciled, %d skipped, %d failed\n",
		result.Processed,
		len(result.Reconciled),
		len(result.PartiallyReconciled),
		result.Skipped,
		result.Failed)
	for _, name := range result.Reconciled {
		fmt.Printf("  reconciled: %s\n", name)
	}
	for _, name := range result.PartiallyReconciled {
		fmt.Printf("  partial:    %s\n", name)
	}

	return nil
}
