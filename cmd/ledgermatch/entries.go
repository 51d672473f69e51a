package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhodges/ledgermatch/internal/recon"
)

func createEntryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-entry",
		Short: "Create a voucher from an unmatched bank transaction",
	}

	cmd.AddCommand(createPaymentEntryCmd())
	cmd.AddCommand(createJournalEntryCmd())
	return cmd
}

func entryRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("reference", "", "reference number (defaults to the transaction's)")
	cmd.Flags().String("reference-date", "", "reference date (YYYY-MM-DD)")
	cmd.Flags().String("party-type", "", "party type, e.g. Customer or Supplier")
	cmd.Flags().String("party", "", "party name")
	cmd.Flags().String("second-account", "", "the non-bank account of the entry (required)")
	cmd.Flags().Bool("allow-edit", false, "save as draft instead of submitting and reconciling")
	_ = cmd.MarkFlagRequired("second-account")
}

func entryRequestFromFlags(cmd *cobra.Command, transactionName string) (recon.EntryRequest, error) {
	req := recon.EntryRequest{TransactionName: transactionName}
	req.ReferenceNumber, _ = cmd.Flags().GetString("reference")
	req.PartyType, _ = cmd.Flags().GetString("party-type")
	req.Party, _ = cmd.Flags().GetString("party")
	req.SecondAccount, _ = cmd.Flags().GetString("second-account")
	req.AllowEdit, _ = cmd.Flags().GetBool("allow-edit")

	referenceDate, err := parseDateFlag(cmd, "reference-date")
	if err != nil {
		return req, err
	}
	if referenceDate != nil {
		req.ReferenceDate = *referenceDate
	}
	return req, nil
}

func createPaymentEntryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment <transaction>",
		Short: "Create a payment entry for a transaction's unallocated amount",
		Long: `Create a payment entry covering the transaction's full unallocated
amount. Unless --allow-edit is given, the entry is submitted and
immediately reconciled against the transaction.

Example:
  ledgermatch create-entry payment TXN-0042 --party-type Customer --party "ACME Corp" --second-account "Debtors - AC"`,
		Args: cobra.ExactArgs(1),
		RunE: runCreatePaymentEntry,
	}

	entryRequestFlags(cmd)
	return cmd
}

func runCreatePaymentEntry(cmd *cobra.Command, args []string) error {
	req, err := entryRequestFromFlags(cmd, args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	name, updated, err := initReconService(store).CreatePaymentEntry(ctx, req)
	if err != nil {
		return err
	}

	if updated == nil {
		fmt.Printf("Created draft payment entry %s\n", name)
		return nil
	}
	fmt.Printf("Created payment entry %s; transaction %s now %s with %.2f unallocated\n",
		name, updated.Name, updated.Status, updated.UnallocatedAmount)
	return nil
}

func createJournalEntryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal <transaction>",
		Short: "Create a journal entry for a transaction's unallocated amount",
		Long: `Create a two-leg journal entry between the transaction's bank GL
account and a chosen second account. Unless --allow-edit is given, the
entry is submitted and immediately reconciled against the transaction.

Example:
  ledgermatch create-entry journal TXN-0042 --second-account "Bank Charges - AC" --entry-type "Bank Entry"`,
		Args: cobra.ExactArgs(1),
		RunE: runCreateJournalEntry,
	}

	entryRequestFlags(cmd)
	cmd.Flags().String("entry-type", "Bank Entry", "journal entry voucher type")
	return cmd
}

func runCreateJournalEntry(cmd *cobra.Command, args []string) error {
	req, err := entryRequestFromFlags(cmd, args[0])
	if err != nil {
		return err
	}
	req.EntryType, _ = cmd.Flags().GetString("entry-type")

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	name, updated, err := initReconService(store).CreateJournalEntry(ctx, req)
	if err != nil {
		return err
	}

	if updated == nil {
		fmt.Printf("Created draft journal entry %s\n", name)
		return nil
	}
	fmt.Printf("Created journal entry %s; transaction %s now %s with %.2f unallocated\n",
		name, updated.Name, updated.Status, updated.UnallocatedAmount)
	return nil
}
