package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhodges/ledgermatch/internal/model"
	"github.com/mhodges/ledgermatch/internal/recon"
)

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <transaction>",
		Short: "Find candidate vouchers for a bank transaction",
		Long: `Find and rank accounting vouchers that could correspond to a bank
transaction. Candidate amounts are already reduced by previous
reconciliations.

Examples:
  ledgermatch match TXN-0042
  ledgermatch match TXN-0042 --document-types payment_entry,journal_entry --exact
  ledgermatch match TXN-0042 --unpaid-invoices --exact-party`,
		Args: cobra.ExactArgs(1),
		RunE: runMatch,
	}

	cmd.Flags().StringSlice("document-types", []string{
		model.DocTypePaymentEntry,
		model.DocTypeJournalEntry,
		model.DocTypeSalesInvoice,
		model.DocTypePurchaseInvoice,
		model.DocTypeBankTransaction,
	}, "document types to search")
	cmd.Flags().Bool("exact", false, "only offer vouchers with the exact unallocated amount")
	cmd.Flags().Bool("exact-party", false, "only offer vouchers of the transaction's party")
	cmd.Flags().Bool("unpaid-invoices", false, "offer outstanding invoices instead of paid ones")
	cmd.Flags().String("from", "", "posting date lower bound (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "posting date upper bound (YYYY-MM-DD)")
	cmd.Flags().String("from-reference-date", "", "reference date lower bound (YYYY-MM-DD)")
	cmd.Flags().String("to-reference-date", "", "reference date upper bound (YYYY-MM-DD)")
	cmd.Flags().Bool("by-reference-date", false, "filter and order by reference date instead of posting date")

	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	documentTypes, _ := cmd.Flags().GetStringSlice("document-types")
	exact, _ := cmd.Flags().GetBool("exact")
	exactParty, _ := cmd.Flags().GetBool("exact-party")
	unpaid, _ := cmd.Flags().GetBool("unpaid-invoices")
	byReference, _ := cmd.Flags().GetBool("by-reference-date")

	if exact {
		documentTypes = append(documentTypes, model.DocTypeExactMatch)
	}
	if exactParty {
		documentTypes = append(documentTypes, model.DocTypeExactPartyMatch)
	}
	if unpaid {
		documentTypes = append(documentTypes, model.DocTypeUnpaidInvoices)
	}

	opts := recon.LinkedPaymentOptions{
		DocumentTypes:     documentTypes,
		FilterByReference: byReference,
	}
	var err error
	if opts.FromDate, err = parseDateFlag(cmd, "from"); err != nil {
		return err
	}
	if opts.ToDate, err = parseDateFlag(cmd, "to"); err != nil {
		return err
	}
	if opts.FromReferenceDate, err = parseDateFlag(cmd, "from-reference-date"); err != nil {
		return err
	}
	if opts.ToReferenceDate, err = parseDateFlag(cmd, "to-reference-date"); err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	candidates, err := initReconService(store).GetLinkedPayments(ctx, args[0], opts)
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		fmt.Println("No matching vouchers found.")
		return nil
	}

	fmt.Printf("%-4s %-20s %-25s %10s %-15s %s\n",
		"RANK", "DOCTYPE", "NAME", "AMOUNT", "REFERENCE", "PARTY")
	for _, c := range candidates {
		fmt.Printf("%-4d %-20s %-25s %10.2f %-15s %s\n",
			c.Rank, c.Doctype, c.Name, c.PaidAmount, c.ReferenceNo, c.Party)
	}
	fmt.Printf("\n%d candidates\n", len(candidates))

	return nil
}
