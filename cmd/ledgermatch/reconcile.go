package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mhodges/ledgermatch/internal/model"
)

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <transaction> <doctype:name:amount>...",
		Short: "Reconcile vouchers against a bank transaction",
		Long: `Apply one or more vouchers to a bank transaction. Each voucher is
given as doctype:name:amount, where doctype is one of payment_entry,
journal_entry, sales_invoice, purchase_invoice, loan_disbursement,
loan_repayment, or bank_transaction.

Allocations are clamped to the transaction's remaining unallocated
amount; a voucher already reconciled against the transaction is skipped.

Examples:
  ledgermatch reconcile TXN-0042 payment_entry:PE-00123:250.00
  ledgermatch reconcile TXN-0042 payment_entry:PE-00123:100.00 journal_entry:JE-0007:150.00`,
		Args: cobra.MinimumNArgs(2),
		RunE: runReconcile,
	}
}

func runReconcile(cmd *cobra.Command, args []string) error {
	transactionName := args[0]

	vouchers := make([]model.VoucherRef, 0, len(args)-1)
	for _, arg := range args[1:] {
		voucher, err := parseVoucherArg(arg)
		if err != nil {
			return err
		}
		vouchers = append(vouchers, voucher)
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	updated, err := store.ReconcileVouchers(ctx, transactionName, vouchers)
	if err != nil {
		return err
	}

	fmt.Printf("Transaction %s: status %s, unallocated %.2f\n",
		updated.Name, updated.Status, updated.UnallocatedAmount)
	return nil
}
