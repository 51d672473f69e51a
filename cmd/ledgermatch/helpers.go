package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mhodges/ledgermatch/internal/config"
	"github.com/mhodges/ledgermatch/internal/matcher"
	"github.com/mhodges/ledgermatch/internal/model"
	"github.com/mhodges/ledgermatch/internal/recon"
	"github.com/mhodges/ledgermatch/internal/service"
	"github.com/mhodges/ledgermatch/internal/storage"
)

// initStorage opens the database with migrations applied.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/ledgermatch/ledgermatch.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initReconService wires storage into the reconciliation service.
func initReconService(store service.Storage) *recon.Service {
	m := matcher.New(store.Querier(), nil)
	return recon.NewService(store, m)
}

const dateLayout = "2006-01-02"

// parseDateFlag reads an optional YYYY-MM-DD flag.
func parseDateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	value, _ := cmd.Flags().GetString(name)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q, expected YYYY-MM-DD: %w", name, value, err)
	}
	return &parsed, nil
}

// voucherDoctypes maps the CLI document-type keys onto voucher doctypes.
var voucherDoctypes = map[string]string{
	model.DocTypePaymentEntry:     model.DoctypePaymentEntry,
	model.DocTypeJournalEntry:     model.DoctypeJournalEntry,
	model.DocTypeSalesInvoice:     model.DoctypeSalesInvoice,
	model.DocTypePurchaseInvoice:  model.DoctypePurchaseInvoice,
	model.DocTypeLoanDisbursement: model.DoctypeLoanDisbursement,
	model.DocTypeLoanRepayment:    model.DoctypeLoanRepayment,
	model.DocTypeBankTransaction:  model.DoctypeBankTransaction,
}

// parseVoucherArg parses a "doctype:name:amount" argument, with doctype
// given as a request key like payment_entry.
func parseVoucherArg(arg string) (model.VoucherRef, error) {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) != 3 {
		return model.VoucherRef{}, fmt.Errorf("invalid voucher %q, expected doctype:name:amount", arg)
	}

	doctype, ok := voucherDoctypes[parts[0]]
	if !ok {
		return model.VoucherRef{}, fmt.Errorf("unknown voucher doctype %q", parts[0])
	}

	amount, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return model.VoucherRef{}, fmt.Errorf("invalid voucher amount %q: %w", parts[2], err)
	}

	return model.VoucherRef{Doctype: doctype, Name: parts[1], Amount: amount}, nil
}
