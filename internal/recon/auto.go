package recon

import (
	"context"
	"log/slog"
	"time"

	"github.com/mhodges/ledgermatch/internal/model"
	"github.com/mhodges/ledgermatch/internal/service"
)

// autoReconcileDocumentTypes are the voucher types considered during
// unattended reconciliation. Invoices and loans stay out: without a human
// confirming, only explicit payment vouchers are safe to clear.
var autoReconcileDocumentTypes = []string{
	model.DocTypePaymentEntry,
	model.DocTypeJournalEntry,
}

// AutoReconcileOptions bounds a batch run. Filter selects the
// transactions; its date window also bounds the candidate vouchers by
// posting date. With FilterByReference set, candidates are bounded by
// reference date instead, using the reference-date pair.
type AutoReconcileOptions struct {
	Filter            service.TransactionFilter
	FromReferenceDate *time.Time
	ToReferenceDate   *time.Time
	FilterByReference bool
}

// AutoReconcileResult summarizes one batch run.
type AutoReconcileResult struct {
	Reconciled          []string
	PartiallyReconciled []string
	Processed           int
	Skipped             int
	Failed              int
}

// AutoReconcile walks every unreconciled transaction in the filter window,
// oldest first, and applies all strict-reference candidates to each. A
// transaction with no candidates is skipped silently; one that errors is
// logged and counted but does not stop the batch. The progress callback, if
// non-nil, is invoked after every transaction.
func (s *Service) AutoReconcile(ctx context.Context, opts AutoReconcileOptions, progress func(done, total int)) (*AutoReconcileResult, error) {
	transactions, err := s.storage.GetUnreconciledTransactions(ctx, opts.Filter)
	if err != nil {
		return nil, err
	}

	result := &AutoReconcileResult{}
	for i, txn := range transactions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Processed++

		candidates, err := s.GetLinkedPayments(ctx, txn.Name, LinkedPaymentOptions{
			FromDate:          opts.Filter.FromDate,
			ToDate:            opts.Filter.ToDate,
			FromReferenceDate: opts.FromReferenceDate,
			ToReferenceDate:   opts.ToReferenceDate,
			FilterByReference: opts.FilterByReference,
			DocumentTypes:     autoReconcileDocumentTypes,
			StrictReference:   true,
		})
		if err != nil {
			slog.Error("Auto-reconcile matching failed",
				"transaction", txn.Name, "error", err)
			result.Failed++
			if progress != nil {
				progress(i+1, len(transactions))
			}
			continue
		}
		if len(candidates) == 0 {
			result.Skipped++
			if progress != nil {
				progress(i+1, len(transactions))
			}
			continue
		}

		vouchers := make([]model.VoucherRef, 0, len(candidates))
		for _, candidate := range candidates {
			vouchers = append(vouchers, candidate.Ref())
		}

		updated, err := s.storage.ReconcileVouchers(ctx, txn.Name, vouchers)
		if err != nil {
			slog.Error("Auto-reconcile application failed",
				"transaction", txn.Name, "error", err)
			result.Failed++
			if progress != nil {
				progress(i+1, len(transactions))
			}
			continue
		}

		switch {
		case updated.Status == model.StatusReconciled:
			result.Reconciled = append(result.Reconciled, txn.Name)
		case updated.UnallocatedAmount != txn.UnallocatedAmount:
			result.PartiallyReconciled = append(result.PartiallyReconciled, txn.Name)
		default:
			result.Skipped++
		}

		if progress != nil {
			progress(i+1, len(transactions))
		}
	}

	slog.Info("Auto-reconcile run complete",
		"processed", result.Processed,
		"reconciled", len(result.Reconciled),
		"partially_reconciled", len(result.PartiallyReconciled),
		"skipped", result.Skipped,
		"failed", result.Failed)

	return result, nil
}
