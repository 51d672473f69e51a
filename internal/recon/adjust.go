package recon

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mhodges/ledgermatch/internal/model"
	"github.com/mhodges/ledgermatch/internal/service"
)

// subtractAllocations adjusts each candidate's claimable amount by what has
// already been allocated to it against the given GL account, so a voucher
// partially consumed by earlier reconciliations is only offered for its
// remainder. Every candidate stays in the list; a fully consumed one is
// returned with a zero amount.
func subtractAllocations(ctx context.Context, storage service.Storage, glAccount string, candidates []model.MatchCandidate) ([]model.MatchCandidate, error) {
	adjusted := make([]model.MatchCandidate, 0, len(candidates))

	for _, candidate := range candidates {
		totals, err := storage.GetAllocationTotals(ctx, candidate.Doctype, candidate.Name)
		if err != nil {
			return nil, err
		}

		remaining := decimal.NewFromFloat(candidate.PaidAmount)
		for _, total := range totals {
			if total.GLAccount != glAccount {
				continue
			}
			remaining = remaining.Sub(decimal.NewFromFloat(total.Total))
		}

		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		candidate.PaidAmount = remaining.InexactFloat64()
		adjusted = append(adjusted, candidate)
	}

	return adjusted, nil
}
