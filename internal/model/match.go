package model

import "time"

// MatchFilters are the comparison keys extracted from a bank transaction and
// applied uniformly across all candidate query builders.
type MatchFilters struct {
	Amount      float64
	PaymentType string
	ReferenceNo string
	PartyType   string
	Party       string
	BankAccount string
}

// MatchCandidate is the common projection every voucher variant is reduced
// to when it is offered as a reconciliation candidate. Rank is the sum of
// the individual match flags plus a baseline of one.
type MatchCandidate struct {
	PostingDate            time.Time
	ReferenceDate          time.Time
	Doctype                string
	Name                   string
	ReferenceNo            string
	Party                  string
	PartyType              string
	Currency               string
	PaidAmount             float64
	Rank                   int
	ReferenceNumberMatch   int
	AmountMatch            int
	PartyMatch             int
	UnallocatedAmountMatch int
}

// Ref converts a candidate into the voucher reference used by the
// reconciliation applier, carrying its (allocation-adjusted) amount.
func (c MatchCandidate) Ref() VoucherRef {
	return VoucherRef{Doctype: c.Doctype, Name: c.Name, Amount: c.PaidAmount}
}

// AllocationTotal is the amount already allocated to a voucher against one
// GL account, summed over all of that voucher's allocations.
type AllocationTotal struct {
	GLAccount string
	Total     float64
}

// Allocation links a bank transaction to a voucher for a given amount.
type Allocation struct {
	CreatedAt       time.Time
	ID              string
	BankTransaction string
	VoucherDoctype  string
	VoucherName     string
	GLAccount       string
	Amount          float64
}
