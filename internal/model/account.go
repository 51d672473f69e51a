package model

// Account is a ledger account. Receivable and Payable accounts require a
// party on any voucher posting against them.
type Account struct {
	Name        string
	AccountType string
	Company     string
}

// Account types that require party information.
const (
	AccountTypeReceivable = "Receivable"
	AccountTypePayable    = "Payable"
)

// BankAccount links a bank-side account to its GL account and company.
type BankAccount struct {
	Name    string
	Account string
	Company string
}

// VoucherClaim is the claimable-amount projection of a voucher used by the
// reconciliation applier: how much the voucher can still cover, and whether
// it is in a state that allows allocation at all.
type VoucherClaim struct {
	ClearanceDate *string
	Doctype       string
	Name          string
	PaidAmount    float64
	DocStatus     DocStatus
}
