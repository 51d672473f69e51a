package model

import "time"

// DocStatus models the framework-style document lifecycle:
// Draft -> Submitted -> Cancelled. Matching and reconciliation only ever
// operate on submitted documents.
type DocStatus int

// Document lifecycle states.
const (
	DocStatusDraft     DocStatus = 0
	DocStatusSubmitted DocStatus = 1
	DocStatusCancelled DocStatus = 2
)

// IsSubmitted reports whether the document is in the Submitted state.
func (d DocStatus) IsSubmitted() bool { return d == DocStatusSubmitted }

// Voucher document types that can be matched against a bank transaction.
const (
	DoctypePaymentEntry     = "Payment Entry"
	DoctypeJournalEntry     = "Journal Entry"
	DoctypeSalesInvoice     = "Sales Invoice"
	DoctypePurchaseInvoice  = "Purchase Invoice"
	DoctypeLoanDisbursement = "Loan Disbursement"
	DoctypeLoanRepayment    = "Loan Repayment"
	DoctypeBankTransaction  = "Bank Transaction"
)

// Document type keys used to request candidate sets from the matcher.
const (
	DocTypePaymentEntry     = "payment_entry"
	DocTypeJournalEntry     = "journal_entry"
	DocTypeSalesInvoice     = "sales_invoice"
	DocTypePurchaseInvoice  = "purchase_invoice"
	DocTypeLoanDisbursement = "loan_disbursement"
	DocTypeLoanRepayment    = "loan_repayment"
	DocTypeBankTransaction  = "bank_transaction"
	DocTypeExactMatch       = "exact_match"
	DocTypeExactPartyMatch  = "exact_party_match"
	DocTypeUnpaidInvoices   = "unpaid_invoices"
)

// Payment entry directions.
const (
	PaymentTypeReceive          = "Receive"
	PaymentTypePay              = "Pay"
	PaymentTypeInternalTransfer = "Internal Transfer"
)

// PaymentEntry records money paid to or received from a party through a
// bank or cash account.
type PaymentEntry struct {
	PostingDate   time.Time
	ReferenceDate time.Time
	ClearanceDate *time.Time
	Name          string
	PaymentType   string
	ReferenceNo   string
	PartyType     string
	Party         string
	PaidFrom      string
	PaidTo        string
	FromCurrency  string
	ToCurrency    string
	PaidAmount    float64
	DocStatus     DocStatus
}

// JournalEntry is a multi-leg accounting entry; its legs live in
// JournalEntryAccount rows.
type JournalEntry struct {
	PostingDate   time.Time
	ChequeDate    time.Time
	ClearanceDate *time.Time
	Name          string
	VoucherType   string
	ChequeNo      string
	PayToRecdFrom string
	DocStatus     DocStatus
}

// JournalEntryAccount is one leg of a journal entry.
type JournalEntryAccount struct {
	Parent          string
	Account         string
	PartyType       string
	AccountCurrency string
	Credit          float64
	Debit           float64
}

// SalesInvoice bills a customer; payment rows record amounts collected
// directly against a bank or cash account.
type SalesInvoice struct {
	PostingDate       time.Time
	Name              string
	Customer          string
	Currency          string
	GrandTotal        float64
	OutstandingAmount float64
	IsReturn          bool
	DocStatus         DocStatus
}

// SalesInvoicePayment is a payment row on a sales invoice.
type SalesInvoicePayment struct {
	ClearanceDate *time.Time
	Parent        string
	Account       string
	Amount        float64
}

// PurchaseInvoice bills us for goods or services; when IsPaid it also acts
// as the payment voucher through CashBankAccount.
type PurchaseInvoice struct {
	PostingDate       time.Time
	ClearanceDate     *time.Time
	Name              string
	Supplier          string
	Currency          string
	CashBankAccount   string
	GrandTotal        float64
	OutstandingAmount float64
	PaidAmount        float64
	IsPaid            bool
	IsReturn          bool
	DocStatus         DocStatus
}

// LoanDisbursement pays a loan out of a bank account.
type LoanDisbursement struct {
	DisbursementDate    time.Time
	ReferenceDate       time.Time
	ClearanceDate       *time.Time
	Name                string
	ApplicantType       string
	Applicant           string
	ReferenceNumber     string
	DisbursementAccount string
	DisbursedAmount     float64
	DocStatus           DocStatus
}

// LoanRepayment records a repayment received into a bank account.
type LoanRepayment struct {
	PostingDate     time.Time
	ReferenceDate   time.Time
	ClearanceDate   *time.Time
	Name            string
	ApplicantType   string
	Applicant       string
	ReferenceNumber string
	PaymentAccount  string
	AmountPaid      float64
	RepayFromSalary bool
	DocStatus       DocStatus
}

// VoucherRef identifies a voucher and the amount to allocate from it when
// reconciling a bank transaction.
type VoucherRef struct {
	Doctype string
	Name    string
	Amount  float64
}
