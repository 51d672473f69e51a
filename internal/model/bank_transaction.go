// Package model defines the core domain types for bank reconciliation.
package model

import (
	"fmt"
	"time"
)

// TransactionStatus tracks how far a bank transaction has been reconciled.
type TransactionStatus string

// Bank transaction statuses. A transaction is terminal once Reconciled and
// is excluded from all further matching.
const (
	StatusUnreconciled TransactionStatus = "Unreconciled"
	StatusPending      TransactionStatus = "Pending"
	StatusReconciled   TransactionStatus = "Reconciled"
)

// BankTransaction is a single statement line imported from a bank.
// Exactly one of Deposit or Withdrawal is nonzero.
type BankTransaction struct {
	Date              time.Time
	Name              string
	Description       string
	Currency          string
	BankAccount       string
	Company           string
	ReferenceNumber   string
	PartyType         string
	Party             string
	Status            TransactionStatus
	Deposit           float64
	Withdrawal        float64
	UnallocatedAmount float64
	DocStatus         DocStatus
}

// Amount returns the magnitude of the active side of the transaction.
func (t *BankTransaction) Amount() float64 {
	if t.Deposit > 0 {
		return t.Deposit
	}
	return t.Withdrawal
}

// IsDeposit reports whether money flowed into the bank account.
func (t *BankTransaction) IsDeposit() bool {
	return t.Deposit > 0
}

// PaymentType returns the payment direction used for candidate matching:
// deposits match "Receive" side vouchers, withdrawals match "Pay".
func (t *BankTransaction) PaymentType() string {
	if t.IsDeposit() {
		return PaymentTypeReceive
	}
	return PaymentTypePay
}

// Validate checks the structural invariants of a bank transaction.
func (t *BankTransaction) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("bank transaction name cannot be empty")
	}
	if t.BankAccount == "" {
		return fmt.Errorf("bank transaction %s has no bank account", t.Name)
	}
	if t.Deposit < 0 || t.Withdrawal < 0 {
		return fmt.Errorf("bank transaction %s has a negative amount", t.Name)
	}
	if (t.Deposit > 0) == (t.Withdrawal > 0) {
		return fmt.Errorf("bank transaction %s must have exactly one of deposit or withdrawal set", t.Name)
	}
	if t.UnallocatedAmount < 0 {
		return fmt.Errorf("bank transaction %s has negative unallocated amount", t.Name)
	}
	return nil
}
