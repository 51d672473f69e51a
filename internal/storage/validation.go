package storage

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors returned by storage lookups.
var (
	ErrTransactionNotFound = errors.New("bank transaction not found")
	ErrBankAccountNotFound = errors.New("bank account not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrVoucherNotFound     = errors.New("voucher not found")
	ErrConsentNotFound     = errors.New("consent not found")
	ErrUnknownDoctype      = errors.New("unknown voucher doctype")
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return nil
}

func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}
