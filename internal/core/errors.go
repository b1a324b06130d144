package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine wraps exactly one of these,
// so callers classify failures with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransfer   = errors.New("invalid transfer")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConsistency       = errors.New("consistency error")
)

var (
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidBalance   = fmt.Errorf("%w: invalid initial balance", ErrValidation)
	ErrInvalidRate      = fmt.Errorf("%w: exchange rate must be positive", ErrValidation)
	ErrInvalidDate      = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrEmptyName        = fmt.Errorf("%w: empty name", ErrValidation)
	ErrEmptyCurrency    = fmt.Errorf("%w: empty currency", ErrValidation)
	ErrUnknownCurrency  = fmt.Errorf("%w: unknown currency", ErrValidation)
	ErrEmptyCategory    = fmt.Errorf("%w: empty category", ErrValidation)
	ErrInvalidDirection = fmt.Errorf("%w: invalid direction", ErrValidation)
	ErrInvalidWallet    = fmt.Errorf("%w: invalid wallet type", ErrValidation)
	ErrInvalidPeriod    = fmt.Errorf("%w: invalid period type", ErrValidation)
	ErrNoLinkedWallets  = fmt.Errorf("%w: goal needs at least one linked wallet", ErrValidation)
	ErrInvalidGoalDates = fmt.Errorf("%w: target date must be after start date", ErrValidation)
	ErrInvalidOrder     = fmt.Errorf("%w: invalid wallet order", ErrValidation)
	ErrReservedCategory = fmt.Errorf("%w: category %q is reserved for transfers", ErrValidation, TransferCategory)

	ErrWalletNotFound      = fmt.Errorf("wallet %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrBudgetNotFound      = fmt.Errorf("budget %w", ErrNotFound)
	ErrGoalNotFound        = fmt.Errorf("goal %w", ErrNotFound)
)
