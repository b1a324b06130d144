package log

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"moneybook/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldWalletID      = "wallet_id"
	FieldTransactionID = "transaction_id"
	FieldBudgetID      = "budget_id"
	FieldGoalID        = "goal_id"
	FieldAmount        = "amount"
	FieldCurrency      = "currency"
	FieldCategory      = "category"
	FieldDate          = "date"
	FieldMessageID     = "message_id"
	FieldDuration      = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentLedger      = "ledger"
	ComponentTransfer    = "transfer"
	ComponentAggregation = "aggregation"
	ComponentBudget      = "budget"
	ComponentGoal        = "goal"
	ComponentOrdering    = "ordering"
	ComponentRecompute   = "recompute"
	ComponentRecurrence  = "recurrence"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentCLI         = "cli"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpTransfer  = "transfer"
	OpReorder   = "reorder"
	OpRecompute = "recompute"
	OpPublish   = "publish"
	OpConsume   = "consume"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation        = "validation_error"
	ErrorTypeNotFound          = "not_found_error"
	ErrorTypeInvalidTransfer   = "invalid_transfer_error"
	ErrorTypeInsufficientFunds = "insufficient_funds_error"
	ErrorTypeConsistency       = "consistency_error"
	ErrorTypeConfiguration     = "configuration_error"
	ErrorTypeNetwork           = "network_error"
	ErrorTypeInternal          = "internal_error"
)

// ErrorType maps an error to its category by ledger error kind.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, core.ErrInvalidTransfer):
		return ErrorTypeInvalidTransfer
	case errors.Is(err, core.ErrInsufficientFunds):
		return ErrorTypeInsufficientFunds
	case errors.Is(err, core.ErrConsistency):
		return ErrorTypeConsistency
	}
	return ErrorTypeInternal
}

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds the error and its category
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = ErrorType(err)
	}
	return f
}

// WithWallet adds wallet fields
func (f LogFields) WithWallet(id int64, currency string) LogFields {
	f[FieldWalletID] = id
	if currency != "" {
		f[FieldCurrency] = currency
	}
	return f
}

// WithTransaction adds transaction fields
func (f LogFields) WithTransaction(t core.Transaction) LogFields {
	if t.ID != 0 {
		f[FieldTransactionID] = t.ID
	}
	f[FieldWalletID] = t.WalletID
	f[FieldAmount] = t.Amount.String()
	f[FieldCategory] = t.Category
	f[FieldDate] = t.Date.String()
	return f
}

// WithAmount adds an amount field
func (f LogFields) WithAmount(amount decimal.Decimal) LogFields {
	f[FieldAmount] = amount.String()
	return f
}

// ToSlice converts LogFields to a slice for slog, keys sorted
func (f LogFields) ToSlice() []any {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	slice := make([]any, 0, len(f)*2)
	for _, k := range keys {
		slice = append(slice, k, f[k])
	}
	return slice
}
