package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransferCategory labels both rows of a transfer pair.
const TransferCategory = "Transfer"

const (
	Monthly RepetitionTypes = "monthly"
	Yearly  RepetitionTypes = "yearly"
	Weekly  RepetitionTypes = "weekly"
	Daily   RepetitionTypes = "daily"
)

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

const (
	Cash        WalletType = "cash"
	Bank        WalletType = "bank"
	MobileMoney WalletType = "mobile_money"
	Credit      WalletType = "credit"
	Other       WalletType = "other"
)

const (
	OnTrack    BudgetStatus = "on_track"
	Caution    BudgetStatus = "caution"
	OverBudget BudgetStatus = "over_budget"
)

type (
	// RepetitionTypes is used both as a budget period and a recurrence frequency.
	RepetitionTypes string

	Direction    string
	WalletType   string
	BudgetStatus string

	Wallet struct {
		ID             int64
		Name           string
		Currency       string
		InitialBalance decimal.Decimal
		Type           WalletType
		ExchangeRate   decimal.Decimal // to the default currency
		DisplayOrder   int
		CreatedAt      time.Time
	}

	// Recurrence describes how a template transaction repeats. The ledger
	// only stores it; materialization lives in package recurrence.
	Recurrence struct {
		Every   RepetitionTypes
		EndDate Date // zero means open-ended
	}

	Transaction struct {
		ID         int64
		WalletID   int64
		Direction  Direction
		Amount     decimal.Decimal
		Category   string
		Date       Date
		Notes      string
		ReceiptRef string
		Recurrence *Recurrence
		// TransferPeer is the id of the other half of a transfer. Zero when
		// the row is not a transfer or its counterpart wallet was deleted.
		TransferPeer int64
	}

	Budget struct {
		ID              int64
		Name            string
		CategoryIDs     []string // empty means every category
		WalletIDs       []int64  // empty means every wallet
		LimitAmount     decimal.Decimal
		Period          RepetitionTypes
		StartDate       Date
		EndDate         Date
		CurrentSpending decimal.Decimal // cache, see BudgetTracker.Recalculate
	}

	Goal struct {
		ID              int64
		Name            string
		TargetAmount    decimal.Decimal
		StartDate       Date
		TargetDate      Date
		WalletIDs       []int64
		CurrentProgress decimal.Decimal // cache, see GoalTracker.Recalculate
		Notes           string
	}

	// WalletOrder assigns a display rank to a wallet.
	WalletOrder struct {
		ID           int64
		DisplayOrder int
	}
)

func (d Direction) Validate() error {
	switch d {
	case Income, Expense:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidDirection, string(d))
}

// Sign returns +1 for income and -1 for expense.
func (d Direction) Sign() decimal.Decimal {
	if d == Expense {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

func (t WalletType) Validate() error {
	switch t {
	case Cash, Bank, MobileMoney, Credit, Other:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidWallet, string(t))
}

func (r RepetitionTypes) Validate() error {
	switch r {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidPeriod, string(r))
}

// ParseRepetition accepts the canonical names and their singular nouns.
func ParseRepetition(s string) (RepetitionTypes, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day":
		return Daily, nil
	case "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	case "yearly", "year":
		return Yearly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// SignedAmount is the contribution of the transaction to its wallet balance.
func (t Transaction) SignedAmount() decimal.Decimal {
	return t.Amount.Mul(t.Direction.Sign())
}

// Balance is the wallet's initial balance plus the signed sum of its transactions.
func Balance(w Wallet, txs []Transaction) decimal.Decimal {
	total := w.InitialBalance
	for _, t := range txs {
		if t.WalletID == w.ID {
			total = total.Add(t.SignedAmount())
		}
	}
	return total
}

// IsTransfer reports whether the row is one half of a transfer pair.
func (t Transaction) IsTransfer() bool {
	return t.Category == TransferCategory
}

func (t Transaction) Validate() error {
	if t.WalletID <= 0 {
		return fmt.Errorf("%w: missing wallet", ErrValidation)
	}
	if err := t.Direction.Validate(); err != nil {
		return err
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Recurrence != nil {
		if err := t.Recurrence.Validate(t.Date); err != nil {
			return err
		}
	}
	return nil
}

func (r Recurrence) Validate(start Date) error {
	if err := r.Every.Validate(); err != nil {
		return err
	}
	if !r.EndDate.IsZero() && r.EndDate.Before(start) {
		return fmt.Errorf("%w: recurrence ends before it starts", ErrInvalidDate)
	}
	return nil
}

func (w Wallet) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyName
	}
	if err := ValidateCurrency(w.Currency); err != nil {
		return err
	}
	if err := w.Type.Validate(); err != nil {
		return err
	}
	if !w.ExchangeRate.IsPositive() {
		return ErrInvalidRate
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if !b.LimitAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := b.Period.Validate(); err != nil {
		return err
	}
	if err := b.StartDate.Validate(); err != nil {
		return err
	}
	if b.EndDate.Before(b.StartDate) {
		return fmt.Errorf("%w: budget ends before it starts", ErrInvalidDate)
	}
	return nil
}

// Covers reports whether the transaction falls in the budget's scope and window.
func (b Budget) Covers(t Transaction) bool {
	if t.Direction != Expense {
		return false
	}
	if !(DateRange{From: b.StartDate, To: b.EndDate}).Contains(t.Date) {
		return false
	}
	if len(b.CategoryIDs) > 0 && !containsString(b.CategoryIDs, t.Category) {
		return false
	}
	if len(b.WalletIDs) > 0 && !containsID(b.WalletIDs, t.WalletID) {
		return false
	}
	return true
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := g.StartDate.Validate(); err != nil {
		return err
	}
	if err := g.TargetDate.Validate(); err != nil {
		return err
	}
	if !g.TargetDate.After(g.StartDate) {
		return ErrInvalidGoalDates
	}
	if len(g.WalletIDs) == 0 {
		return ErrNoLinkedWallets
	}
	return nil
}

// Covers reports whether the transaction belongs to one of the goal's wallets
// and is dated inside [StartDate, TargetDate].
func (g Goal) Covers(t Transaction) bool {
	return containsID(g.WalletIDs, t.WalletID) &&
		(DateRange{From: g.StartDate, To: g.TargetDate}).Contains(t.Date)
}

// IsAchieved reports whether the cached progress has reached the target.
func (g Goal) IsAchieved() bool {
	return g.CurrentProgress.GreaterThanOrEqual(g.TargetAmount)
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsID(set []int64, v int64) bool {
	for _, id := range set {
		if id == v {
			return true
		}
	}
	return false
}
