package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneybook/internal/core"
	"moneybook/internal/log"
	"moneybook/internal/storage"
)

// Status thresholds, as a percentage of the limit.
var (
	cautionThreshold    = decimal.NewFromInt(75)
	overBudgetThreshold = decimal.NewFromInt(85)
	hundred             = decimal.NewFromInt(100)
)

// BudgetSpec is the input of CreateBudget. The window is derived from Period
// and Reference; a zero Reference means today.
type BudgetSpec struct {
	Name        string
	CategoryIDs []string
	WalletIDs   []int64
	LimitAmount decimal.Decimal
	Period      core.RepetitionTypes
	Reference   core.Date
}

// BudgetTracker evaluates period-scoped spending limits.
type BudgetTracker struct {
	repo *storage.SQLiteRepository
	now  func() time.Time
	log  *log.Logger
}

func NewBudgetTracker(repo *storage.SQLiteRepository, opts ...Option) *BudgetTracker {
	s := newSettings(opts)
	return &BudgetTracker{
		repo: repo,
		now:  s.now,
		log:  s.logger.WithComponent(log.ComponentBudget),
	}
}

// ClassifyBudget returns spending as a percentage of limit and its status:
// below 75 on track, below 85 caution, otherwise over budget.
func ClassifyBudget(spending, limit decimal.Decimal) (decimal.Decimal, core.BudgetStatus) {
	if !limit.IsPositive() {
		return decimal.Zero, core.OverBudget
	}
	pct := spending.Div(limit).Mul(hundred)
	switch {
	case pct.LessThan(cautionThreshold):
		return pct, core.OnTrack
	case pct.LessThan(overBudgetThreshold):
		return pct, core.Caution
	default:
		return pct, core.OverBudget
	}
}

func progressOf(b core.Budget) core.BudgetProgress {
	pct, status := ClassifyBudget(b.CurrentSpending, b.LimitAmount)
	return core.BudgetProgress{
		Budget:     b,
		Spending:   b.CurrentSpending,
		Percentage: pct,
		Status:     status,
	}
}

// CreateBudget stores a budget over the window of its period and computes its
// spending right away.
func (t *BudgetTracker) CreateBudget(ctx context.Context, spec BudgetSpec) (core.BudgetProgress, error) {
	ref := spec.Reference
	if ref.IsZero() {
		ref = core.DateOf(t.now())
	}
	window, err := ComputePeriodWindow(spec.Period, ref)
	if err != nil {
		return core.BudgetProgress{}, fmt.Errorf("create budget: %w", err)
	}

	b := core.Budget{
		Name:        strings.TrimSpace(spec.Name),
		CategoryIDs: trimLabels(spec.CategoryIDs),
		WalletIDs:   spec.WalletIDs,
		LimitAmount: spec.LimitAmount,
		Period:      spec.Period,
		StartDate:   window.From,
		EndDate:     window.To,
	}
	if err := b.Validate(); err != nil {
		t.log.LogError(ctx, "Budget rejected", err, log.NewFields().WithOperation(log.OpCreate))
		return core.BudgetProgress{}, fmt.Errorf("create budget: %w", err)
	}
	for _, id := range b.WalletIDs {
		if _, err := t.repo.GetWallet(ctx, id); err != nil {
			return core.BudgetProgress{}, fmt.Errorf("create budget: %w", err)
		}
	}

	created, err := t.repo.CreateBudget(ctx, b)
	if err != nil {
		return core.BudgetProgress{}, err
	}
	return t.RecalculateBudget(ctx, created.ID)
}

// RecalculateBudget sums the expenses inside the budget's window and scope and
// overwrites the cached spending. On a read failure the cache is left alone.
func (t *BudgetTracker) RecalculateBudget(ctx context.Context, id int64) (core.BudgetProgress, error) {
	b, err := t.repo.GetBudget(ctx, id)
	if err != nil {
		return core.BudgetProgress{}, err
	}

	spending, err := t.spending(ctx, b)
	if err != nil {
		t.log.LogError(ctx, "Budget recompute failed", err, log.NewFields().WithOperation(log.OpRecompute))
		return core.BudgetProgress{}, fmt.Errorf("recalculate budget %d: %w", id, err)
	}

	if err := t.repo.SetBudgetSpending(ctx, id, spending); err != nil {
		return core.BudgetProgress{}, err
	}
	b.CurrentSpending = spending

	p := progressOf(b)
	t.log.InfoContext(ctx, "Budget recalculated",
		log.FieldBudgetID, id,
		"spending", spending.String(),
		"limit", b.LimitAmount.String(),
		"status", p.Status)
	return p, nil
}

func (t *BudgetTracker) spending(ctx context.Context, b core.Budget) (decimal.Decimal, error) {
	wallets, err := t.repo.ListWallets(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	rates := make(map[int64]decimal.Decimal, len(wallets))
	for _, w := range wallets {
		rates[w.ID] = w.ExchangeRate
	}

	txs, err := t.repo.AllTransactions(ctx, TransactionFilter{
		WalletIDs: b.WalletIDs,
		Direction: core.Expense,
		Range:     core.DateRange{From: b.StartDate, To: b.EndDate},
	})
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, tx := range txs {
		if b.Covers(tx) {
			total = total.Add(convert(tx.Amount, rates, tx.WalletID))
		}
	}
	return total, nil
}

// GetBudget returns the budget classified from its cached spending.
func (t *BudgetTracker) GetBudget(ctx context.Context, id int64) (core.BudgetProgress, error) {
	b, err := t.repo.GetBudget(ctx, id)
	if err != nil {
		return core.BudgetProgress{}, err
	}
	return progressOf(b), nil
}

func (t *BudgetTracker) ListBudgets(ctx context.Context) ([]core.BudgetProgress, error) {
	budgets, err := t.repo.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, progressOf(b))
	}
	return out, nil
}

func (t *BudgetTracker) DeleteBudget(ctx context.Context, id int64) error {
	return t.repo.DeleteBudget(ctx, id)
}

func trimLabels(labels []string) []string {
	var out []string
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
