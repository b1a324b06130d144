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

// GoalSpec is the input of CreateGoal and UpdateGoal.
type GoalSpec struct {
	Name         string
	TargetAmount decimal.Decimal
	StartDate    core.Date
	TargetDate   core.Date
	WalletIDs    []int64
	Notes        string
}

// GoalTracker follows savings targets fed by the net flow of linked wallets.
type GoalTracker struct {
	repo *storage.SQLiteRepository
	now  func() time.Time
	log  *log.Logger
}

func NewGoalTracker(repo *storage.SQLiteRepository, opts ...Option) *GoalTracker {
	s := newSettings(opts)
	return &GoalTracker{
		repo: repo,
		now:  s.now,
		log:  s.logger.WithComponent(log.ComponentGoal),
	}
}

func (t *GoalTracker) goalFromSpec(ctx context.Context, spec GoalSpec) (core.Goal, error) {
	g := core.Goal{
		Name:         strings.TrimSpace(spec.Name),
		TargetAmount: spec.TargetAmount,
		StartDate:    spec.StartDate,
		TargetDate:   spec.TargetDate,
		WalletIDs:    spec.WalletIDs,
		Notes:        strings.TrimSpace(spec.Notes),
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	for _, id := range g.WalletIDs {
		if _, err := t.repo.GetWallet(ctx, id); err != nil {
			return core.Goal{}, err
		}
	}
	return g, nil
}

// CreateGoal stores a goal and computes its progress immediately.
func (t *GoalTracker) CreateGoal(ctx context.Context, spec GoalSpec) (core.GoalProgress, error) {
	g, err := t.goalFromSpec(ctx, spec)
	if err != nil {
		t.log.LogError(ctx, "Goal rejected", err, log.NewFields().WithOperation(log.OpCreate))
		return core.GoalProgress{}, fmt.Errorf("create goal: %w", err)
	}
	created, err := t.repo.CreateGoal(ctx, g)
	if err != nil {
		return core.GoalProgress{}, err
	}
	return t.RecalculateGoalProgress(ctx, created.ID)
}

// UpdateGoal replaces the goal's definition and recomputes its progress.
// JustAchieved compares against the goal as it was before the update, so
// lowering the target below the saved amount reports the achievement once.
func (t *GoalTracker) UpdateGoal(ctx context.Context, id int64, spec GoalSpec) (core.GoalProgress, error) {
	old, err := t.repo.GetGoal(ctx, id)
	if err != nil {
		return core.GoalProgress{}, err
	}
	g, err := t.goalFromSpec(ctx, spec)
	if err != nil {
		t.log.LogError(ctx, "Goal update rejected", err, log.NewFields().WithOperation(log.OpUpdate))
		return core.GoalProgress{}, fmt.Errorf("update goal %d: %w", id, err)
	}
	g.ID = id
	g.CurrentProgress = old.CurrentProgress
	if err := t.repo.UpdateGoal(ctx, g); err != nil {
		return core.GoalProgress{}, err
	}
	// The stored progress is measured against the new target.
	return t.recalculate(ctx, g, g.IsAchieved())
}

// RecalculateGoalProgress sums the net contribution (income minus expense) of
// the linked wallets dated from the start date through the earlier of today
// and the target date, clamped to [0, target]. JustAchieved is set when the
// previous cached value was below the target and the new one reaches it.
func (t *GoalTracker) RecalculateGoalProgress(ctx context.Context, id int64) (core.GoalProgress, error) {
	g, err := t.repo.GetGoal(ctx, id)
	if err != nil {
		return core.GoalProgress{}, err
	}
	return t.recalculate(ctx, g, g.IsAchieved())
}

func (t *GoalTracker) recalculate(ctx context.Context, g core.Goal, wasAchieved bool) (core.GoalProgress, error) {
	progress, err := t.progress(ctx, g)
	if err != nil {
		t.log.LogError(ctx, "Goal recompute failed", err, log.NewFields().WithOperation(log.OpRecompute))
		return core.GoalProgress{}, fmt.Errorf("recalculate goal %d: %w", g.ID, err)
	}

	if err := t.repo.SetGoalProgress(ctx, g.ID, progress); err != nil {
		return core.GoalProgress{}, err
	}

	g.CurrentProgress = progress
	p := core.GoalProgress{
		Goal:         g,
		Progress:     progress,
		Achieved:     g.IsAchieved(),
		JustAchieved: !wasAchieved && g.IsAchieved(),
	}

	t.log.InfoContext(ctx, "Goal recalculated",
		log.FieldGoalID, g.ID,
		"progress", progress.String(),
		"target", g.TargetAmount.String(),
		"achieved", p.Achieved)
	if p.JustAchieved {
		t.log.InfoContext(ctx, "Goal achieved", log.FieldGoalID, g.ID, "name", g.Name)
	}
	return p, nil
}

func (t *GoalTracker) progress(ctx context.Context, g core.Goal) (decimal.Decimal, error) {
	end := core.Min(core.DateOf(t.now()), g.TargetDate)
	if end.Before(g.StartDate) {
		return decimal.Zero, nil
	}

	wallets, err := t.repo.ListWallets(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	rates := make(map[int64]decimal.Decimal, len(wallets))
	for _, w := range wallets {
		rates[w.ID] = w.ExchangeRate
	}

	txs, err := t.repo.AllTransactions(ctx, TransactionFilter{
		WalletIDs: g.WalletIDs,
		Range:     core.DateRange{From: g.StartDate, To: end},
	})
	if err != nil {
		return decimal.Zero, err
	}

	net := decimal.Zero
	for _, tx := range txs {
		net = net.Add(convert(tx.SignedAmount(), rates, tx.WalletID))
	}

	if net.IsNegative() {
		return decimal.Zero, nil
	}
	if net.GreaterThan(g.TargetAmount) {
		return g.TargetAmount, nil
	}
	return net, nil
}

// GetGoal returns the goal with its cached progress.
func (t *GoalTracker) GetGoal(ctx context.Context, id int64) (core.GoalProgress, error) {
	g, err := t.repo.GetGoal(ctx, id)
	if err != nil {
		return core.GoalProgress{}, err
	}
	return core.GoalProgress{Goal: g, Progress: g.CurrentProgress, Achieved: g.IsAchieved()}, nil
}

func (t *GoalTracker) ListGoals(ctx context.Context) ([]core.GoalProgress, error) {
	goals, err := t.repo.ListGoals(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.GoalProgress, 0, len(goals))
	for _, g := range goals {
		out = append(out, core.GoalProgress{Goal: g, Progress: g.CurrentProgress, Achieved: g.IsAchieved()})
	}
	return out, nil
}

func (t *GoalTracker) DeleteGoal(ctx context.Context, id int64) error {
	return t.repo.DeleteGoal(ctx, id)
}
