package services

import (
	"context"
	"errors"
	"fmt"

	"moneybook/internal/core"
	"moneybook/internal/log"
	"moneybook/internal/storage"
)

// Target names the kind of cached aggregate a recompute command refreshes.
type Target string

const (
	TargetBudget Target = "budget"
	TargetGoal   Target = "goal"
)

// Command asks for one budget or goal cache to be recomputed.
type Command struct {
	Target Target
	ID     int64
}

func (c Command) String() string {
	return fmt.Sprintf("%s %d", c.Target, c.ID)
}

// Dispatcher hands recompute commands to whoever runs them, for example a
// message queue in front of a worker.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmds ...Command) error
}

// Recomputer finds the budgets and goals a write touched and refreshes them,
// either inline or through a Dispatcher.
type Recomputer struct {
	repo       *storage.SQLiteRepository
	budgets    *BudgetTracker
	goals      *GoalTracker
	dispatcher Dispatcher
	log        *log.Logger
}

func NewRecomputer(repo *storage.SQLiteRepository, budgets *BudgetTracker, goals *GoalTracker, opts ...Option) *Recomputer {
	s := newSettings(opts)
	return &Recomputer{
		repo:       repo,
		budgets:    budgets,
		goals:      goals,
		dispatcher: s.dispatcher,
		log:        s.logger.WithComponent(log.ComponentRecompute),
	}
}

// AffectedBy lists the budgets and goals whose scope contains any of txs.
func (r *Recomputer) AffectedBy(ctx context.Context, txs ...core.Transaction) ([]Command, error) {
	budgets, err := r.repo.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}
	goals, err := r.repo.ListGoals(ctx)
	if err != nil {
		return nil, err
	}

	var cmds []Command
	for _, b := range budgets {
		for _, t := range txs {
			if b.Covers(t) {
				cmds = append(cmds, Command{Target: TargetBudget, ID: b.ID})
				break
			}
		}
	}
	for _, g := range goals {
		for _, t := range txs {
			if g.Covers(t) {
				cmds = append(cmds, Command{Target: TargetGoal, ID: g.ID})
				break
			}
		}
	}
	return cmds, nil
}

// Run executes one command in this process.
func (r *Recomputer) Run(ctx context.Context, cmd Command) error {
	var err error
	switch cmd.Target {
	case TargetBudget:
		_, err = r.budgets.RecalculateBudget(ctx, cmd.ID)
	case TargetGoal:
		_, err = r.goals.RecalculateGoalProgress(ctx, cmd.ID)
	default:
		err = fmt.Errorf("%w: unknown recompute target %q", core.ErrValidation, string(cmd.Target))
	}
	if err != nil {
		return fmt.Errorf("recompute %s: %w", cmd, err)
	}
	return nil
}

// Dispatch sends cmds to the configured dispatcher, or runs them inline when
// there is none. Inline runs keep going after a failure and report all errors.
func (r *Recomputer) Dispatch(ctx context.Context, cmds ...Command) error {
	if len(cmds) == 0 {
		return nil
	}
	if r.dispatcher != nil {
		if err := r.dispatcher.Dispatch(ctx, cmds...); err != nil {
			r.log.LogError(ctx, "Failed to dispatch recompute commands", err, log.NewFields().WithOperation(log.OpPublish))
			return fmt.Errorf("dispatch recompute: %w", err)
		}
		r.log.DebugContext(ctx, "Recompute commands dispatched", "count", len(cmds))
		return nil
	}

	var errs []error
	for _, cmd := range cmds {
		if err := r.Run(ctx, cmd); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AfterWrite recomputes every budget and goal the written rows fall into.
func (r *Recomputer) AfterWrite(ctx context.Context, txs ...core.Transaction) error {
	cmds, err := r.AffectedBy(ctx, txs...)
	if err != nil {
		return fmt.Errorf("find affected aggregates: %w", err)
	}
	return r.Dispatch(ctx, cmds...)
}

// All returns a command for every stored budget and goal.
func (r *Recomputer) All(ctx context.Context) ([]Command, error) {
	budgets, err := r.repo.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}
	goals, err := r.repo.ListGoals(ctx)
	if err != nil {
		return nil, err
	}
	cmds := make([]Command, 0, len(budgets)+len(goals))
	for _, b := range budgets {
		cmds = append(cmds, Command{Target: TargetBudget, ID: b.ID})
	}
	for _, g := range goals {
		cmds = append(cmds, Command{Target: TargetGoal, ID: g.ID})
	}
	return cmds, nil
}
