package services

import (
	"context"
	"errors"
	"testing"

	"moneybook/internal/core"
)

type recordingDispatcher struct {
	cmds []Command
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, cmds ...Command) error {
	if d.err != nil {
		return d.err
	}
	d.cmds = append(d.cmds, cmds...)
	return nil
}

func TestAffectedBy(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	a := mustWallet(t, e, "A", "EUR", "0", "1")
	b := mustWallet(t, e, "B", "EUR", "0", "1")

	food, err := e.Budgets.CreateBudget(ctx, BudgetSpec{Name: "Food", CategoryIDs: []string{"Food"}, LimitAmount: dec("100"), Period: core.Monthly, Reference: core.NewDate(2024, 5, 1)})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	goal, err := e.Goals.CreateGoal(ctx, GoalSpec{Name: "Save", TargetAmount: dec("100"), StartDate: core.NewDate(2024, 1, 1), TargetDate: core.NewDate(2024, 12, 31), WalletIDs: []int64{b.ID}})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	tests := []struct {
		name string
		tx   core.Transaction
		want []Command
	}{
		{"food expense", core.Transaction{WalletID: a.ID, Direction: core.Expense, Amount: dec("1"), Category: "Food", Date: core.NewDate(2024, 5, 3)}, []Command{{TargetBudget, food.Budget.ID}}},
		{"food income", core.Transaction{WalletID: a.ID, Direction: core.Income, Amount: dec("1"), Category: "Food", Date: core.NewDate(2024, 5, 3)}, nil},
		{"outside window", core.Transaction{WalletID: a.ID, Direction: core.Expense, Amount: dec("1"), Category: "Food", Date: core.NewDate(2024, 6, 3)}, nil},
		{"goal wallet food", core.Transaction{WalletID: b.ID, Direction: core.Expense, Amount: dec("1"), Category: "Food", Date: core.NewDate(2024, 5, 3)}, []Command{{TargetBudget, food.Budget.ID}, {TargetGoal, goal.Goal.ID}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Recompute.AffectedBy(ctx, tt.tx)
			if err != nil {
				t.Fatalf("AffectedBy: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("AffectedBy = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("command %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAfterWriteInline(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	w := mustWallet(t, e, "A", "EUR", "0", "1")

	p, err := e.Budgets.CreateBudget(ctx, BudgetSpec{Name: "All", LimitAmount: dec("100"), Period: core.Monthly, Reference: core.NewDate(2024, 5, 1)})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	tx := mustAdd(t, e, w.ID, core.Expense, "90", "Rent", core.NewDate(2024, 5, 2))
	if err := e.Recompute.AfterWrite(ctx, tx); err != nil {
		t.Fatalf("AfterWrite: %v", err)
	}

	got, err := e.Budgets.GetBudget(ctx, p.Budget.ID)
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if !got.Spending.Equal(dec("90")) || got.Status != core.OverBudget {
		t.Errorf("budget after inline recompute = %s %s", got.Spending, got.Status)
	}
}

func TestDispatchThroughDispatcher(t *testing.T) {
	ctx := context.Background()
	d := &recordingDispatcher{}
	e := newTestEngine(t, WithDispatcher(d))
	w := mustWallet(t, e, "A", "EUR", "0", "1")

	p, err := e.Budgets.CreateBudget(ctx, BudgetSpec{Name: "All", LimitAmount: dec("100"), Period: core.Monthly, Reference: core.NewDate(2024, 5, 1)})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	tx := mustAdd(t, e, w.ID, core.Expense, "10", "Rent", core.NewDate(2024, 5, 2))

	if err := e.Recompute.AfterWrite(ctx, tx); err != nil {
		t.Fatalf("AfterWrite: %v", err)
	}
	if len(d.cmds) != 1 || d.cmds[0] != (Command{TargetBudget, p.Budget.ID}) {
		t.Fatalf("dispatched = %v", d.cmds)
	}

	// Queued, not run: the cache still holds the creation-time value.
	got, _ := e.Budgets.GetBudget(ctx, p.Budget.ID)
	if !got.Spending.IsZero() {
		t.Errorf("spending = %s, want 0 until the worker runs", got.Spending)
	}

	d.err = errors.New("broker down")
	if err := e.Recompute.AfterWrite(ctx, tx); err == nil {
		t.Error("AfterWrite should report dispatcher failures")
	}
}

func TestRunRejectsUnknownTarget(t *testing.T) {
	e := newTestEngine(t)
	err := e.Recompute.Run(context.Background(), Command{Target: "wallet", ID: 1})
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("Run error = %v, want ErrValidation", err)
	}
}

func TestAllCommands(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	w := mustWallet(t, e, "A", "EUR", "0", "1")
	if _, err := e.Budgets.CreateBudget(ctx, BudgetSpec{Name: "b", LimitAmount: dec("1"), Period: core.Daily}); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if _, err := e.Goals.CreateGoal(ctx, GoalSpec{Name: "g", TargetAmount: dec("1"), StartDate: core.NewDate(2024, 1, 1), TargetDate: core.NewDate(2025, 1, 1), WalletIDs: []int64{w.ID}}); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	cmds, err := e.Recompute.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(cmds) != 2 || cmds[0].Target != TargetBudget || cmds[1].Target != TargetGoal {
		t.Errorf("All = %v", cmds)
	}
	if err := e.Recompute.Dispatch(ctx, cmds...); err != nil {
		t.Errorf("Dispatch: %v", err)
	}
}
