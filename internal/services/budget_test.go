package services

import (
	"context"
	"errors"
	"testing"

	"moneybook/internal/core"
)

func TestComputePeriodWindow(t *testing.T) {
	tests := []struct {
		name     string
		period   core.RepetitionTypes
		ref      core.Date
		from, to core.Date
	}{
		{"daily", core.Daily, core.NewDate(2024, 3, 9), core.NewDate(2024, 3, 9), core.NewDate(2024, 3, 9)},
		{"weekly crosses month", core.Weekly, core.NewDate(2024, 2, 27), core.NewDate(2024, 2, 27), core.NewDate(2024, 3, 4)},
		{"monthly leap february", core.Monthly, core.NewDate(2024, 2, 10), core.NewDate(2024, 2, 10), core.NewDate(2024, 2, 29)},
		{"monthly plain february", core.Monthly, core.NewDate(2023, 2, 10), core.NewDate(2023, 2, 10), core.NewDate(2023, 2, 28)},
		{"monthly thirty days", core.Monthly, core.NewDate(2024, 4, 30), core.NewDate(2024, 4, 30), core.NewDate(2024, 4, 30)},
		{"yearly", core.Yearly, core.NewDate(2024, 2, 10), core.NewDate(2024, 2, 10), core.NewDate(2024, 12, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputePeriodWindow(tt.period, tt.ref)
			if err != nil {
				t.Fatalf("ComputePeriodWindow: %v", err)
			}
			if !got.From.Equal(tt.from) || !got.To.Equal(tt.to) {
				t.Errorf("window = %s, want [%s, %s]", got, tt.from, tt.to)
			}
		})
	}

	if _, err := ComputePeriodWindow("fortnightly", core.NewDate(2024, 1, 1)); !errors.Is(err, core.ErrInvalidPeriod) {
		t.Errorf("unknown period error = %v, want ErrInvalidPeriod", err)
	}
	if _, err := ComputePeriodWindow(core.Daily, core.Date{}); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("zero reference error = %v, want ErrInvalidDate", err)
	}
}

func TestClassifyBudget(t *testing.T) {
	tests := []struct {
		spending string
		want     core.BudgetStatus
	}{
		{"0", core.OnTrack},
		{"74.999", core.OnTrack},
		{"75", core.Caution},
		{"84.999", core.Caution},
		{"85", core.OverBudget},
		{"150", core.OverBudget},
	}

	for _, tt := range tests {
		t.Run(tt.spending, func(t *testing.T) {
			pct, status := ClassifyBudget(dec(tt.spending), dec("100"))
			if status != tt.want {
				t.Errorf("status = %s, want %s", status, tt.want)
			}
			if !pct.Equal(dec(tt.spending)) {
				t.Errorf("percentage = %s, want %s", pct, tt.spending)
			}
		})
	}
}

func TestRecalculateBudgetScope(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	a := mustWallet(t, e, "A", "EUR", "0", "1")
	b := mustWallet(t, e, "B", "USD", "0", "0.5")

	p, err := e.Budgets.CreateBudget(ctx, BudgetSpec{
		Name:        "Eating",
		CategoryIDs: []string{"Food", " Drinks "},
		LimitAmount: dec("100"),
		Period:      core.Monthly,
		Reference:   core.NewDate(2024, 5, 10),
	})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if !p.Budget.StartDate.Equal(core.NewDate(2024, 5, 10)) || !p.Budget.EndDate.Equal(core.NewDate(2024, 5, 31)) {
		t.Fatalf("window = [%s, %s]", p.Budget.StartDate, p.Budget.EndDate)
	}
	if !p.Spending.IsZero() || p.Status != core.OnTrack {
		t.Errorf("fresh budget = %+v", p)
	}

	mustAdd(t, e, a.ID, core.Expense, "40", "Food", core.NewDate(2024, 5, 10))
	mustAdd(t, e, b.ID, core.Expense, "70", "Drinks", core.NewDate(2024, 5, 31)) // 35
	mustAdd(t, e, a.ID, core.Expense, "500", "Rent", core.NewDate(2024, 5, 12))
	mustAdd(t, e, a.ID, core.Expense, "30", "Food", core.NewDate(2024, 5, 9))
	mustAdd(t, e, a.ID, core.Expense, "30", "Food", core.NewDate(2024, 6, 1))
	mustAdd(t, e, a.ID, core.Income, "30", "Food", core.NewDate(2024, 5, 20))

	p, err = e.Budgets.RecalculateBudget(ctx, p.Budget.ID)
	if err != nil {
		t.Fatalf("RecalculateBudget: %v", err)
	}
	if !p.Spending.Equal(dec("75")) {
		t.Errorf("spending = %s, want 75", p.Spending)
	}
	if p.Status != core.Caution {
		t.Errorf("status = %s, want caution", p.Status)
	}

	// Idempotent.
	again, err := e.Budgets.RecalculateBudget(ctx, p.Budget.ID)
	if err != nil {
		t.Fatalf("RecalculateBudget: %v", err)
	}
	if !again.Spending.Equal(p.Spending) {
		t.Errorf("second recompute = %s, want %s", again.Spending, p.Spending)
	}

	cached, err := e.Budgets.GetBudget(ctx, p.Budget.ID)
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if !cached.Spending.Equal(dec("75")) || cached.Status != core.Caution {
		t.Errorf("cached = %+v", cached)
	}
}

func TestBudgetWalletScope(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	a := mustWallet(t, e, "A", "EUR", "0", "1")
	b := mustWallet(t, e, "B", "EUR", "0", "1")

	p, err := e.Budgets.CreateBudget(ctx, BudgetSpec{
		Name:        "Wallet A",
		WalletIDs:   []int64{a.ID},
		LimitAmount: dec("20"),
		Period:      core.Weekly,
	})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if !p.Budget.EndDate.Equal(core.NewDate(2024, 5, 21)) {
		t.Errorf("weekly budget from today ends %s, want 2024-05-21", p.Budget.EndDate)
	}

	mustAdd(t, e, a.ID, core.Expense, "18", "Anything", core.NewDate(2024, 5, 15))
	mustAdd(t, e, b.ID, core.Expense, "18", "Anything", core.NewDate(2024, 5, 15))

	p, err = e.Budgets.RecalculateBudget(ctx, p.Budget.ID)
	if err != nil {
		t.Fatalf("RecalculateBudget: %v", err)
	}
	if !p.Spending.Equal(dec("18")) || p.Status != core.OverBudget {
		t.Errorf("progress = %s %s, want 18 over_budget", p.Spending, p.Status)
	}
}

func TestCreateBudgetRejects(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	tests := []struct {
		name    string
		spec    BudgetSpec
		wantErr error
	}{
		{"empty name", BudgetSpec{LimitAmount: dec("1"), Period: core.Daily}, core.ErrEmptyName},
		{"zero limit", BudgetSpec{Name: "x", Period: core.Daily}, core.ErrInvalidAmount},
		{"bad period", BudgetSpec{Name: "x", LimitAmount: dec("1"), Period: "hourly"}, core.ErrInvalidPeriod},
		{"unknown wallet", BudgetSpec{Name: "x", LimitAmount: dec("1"), Period: core.Daily, WalletIDs: []int64{77}}, core.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Budgets.CreateBudget(ctx, tt.spec); !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateBudget error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	budgets, err := e.Budgets.ListBudgets(ctx)
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}
	if len(budgets) != 0 {
		t.Errorf("rejected budgets were stored: %+v", budgets)
	}
}

func TestDeleteBudget(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	p, err := e.Budgets.CreateBudget(ctx, BudgetSpec{Name: "x", LimitAmount: dec("1"), Period: core.Yearly})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if err := e.Budgets.DeleteBudget(ctx, p.Budget.ID); err != nil {
		t.Fatalf("DeleteBudget: %v", err)
	}
	if _, err := e.Budgets.RecalculateBudget(ctx, p.Budget.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("RecalculateBudget after delete = %v, want ErrNotFound", err)
	}
}
