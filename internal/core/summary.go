package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// BudgetProgress is the result of a budget recomputation.
type BudgetProgress struct {
	Budget     Budget
	Spending   decimal.Decimal
	Percentage decimal.Decimal
	Status     BudgetStatus
}

// GoalProgress is the result of a goal recomputation.
type GoalProgress struct {
	Goal     Goal
	Progress decimal.Decimal
	Achieved bool
	// JustAchieved is set only by the recomputation that moved the progress
	// from below the target to the target.
	JustAchieved bool
}

// Overview is a compact dashboard summary in the default currency.
type Overview struct {
	TodaySpend     decimal.Decimal
	MonthSpend     decimal.Decimal
	TotalAvailable decimal.Decimal
	ByCategory     []CategoryAmount
}
