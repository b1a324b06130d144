package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"moneybook/internal/core"
	"moneybook/internal/services"
)

type summaryCmd struct{}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "today's and this month's spending, totals by category" }
func (*summaryCmd) Usage() string {
	return `moneybook summary

  Every amount is converted to the default currency.
`
}
func (*summaryCmd) SetFlags(_ *flag.FlagSet) {}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	o, err := a.engine.Aggregates.Overview(ctx)
	if err != nil {
		return a.fail("computing summary", err)
	}
	a.printMarkdown(overviewMarkdown(o, a.engine.Aggregates.Currency()))
	return subcommands.ExitSuccess
}

type budgetAddCmd struct {
	name       string
	limit      string
	period     string
	reference  string
	categories string
	wallets    string
}

func (*budgetAddCmd) Name() string     { return "budget-add" }
func (*budgetAddCmd) Synopsis() string { return "create a spending budget" }
func (*budgetAddCmd) Usage() string {
	return `moneybook budget-add -name <name> -limit <amount> [-period daily|weekly|monthly|yearly] [-ref YYYY-MM-DD] [-categories a,b] [-wallets 1,2]

  The budget covers the period containing -ref (today by default). Empty
  category or wallet lists cover everything.
`
}

func (c *budgetAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "budget name")
	f.StringVar(&c.limit, "limit", "", "limit in the default currency")
	f.StringVar(&c.period, "period", string(core.Monthly), "budget period")
	f.StringVar(&c.reference, "ref", "", "a date inside the budget period")
	f.StringVar(&c.categories, "categories", "", "comma separated categories")
	f.StringVar(&c.wallets, "wallets", "", "comma separated wallet ids")
}

func (c *budgetAddCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	limit, err := core.ParseAmount(c.limit)
	if err != nil {
		return usageError("Error parsing limit: %v", err)
	}
	period, err := core.ParseRepetition(c.period)
	if err != nil {
		return usageError("Error parsing period: %v", err)
	}
	ref, err := parseOptionalDate(c.reference)
	if err != nil {
		return usageError("Error parsing reference date: %v", err)
	}
	wallets, err := parseIDs(c.wallets)
	if err != nil {
		return usageError("%v", err)
	}

	p, err := a.engine.Budgets.CreateBudget(ctx, services.BudgetSpec{
		Name:        c.name,
		CategoryIDs: parseLabels(c.categories),
		WalletIDs:   wallets,
		LimitAmount: limit,
		Period:      period,
		Reference:   ref,
	})
	if err != nil {
		return a.fail("creating budget", err)
	}
	a.printMarkdown(budgetsMarkdown([]core.BudgetProgress{p}, a.engine.Aggregates.Currency()))
	return subcommands.ExitSuccess
}

type budgetCheckCmd struct {
	recompute bool
}

func (*budgetCheckCmd) Name() string     { return "budget-check" }
func (*budgetCheckCmd) Synopsis() string { return "show budget status" }
func (*budgetCheckCmd) Usage() string {
	return `moneybook budget-check [-recompute] [budget-id]

  Shows the cached status of one or every budget. -recompute refreshes the
  spending from the ledger first.
`
}

func (c *budgetCheckCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.recompute, "recompute", false, "recompute spending before showing it")
}

func (c *budgetCheckCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	ids, err := targetIDs(f)
	if err != nil {
		return usageError("%v", err)
	}
	if ids == nil {
		all, err := a.engine.Budgets.ListBudgets(ctx)
		if err != nil {
			return a.fail("listing budgets", err)
		}
		for _, p := range all {
			ids = append(ids, p.Budget.ID)
		}
	}

	var out []core.BudgetProgress
	for _, id := range ids {
		var p core.BudgetProgress
		if c.recompute {
			p, err = a.engine.Budgets.RecalculateBudget(ctx, id)
		} else {
			p, err = a.engine.Budgets.GetBudget(ctx, id)
		}
		if err != nil {
			return a.fail("checking budget", err)
		}
		out = append(out, p)
	}
	a.printMarkdown(budgetsMarkdown(out, a.engine.Aggregates.Currency()))
	return subcommands.ExitSuccess
}

type goalAddCmd struct {
	name    string
	target  string
	start   string
	until   string
	wallets string
	notes   string
}

func (*goalAddCmd) Name() string     { return "goal-add" }
func (*goalAddCmd) Synopsis() string { return "create a savings goal" }
func (*goalAddCmd) Usage() string {
	return `moneybook goal-add -name <name> -target <amount> -until YYYY-MM-DD -wallets 1,2 [-start YYYY-MM-DD] [-notes <text>]

  Progress is the net income of the linked wallets since -start (today by
  default), in the default currency.
`
}

func (c *goalAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "goal name")
	f.StringVar(&c.target, "target", "", "target amount in the default currency")
	f.StringVar(&c.start, "start", "", "start date, defaults to today")
	f.StringVar(&c.until, "until", "", "target date")
	f.StringVar(&c.wallets, "wallets", "", "comma separated wallet ids")
	f.StringVar(&c.notes, "notes", "", "free text")
}

func (c *goalAddCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	target, err := core.ParseAmount(c.target)
	if err != nil {
		return usageError("Error parsing target: %v", err)
	}
	start, err := parseOptionalDate(c.start)
	if err != nil {
		return usageError("Error parsing start date: %v", err)
	}
	until, err := core.ParseDate(c.until)
	if err != nil {
		return usageError("Error parsing target date: %v", err)
	}
	wallets, err := parseIDs(c.wallets)
	if err != nil {
		return usageError("%v", err)
	}

	p, err := a.engine.Goals.CreateGoal(ctx, services.GoalSpec{
		Name:         c.name,
		TargetAmount: target,
		StartDate:    start,
		TargetDate:   until,
		WalletIDs:    wallets,
		Notes:        c.notes,
	})
	if err != nil {
		return a.fail("creating goal", err)
	}
	a.printMarkdown(goalsMarkdown([]core.GoalProgress{p}, a.engine.Aggregates.Currency()))
	return subcommands.ExitSuccess
}

type goalCheckCmd struct {
	recompute bool
}

func (*goalCheckCmd) Name() string     { return "goal-check" }
func (*goalCheckCmd) Synopsis() string { return "show goal progress" }
func (*goalCheckCmd) Usage() string {
	return `moneybook goal-check [-recompute] [goal-id]
`
}

func (c *goalCheckCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.recompute, "recompute", false, "recompute progress before showing it")
}

func (c *goalCheckCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	ids, err := targetIDs(f)
	if err != nil {
		return usageError("%v", err)
	}
	if ids == nil {
		all, err := a.engine.Goals.ListGoals(ctx)
		if err != nil {
			return a.fail("listing goals", err)
		}
		for _, p := range all {
			ids = append(ids, p.Goal.ID)
		}
	}

	var out []core.GoalProgress
	for _, id := range ids {
		var p core.GoalProgress
		if c.recompute {
			p, err = a.engine.Goals.RecalculateGoalProgress(ctx, id)
		} else {
			p, err = a.engine.Goals.GetGoal(ctx, id)
		}
		if err != nil {
			return a.fail("checking goal", err)
		}
		out = append(out, p)
	}
	a.printMarkdown(goalsMarkdown(out, a.engine.Aggregates.Currency()))
	return subcommands.ExitSuccess
}

// targetIDs reads an optional single id argument; nil means all.
func targetIDs(f *flag.FlagSet) ([]int64, error) {
	switch f.NArg() {
	case 0:
		return nil, nil
	case 1:
		id, err := parseID(f.Arg(0))
		if err != nil {
			return nil, err
		}
		return []int64{id}, nil
	}
	return nil, errTooManyArgs
}
