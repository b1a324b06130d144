package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"moneybook/internal/core"
	"moneybook/internal/services"
)

// Reports are markdown so glamour can lay them out for the terminal.

var statusLabel = map[core.BudgetStatus]string{
	core.OnTrack:    "on track",
	core.Caution:    "caution",
	core.OverBudget: "**over budget**",
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func walletsMarkdown(wallets []core.Wallet, balances map[int64]decimal.Decimal) string {
	if len(wallets) == 0 {
		return "No wallets yet.\n"
	}
	var b strings.Builder
	b.WriteString("# Wallets\n\n")
	b.WriteString("| # | ID | Name | Type | Balance | Rate |\n")
	b.WriteString("|--:|--:|:--|:--|--:|--:|\n")
	for _, w := range wallets {
		fmt.Fprintf(&b, "| %d | %d | %s | %s | %s | %s |\n",
			w.DisplayOrder, w.ID, cell(w.Name), w.Type,
			core.FormatAmount(balances[w.ID], w.Currency), w.ExchangeRate.String())
	}
	return b.String()
}

func transactionsMarkdown(p services.Page, wallets map[int64]core.Wallet) string {
	if len(p.Items) == 0 {
		return "No transactions.\n"
	}
	var b strings.Builder
	b.WriteString("| ID | Date | Wallet | Category | Amount | Notes |\n")
	b.WriteString("|--:|:--|:--|:--|--:|:--|\n")
	for _, t := range p.Items {
		w := wallets[t.WalletID]
		name := w.Name
		if name == "" {
			name = fmt.Sprintf("#%d", t.WalletID)
		}
		notes := t.Notes
		if t.Recurrence != nil {
			notes = strings.TrimSpace(notes + " (" + string(t.Recurrence.Every) + ")")
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			t.ID, t.Date, cell(name), cell(t.Category),
			signedAmount(t, w.Currency), cell(notes))
	}
	if p.HasMore {
		fmt.Fprintf(&b, "\nMore on page %d.\n", p.Page+1)
	}
	return b.String()
}

func signedAmount(t core.Transaction, currency string) string {
	s := core.FormatAmount(t.Amount, currency)
	if t.Direction == core.Expense {
		return "-" + s
	}
	return "+" + s
}

func overviewMarkdown(o core.Overview, currency string) string {
	var b strings.Builder
	b.WriteString("# Summary\n\n")
	fmt.Fprintf(&b, "- Spent today: **%s**\n", core.FormatAmount(o.TodaySpend, currency))
	fmt.Fprintf(&b, "- Spent this month: **%s**\n", core.FormatAmount(o.MonthSpend, currency))
	fmt.Fprintf(&b, "- Available across wallets: **%s**\n", core.FormatAmount(o.TotalAvailable, currency))
	if len(o.ByCategory) > 0 {
		b.WriteString("\n## This month by category\n\n")
		b.WriteString("| Category | Amount |\n|:--|--:|\n")
		for _, c := range o.ByCategory {
			fmt.Fprintf(&b, "| %s | %s |\n", cell(c.Name), core.FormatAmount(c.Amount, currency))
		}
	}
	return b.String()
}

func budgetsMarkdown(budgets []core.BudgetProgress, currency string) string {
	if len(budgets) == 0 {
		return "No budgets yet.\n"
	}
	var b strings.Builder
	b.WriteString("# Budgets\n\n")
	b.WriteString("| ID | Name | Period | Window | Spent | Limit | Used | Status |\n")
	b.WriteString("|--:|:--|:--|:--|--:|--:|--:|:--|\n")
	for _, p := range budgets {
		window := core.DateRange{From: p.Budget.StartDate, To: p.Budget.EndDate}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s%% | %s |\n",
			p.Budget.ID, cell(p.Budget.Name), p.Budget.Period, window,
			core.FormatAmount(p.Spending, currency),
			core.FormatAmount(p.Budget.LimitAmount, currency),
			p.Percentage.StringFixed(1), statusLabel[p.Status])
	}
	return b.String()
}

func goalsMarkdown(goals []core.GoalProgress, currency string) string {
	if len(goals) == 0 {
		return "No goals yet.\n"
	}
	var b strings.Builder
	b.WriteString("# Goals\n\n")
	b.WriteString("| ID | Name | Until | Saved | Target | Done |\n")
	b.WriteString("|--:|:--|:--|--:|--:|:--|\n")
	var reached []string
	for _, p := range goals {
		done := ""
		if p.Achieved {
			done = "yes"
		}
		if p.JustAchieved {
			reached = append(reached, p.Goal.Name)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			p.Goal.ID, cell(p.Goal.Name), p.Goal.TargetDate,
			core.FormatAmount(p.Progress, currency),
			core.FormatAmount(p.Goal.TargetAmount, currency), done)
	}
	for _, name := range reached {
		fmt.Fprintf(&b, "\n> Goal reached: **%s**\n", name)
	}
	return b.String()
}
