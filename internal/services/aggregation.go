package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"moneybook/internal/core"
	"moneybook/internal/log"
	"moneybook/internal/storage"
)

// AggregationService derives sums over the ledger on demand. Every amount is
// converted to the default currency through the owning wallet's rate.
type AggregationService struct {
	repo     *storage.SQLiteRepository
	now      func() time.Time
	currency string
	log      *log.Logger
}

func NewAggregationService(repo *storage.SQLiteRepository, opts ...Option) *AggregationService {
	s := newSettings(opts)
	return &AggregationService{
		repo:     repo,
		now:      s.now,
		currency: core.NormalizeCurrency(s.defaultCurrency),
		log:      s.logger.WithComponent(log.ComponentAggregation),
	}
}

// Currency is the default currency every aggregate is expressed in.
func (s *AggregationService) Currency() string {
	return s.currency
}

// rates maps wallet id to its exchange rate to the default currency.
func (s *AggregationService) rates(ctx context.Context) (map[int64]decimal.Decimal, []core.Wallet, error) {
	wallets, err := s.repo.ListWallets(ctx)
	if err != nil {
		return nil, nil, err
	}
	out := make(map[int64]decimal.Decimal, len(wallets))
	for _, w := range wallets {
		out[w.ID] = w.ExchangeRate
	}
	return out, wallets, nil
}

func convert(amount decimal.Decimal, rates map[int64]decimal.Decimal, walletID int64) decimal.Decimal {
	rate, ok := rates[walletID]
	if !ok {
		return amount
	}
	return amount.Mul(rate)
}

// SpendIn sums expenses dated inside r across all wallets.
func (s *AggregationService) SpendIn(ctx context.Context, r core.DateRange) (decimal.Decimal, error) {
	rates, _, err := s.rates(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("spend %s: %w", r, err)
	}
	txs, err := s.repo.AllTransactions(ctx, TransactionFilter{Direction: core.Expense, Range: r})
	if err != nil {
		return decimal.Zero, fmt.Errorf("spend %s: %w", r, err)
	}

	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(convert(t.Amount, rates, t.WalletID))
	}
	return total, nil
}

// TodaySpend sums today's expenses.
func (s *AggregationService) TodaySpend(ctx context.Context) (decimal.Decimal, error) {
	today := core.DateOf(s.now())
	return s.SpendIn(ctx, core.DateRange{From: today, To: today})
}

// MonthSpend sums expenses from the first of the month through today.
func (s *AggregationService) MonthSpend(ctx context.Context) (decimal.Decimal, error) {
	today := core.DateOf(s.now())
	return s.SpendIn(ctx, core.DateRange{From: today.StartOfMonth(), To: today})
}

// CategoryBreakdown groups expenses dated inside r by category, largest total
// first and ties by label. A zero range covers the whole ledger.
func (s *AggregationService) CategoryBreakdown(ctx context.Context, r core.DateRange) ([]core.CategoryAmount, error) {
	rates, _, err := s.rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	txs, err := s.repo.AllTransactions(ctx, TransactionFilter{Direction: core.Expense, Range: r})
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}

	totals := make(map[string]decimal.Decimal)
	for _, t := range txs {
		totals[t.Category] = totals[t.Category].Add(convert(t.Amount, rates, t.WalletID))
	}

	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// TotalAvailableAcrossWallets sums every wallet balance times its rate.
func (s *AggregationService) TotalAvailableAcrossWallets(ctx context.Context) (decimal.Decimal, error) {
	_, wallets, err := s.rates(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total available: %w", err)
	}
	txs, err := s.repo.AllTransactions(ctx, TransactionFilter{})
	if err != nil {
		return decimal.Zero, fmt.Errorf("total available: %w", err)
	}

	byWallet := make(map[int64][]core.Transaction, len(wallets))
	for _, t := range txs {
		byWallet[t.WalletID] = append(byWallet[t.WalletID], t)
	}

	total := decimal.Zero
	for _, w := range wallets {
		total = total.Add(core.Balance(w, byWallet[w.ID]).Mul(w.ExchangeRate))
	}
	return total, nil
}

// Overview gathers the dashboard figures; the breakdown covers the current month.
func (s *AggregationService) Overview(ctx context.Context) (core.Overview, error) {
	var (
		o   core.Overview
		err error
	)
	today := core.DateOf(s.now())
	if o.TodaySpend, err = s.TodaySpend(ctx); err != nil {
		return core.Overview{}, err
	}
	if o.MonthSpend, err = s.MonthSpend(ctx); err != nil {
		return core.Overview{}, err
	}
	if o.TotalAvailable, err = s.TotalAvailableAcrossWallets(ctx); err != nil {
		return core.Overview{}, err
	}
	if o.ByCategory, err = s.CategoryBreakdown(ctx, core.DateRange{From: today.StartOfMonth(), To: today}); err != nil {
		return core.Overview{}, err
	}

	s.log.DebugContext(ctx, "Overview computed",
		"today", o.TodaySpend.String(),
		"month", o.MonthSpend.String(),
		"available", o.TotalAvailable.String(),
		"categories", len(o.ByCategory))
	return o, nil
}
