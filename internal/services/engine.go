// Package services is the ledger and aggregation engine: wallets and
// transactions, transfers, windowed sums, budgets, goals and wallet ordering.
package services

import (
	"moneybook/internal/storage"
)

// Engine wires every service over one repository.
type Engine struct {
	Ledger     *LedgerService
	Transfers  *TransferService
	Aggregates *AggregationService
	Budgets    *BudgetTracker
	Goals      *GoalTracker
	Ordering   *OrderingService
	Recompute  *Recomputer

	repo *storage.SQLiteRepository
}

func NewEngine(repo *storage.SQLiteRepository, opts ...Option) *Engine {
	ledger := NewLedgerService(repo, opts...)
	budgets := NewBudgetTracker(repo, opts...)
	goals := NewGoalTracker(repo, opts...)
	return &Engine{
		Ledger:     ledger,
		Transfers:  NewTransferService(repo, ledger, opts...),
		Aggregates: NewAggregationService(repo, opts...),
		Budgets:    budgets,
		Goals:      goals,
		Ordering:   NewOrderingService(repo, opts...),
		Recompute:  NewRecomputer(repo, budgets, goals, opts...),
		repo:       repo,
	}
}

// Close releases the repository.
func (e *Engine) Close() error {
	if e.repo == nil {
		return nil
	}
	return e.repo.Close()
}
