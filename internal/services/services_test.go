package services

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"moneybook/internal/core"
	"moneybook/internal/log"
	"moneybook/internal/storage"
)

// fixedNow is Wednesday 2024-05-15.
var fixedNow = time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	var buf bytes.Buffer
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(log.New(log.Config{Output: &buf})),
	}
	return NewEngine(repo, append(base, opts...)...)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustWallet(t *testing.T, e *Engine, name, currency, balance, rate string) core.Wallet {
	t.Helper()
	w, err := e.Ledger.CreateWallet(context.Background(), WalletSpec{
		Name:           name,
		Currency:       currency,
		InitialBalance: dec(balance),
		Type:           core.Bank,
		ExchangeRate:   dec(rate),
	})
	if err != nil {
		t.Fatalf("CreateWallet(%s): %v", name, err)
	}
	return w
}

func mustAdd(t *testing.T, e *Engine, walletID int64, dir core.Direction, amount, category string, d core.Date) core.Transaction {
	t.Helper()
	tx, err := e.Ledger.AddTransaction(context.Background(), core.Transaction{
		WalletID:  walletID,
		Direction: dir,
		Amount:    dec(amount),
		Category:  category,
		Date:      d,
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	return tx
}

func balanceOf(t *testing.T, e *Engine, id int64) decimal.Decimal {
	t.Helper()
	b, err := e.Ledger.GetWalletBalance(context.Background(), id)
	if err != nil {
		t.Fatalf("GetWalletBalance(%d): %v", id, err)
	}
	return b
}

func countRows(t *testing.T, e *Engine) int {
	t.Helper()
	n := 0
	for _, err := range e.Ledger.Transactions(context.Background(), TransactionFilter{}) {
		if err != nil {
			t.Fatalf("Transactions: %v", err)
		}
		n++
	}
	return n
}
