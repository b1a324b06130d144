package services

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneybook/internal/core"
	"moneybook/internal/log"
	"moneybook/internal/storage"
)

// TransactionFilter selects transactions by wallet, direction, category and date range.
type TransactionFilter = storage.TransactionFilter

// WalletSpec is the input of CreateWallet. A zero exchange rate means 1 and an
// empty type means other.
type WalletSpec struct {
	Name           string
	Currency       string
	InitialBalance decimal.Decimal
	Type           core.WalletType
	ExchangeRate   decimal.Decimal
}

// Page is one slice of a filtered transaction listing, newest first.
type Page struct {
	Items    []core.Transaction
	Page     int
	PageSize int
	HasMore  bool
}

// LedgerService owns wallets and transactions and derives balances from them.
type LedgerService struct {
	repo     *storage.SQLiteRepository
	now      func() time.Time
	pageSize int
	log      *log.Logger
}

func NewLedgerService(repo *storage.SQLiteRepository, opts ...Option) *LedgerService {
	s := newSettings(opts)
	return &LedgerService{
		repo:     repo,
		now:      s.now,
		pageSize: s.pageSize,
		log:      s.logger.WithComponent(log.ComponentLedger),
	}
}

// CreateWallet validates spec and stores a wallet at the end of the display order.
func (s *LedgerService) CreateWallet(ctx context.Context, spec WalletSpec) (core.Wallet, error) {
	w := core.Wallet{
		Name:           strings.TrimSpace(spec.Name),
		Currency:       core.NormalizeCurrency(spec.Currency),
		InitialBalance: spec.InitialBalance,
		Type:           spec.Type,
		ExchangeRate:   spec.ExchangeRate,
		CreatedAt:      s.now(),
	}
	if w.Type == "" {
		w.Type = core.Other
	}
	if w.ExchangeRate.IsZero() {
		w.ExchangeRate = decimal.NewFromInt(1)
	}

	if err := w.Validate(); err != nil {
		s.log.LogError(ctx, "Wallet rejected", err, log.NewFields().WithOperation(log.OpCreate))
		return core.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}

	created, err := s.repo.CreateWallet(ctx, w)
	if err != nil {
		s.log.LogError(ctx, "Failed to create wallet", err, log.NewFields().WithOperation(log.OpCreate))
		return core.Wallet{}, err
	}
	return created, nil
}

// DeleteWallet removes the wallet with all its transactions. Display orders of
// the remaining wallets are left as they are.
func (s *LedgerService) DeleteWallet(ctx context.Context, id int64) error {
	if err := s.repo.DeleteWallet(ctx, id); err != nil {
		s.log.LogError(ctx, "Failed to delete wallet", err, log.NewFields().WithOperation(log.OpDelete).WithWallet(id, ""))
		return err
	}
	return nil
}

func (s *LedgerService) GetWallet(ctx context.Context, id int64) (core.Wallet, error) {
	return s.repo.GetWallet(ctx, id)
}

// ListWallets returns wallets in display order.
func (s *LedgerService) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	return s.repo.ListWallets(ctx)
}

// GetWalletBalance is the initial balance plus income minus expenses, from a
// full scan of the wallet's transactions.
func (s *LedgerService) GetWalletBalance(ctx context.Context, id int64) (decimal.Decimal, error) {
	w, err := s.repo.GetWallet(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	txs, err := s.repo.AllTransactions(ctx, TransactionFilter{WalletIDs: []int64{id}})
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance of wallet %d: %w", id, err)
	}
	return core.Balance(w, txs), nil
}

// AddTransaction validates and stores t. It does not refresh budgets or goals;
// callers issue a recompute for the scopes they touched.
func (s *LedgerService) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = 0
	t.Category = strings.TrimSpace(t.Category)
	if t.Date.IsZero() {
		t.Date = core.DateOf(s.now())
	}

	if err := s.checkNewTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	created, err := s.repo.CreateTransaction(ctx, t)
	if err != nil {
		s.log.LogError(ctx, "Failed to add transaction", err, log.NewFields().WithOperation(log.OpCreate).WithTransaction(t))
		return core.Transaction{}, err
	}
	return created, nil
}

// AddOccurrence stores t as a materialized occurrence of the recurring
// template templateID and advances the template's last run to t's date.
// Both writes land together or not at all.
func (s *LedgerService) AddOccurrence(ctx context.Context, templateID int64, t core.Transaction) (core.Transaction, error) {
	t.ID = 0
	t.TransferPeer = 0
	t.Recurrence = nil
	t.Category = strings.TrimSpace(t.Category)

	if err := s.checkNewTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("add occurrence of %d: %w", templateID, err)
	}

	created, err := s.repo.MaterializeOccurrence(ctx, templateID, t)
	if err != nil {
		s.log.LogError(ctx, "Failed to add occurrence", err, log.NewFields().WithOperation(log.OpCreate).WithTransaction(t))
		return core.Transaction{}, err
	}
	return created, nil
}

// checkNewTransaction rejects rows that must not be written by a plain add:
// invalid fields, an unknown wallet, or the transfer category.
func (s *LedgerService) checkNewTransaction(ctx context.Context, t core.Transaction) error {
	err := t.Validate()
	if err == nil && t.IsTransfer() {
		err = core.ErrReservedCategory
	}
	if err == nil {
		_, err = s.repo.GetWallet(ctx, t.WalletID)
	}
	if err != nil {
		s.log.LogError(ctx, "Transaction rejected", err, log.NewFields().WithOperation(log.OpCreate).WithTransaction(t))
	}
	return err
}

func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// DeleteTransaction removes a row and returns every row it removed. Deleting
// either half of a transfer removes the whole pair, so a transfer never
// leaves one side behind. A half whose counterpart wallet was deleted goes
// alone.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) ([]core.Transaction, error) {
	t, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsTransfer() {
		deleted, err := s.repo.DeleteTransfer(ctx, id)
		if err != nil {
			s.log.LogError(ctx, "Failed to delete transfer", err, log.NewFields().WithOperation(log.OpDelete).WithTransaction(t))
			return nil, err
		}
		return deleted, nil
	}
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return nil, err
	}
	return []core.Transaction{t}, nil
}

// FilterTransactions returns the zero-based page of matching transactions,
// date descending. pageSize 0 uses the configured default.
func (s *LedgerService) FilterTransactions(ctx context.Context, f TransactionFilter, page, pageSize int) (Page, error) {
	if page < 0 {
		return Page{}, fmt.Errorf("%w: page must not be negative", core.ErrValidation)
	}
	if pageSize < 0 {
		return Page{}, fmt.Errorf("%w: page size must not be negative", core.ErrValidation)
	}
	if pageSize == 0 {
		pageSize = s.pageSize
	}

	// One extra row tells whether another page follows.
	rows, err := s.repo.FilterTransactions(ctx, f, pageSize+1, page*pageSize)
	if err != nil {
		return Page{}, err
	}

	p := Page{Page: page, PageSize: pageSize}
	if len(rows) > pageSize {
		p.HasMore = true
		rows = rows[:pageSize]
	}
	p.Items = rows
	return p, nil
}

// Transactions lazily walks every matching transaction, fetching one page at a
// time. Iteration stops at the first error, which is yielded once.
func (s *LedgerService) Transactions(ctx context.Context, f TransactionFilter) iter.Seq2[core.Transaction, error] {
	return func(yield func(core.Transaction, error) bool) {
		for page := 0; ; page++ {
			p, err := s.FilterTransactions(ctx, f, page, 0)
			if err != nil {
				yield(core.Transaction{}, err)
				return
			}
			for _, t := range p.Items {
				if !yield(t, nil) {
					return
				}
			}
			if !p.HasMore {
				return
			}
		}
	}
}

// Snapshot reads every table for a backup.
func (s *LedgerService) Snapshot(ctx context.Context) (storage.Snapshot, error) {
	return s.repo.Snapshot(ctx)
}

// ReplaceAll restores a backup. The previous contents survive any failure.
func (s *LedgerService) ReplaceAll(ctx context.Context, snap storage.Snapshot) error {
	if err := s.repo.ReplaceAll(ctx, snap); err != nil {
		s.log.LogError(ctx, "Restore failed", err, log.NewFields().WithOperation(log.OpUpdate))
		return err
	}
	return nil
}
