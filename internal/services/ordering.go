package services

import (
	"context"
	"fmt"

	"moneybook/internal/core"
	"moneybook/internal/log"
	"moneybook/internal/storage"
)

// OrderingService persists the user-chosen display order of wallets.
type OrderingService struct {
	repo *storage.SQLiteRepository
	log  *log.Logger
}

func NewOrderingService(repo *storage.SQLiteRepository, opts ...Option) *OrderingService {
	s := newSettings(opts)
	return &OrderingService{
		repo: repo,
		log:  s.logger.WithComponent(log.ComponentOrdering),
	}
}

// UpdateWalletsOrder writes every display order in one storage transaction.
// The ids must be exactly the stored wallets and the orders a permutation of
// 0..n-1; otherwise nothing is written.
func (s *OrderingService) UpdateWalletsOrder(ctx context.Context, orders []core.WalletOrder) error {
	wallets, err := s.repo.ListWallets(ctx)
	if err != nil {
		return err
	}
	if err := checkOrders(wallets, orders); err != nil {
		s.log.LogError(ctx, "Wallet order rejected", err, log.NewFields().WithOperation(log.OpReorder))
		return fmt.Errorf("update wallets order: %w", err)
	}
	if err := s.repo.UpdateWalletOrders(ctx, orders); err != nil {
		s.log.LogError(ctx, "Wallet order failed", err, log.NewFields().WithOperation(log.OpReorder))
		return fmt.Errorf("update wallets order: %w", err)
	}
	return nil
}

func checkOrders(wallets []core.Wallet, orders []core.WalletOrder) error {
	if len(orders) != len(wallets) {
		return fmt.Errorf("%w: got %d wallets, have %d", core.ErrInvalidOrder, len(orders), len(wallets))
	}
	known := make(map[int64]bool, len(wallets))
	for _, w := range wallets {
		known[w.ID] = true
	}
	seenID := make(map[int64]bool, len(orders))
	seenOrder := make([]bool, len(orders))
	for _, o := range orders {
		if !known[o.ID] {
			return fmt.Errorf("%w: unknown wallet %d", core.ErrInvalidOrder, o.ID)
		}
		if seenID[o.ID] {
			return fmt.Errorf("%w: wallet %d listed twice", core.ErrInvalidOrder, o.ID)
		}
		seenID[o.ID] = true
		if o.DisplayOrder < 0 || o.DisplayOrder >= len(orders) || seenOrder[o.DisplayOrder] {
			return fmt.Errorf("%w: display order %d is not a free slot in 0..%d", core.ErrInvalidOrder, o.DisplayOrder, len(orders)-1)
		}
		seenOrder[o.DisplayOrder] = true
	}
	return nil
}

// ReorderSession holds a provisional wallet order while the user drags rows
// around. Nothing is stored until Commit.
type ReorderSession struct {
	svc       *OrderingService
	persisted []core.Wallet
	current   []core.Wallet
}

// NewReorderSession starts from the stored order.
func (s *OrderingService) NewReorderSession(ctx context.Context) (*ReorderSession, error) {
	wallets, err := s.repo.ListWallets(ctx)
	if err != nil {
		return nil, err
	}
	return &ReorderSession{
		svc:       s,
		persisted: wallets,
		current:   append([]core.Wallet(nil), wallets...),
	}, nil
}

// Wallets returns the provisional order.
func (r *ReorderSession) Wallets() []core.Wallet {
	return append([]core.Wallet(nil), r.current...)
}

// Move takes the wallet at position from and inserts it at position to.
func (r *ReorderSession) Move(from, to int) error {
	n := len(r.current)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d -> %d out of range 0..%d", core.ErrInvalidOrder, from, to, n-1)
	}
	w := r.current[from]
	r.current = append(r.current[:from], r.current[from+1:]...)
	r.current = append(r.current[:to], append([]core.Wallet{w}, r.current[to:]...)...)
	return nil
}

// Orders is the provisional order as dense display orders.
func (r *ReorderSession) Orders() []core.WalletOrder {
	out := make([]core.WalletOrder, len(r.current))
	for i, w := range r.current {
		out[i] = core.WalletOrder{ID: w.ID, DisplayOrder: i}
	}
	return out
}

// Commit stores the provisional order. On failure the session is reloaded
// from storage, since the wallet set may have changed under it.
func (r *ReorderSession) Commit(ctx context.Context) error {
	if err := r.svc.UpdateWalletsOrder(ctx, r.Orders()); err != nil {
		r.reload(ctx)
		return err
	}
	for i := range r.current {
		r.current[i].DisplayOrder = i
	}
	r.persisted = append([]core.Wallet(nil), r.current...)
	return nil
}

// Revert discards provisional moves.
func (r *ReorderSession) Revert() {
	r.current = append([]core.Wallet(nil), r.persisted...)
}

func (r *ReorderSession) reload(ctx context.Context) {
	wallets, err := r.svc.repo.ListWallets(ctx)
	if err != nil {
		r.svc.log.LogError(ctx, "Reload of wallet order failed", err, log.NewFields().WithOperation(log.OpReorder))
		r.Revert()
		return
	}
	r.persisted = wallets
	r.Revert()
}
