package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"moneybook/internal/core"

	_ "modernc.org/sqlite"
)

// dsnPragmas are applied by the modernc driver on every new connection.
const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// SQLiteRepository is the ledger's persistent store. Reads go straight to the
// pool; every write funnels through a weight-1 semaphore so the engine has a
// single writer even when several callers share the repository.
type SQLiteRepository struct {
	db        *sql.DB
	queries   *Queries
	writeGate *semaphore.Weighted
}

// Snapshot is a full copy of the four ledger tables, used by backup and restore.
type Snapshot struct {
	Wallets      []core.Wallet
	Transactions []core.Transaction
	Budgets      []core.Budget
	Goals        []core.Goal
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:        db,
		queries:   New(db),
		writeGate: semaphore.NewWeighted(1),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// write runs fn while holding the single-writer gate.
func (r *SQLiteRepository) write(ctx context.Context, fn func() error) error {
	if err := r.writeGate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for writer: %w", err)
	}
	defer r.writeGate.Release(1)
	return fn()
}

// inTx runs fn inside one storage transaction under the writer gate. When
// atomic is set, any failure that is not already a ledger error kind is
// reported as core.ErrConsistency: the rows written so far were rolled back.
func (r *SQLiteRepository) inTx(ctx context.Context, op string, atomic bool, fn func(q *Queries) error) error {
	return r.write(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", op, err)
		}

		if err := fn(r.queries.WithTx(tx)); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "Rollback failed", "operation", op, "error", rbErr)
			}
			if atomic && !isLedgerError(err) {
				return fmt.Errorf("%w: %s rolled back: %w", core.ErrConsistency, op, err)
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: commit %s: %w", core.ErrConsistency, op, err)
		}
		return nil
	})
}

func isLedgerError(err error) bool {
	for _, kind := range []error{core.ErrValidation, core.ErrNotFound, core.ErrInvalidTransfer, core.ErrInsufficientFunds, core.ErrConsistency} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func notFound(err error, kind error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return kind
	}
	return err
}

// Wallets

// CreateWallet persists w with display order one past the current maximum.
func (r *SQLiteRepository) CreateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	var created core.Wallet
	err := r.inTx(ctx, "create wallet", false, func(q *Queries) error {
		top, err := q.MaxDisplayOrder(ctx)
		if err != nil {
			return fmt.Errorf("read max display order: %w", err)
		}
		w.DisplayOrder = top + 1
		if w.CreatedAt.IsZero() {
			w.CreatedAt = time.Now()
		}
		created, err = q.CreateWallet(ctx, w)
		if err != nil {
			return fmt.Errorf("insert wallet: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}

	slog.InfoContext(ctx, "Wallet saved to SQLite",
		"id", created.ID,
		"name", created.Name,
		"currency", created.Currency,
		"display_order", created.DisplayOrder)

	return created, nil
}

func (r *SQLiteRepository) GetWallet(ctx context.Context, id int64) (core.Wallet, error) {
	w, err := r.queries.GetWallet(ctx, id)
	if err != nil {
		return core.Wallet{}, fmt.Errorf("get wallet %d: %w", id, notFound(err, core.ErrWalletNotFound))
	}
	return w, nil
}

// ListWallets returns every wallet ordered by display order, then id.
func (r *SQLiteRepository) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	wallets, err := r.queries.ListWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	return wallets, nil
}

// DeleteWallet removes the wallet and all of its transactions.
func (r *SQLiteRepository) DeleteWallet(ctx context.Context, id int64) error {
	err := r.inTx(ctx, "delete wallet", true, func(q *Queries) error {
		if err := q.DeleteWalletTransactions(ctx, id); err != nil {
			return fmt.Errorf("delete wallet transactions: %w", err)
		}
		n, err := q.DeleteWallet(ctx, id)
		if err != nil {
			return fmt.Errorf("delete wallet row: %w", err)
		}
		if n == 0 {
			return core.ErrWalletNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete wallet %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Wallet deleted", "id", id)
	return nil
}

// UpdateWalletOrders writes every display order in one transaction.
func (r *SQLiteRepository) UpdateWalletOrders(ctx context.Context, orders []core.WalletOrder) error {
	err := r.inTx(ctx, "update wallet order", true, func(q *Queries) error {
		for _, o := range orders {
			n, err := q.SetDisplayOrder(ctx, o.ID, o.DisplayOrder)
			if err != nil {
				return fmt.Errorf("set display order of wallet %d: %w", o.ID, err)
			}
			if n == 0 {
				return fmt.Errorf("wallet %d vanished during reorder", o.ID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Wallet order updated", "wallets", len(orders))
	return nil
}

// Transactions

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var created core.Transaction
	err := r.write(ctx, func() error {
		var err error
		created, err = r.queries.CreateTransaction(ctx, t)
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", created.ID,
		"wallet_id", created.WalletID,
		"direction", created.Direction,
		"amount", created.Amount.String(),
		"category", created.Category,
		"date", created.Date.String())

	return created, nil
}

// CreateTransferPair writes the debit and credit rows of a transfer in one
// storage transaction. Either both rows exist afterwards or neither does.
func (r *SQLiteRepository) CreateTransferPair(ctx context.Context, debit, credit core.Transaction) (core.Transaction, core.Transaction, error) {
	var out, in core.Transaction
	err := r.inTx(ctx, "transfer", true, func(q *Queries) error {
		// Re-check funds under the writer gate so no write slips in between.
		src, err := q.GetWallet(ctx, debit.WalletID)
		if err != nil {
			return notFound(err, core.ErrWalletNotFound)
		}
		rows, err := q.FilterTransactions(ctx, TransactionFilter{WalletIDs: []int64{src.ID}}, -1, 0)
		if err != nil {
			return fmt.Errorf("read source transactions: %w", err)
		}
		if debit.Amount.GreaterThan(core.Balance(src, rows)) {
			return core.ErrInsufficientFunds
		}
		if out, err = q.CreateTransaction(ctx, debit); err != nil {
			return fmt.Errorf("insert debit row: %w", err)
		}
		if in, err = q.CreateTransaction(ctx, credit); err != nil {
			return fmt.Errorf("insert credit row: %w", err)
		}
		if err := q.LinkTransferPair(ctx, out.ID, in.ID); err != nil {
			return fmt.Errorf("link transfer rows: %w", err)
		}
		out.TransferPeer, in.TransferPeer = in.ID, out.ID
		return nil
	})
	if err != nil {
		return core.Transaction{}, core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transfer pair saved to SQLite",
		"debit_id", out.ID,
		"credit_id", in.ID,
		"from_wallet", out.WalletID,
		"to_wallet", in.WalletID,
		"debit_amount", out.Amount.String(),
		"credit_amount", in.Amount.String())

	return out, in, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := r.queries.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, notFound(err, core.ErrTransactionNotFound))
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	var n int64
	err := r.write(ctx, func() error {
		var err error
		n, err = r.queries.DeleteTransaction(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, core.ErrTransactionNotFound)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// DeleteTransfer removes the transfer row id together with its counterpart,
// in one storage transaction. A row whose counterpart is already gone (its
// wallet was deleted) is removed alone. It returns the rows it deleted.
func (r *SQLiteRepository) DeleteTransfer(ctx context.Context, id int64) ([]core.Transaction, error) {
	var deleted []core.Transaction
	err := r.inTx(ctx, "delete transfer", true, func(q *Queries) error {
		t, err := q.GetTransaction(ctx, id)
		if err != nil {
			return notFound(err, core.ErrTransactionNotFound)
		}
		if !t.IsTransfer() {
			return fmt.Errorf("%w: transaction %d is not a transfer", core.ErrInvalidTransfer, id)
		}
		rows := []core.Transaction{t}
		if t.TransferPeer != 0 {
			peer, err := q.GetTransaction(ctx, t.TransferPeer)
			switch {
			case err == nil:
				rows = append(rows, peer)
			case !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("read transfer counterpart %d: %w", t.TransferPeer, err)
			}
		}
		for _, row := range rows {
			if _, err := q.DeleteTransaction(ctx, row.ID); err != nil {
				return fmt.Errorf("delete transfer row %d: %w", row.ID, err)
			}
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete transfer %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Transfer deleted", "id", id, "rows", len(deleted))
	return deleted, nil
}

// FilterTransactions returns one page of matching rows, newest first.
func (r *SQLiteRepository) FilterTransactions(ctx context.Context, f TransactionFilter, limit, offset int) ([]core.Transaction, error) {
	txs, err := r.queries.FilterTransactions(ctx, f, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("filter transactions: %w", err)
	}
	return txs, nil
}

// AllTransactions returns every matching row, newest first.
func (r *SQLiteRepository) AllTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error) {
	return r.FilterTransactions(ctx, f, -1, 0)
}

func (r *SQLiteRepository) ListRecurringTemplates(ctx context.Context) ([]RecurringTemplate, error) {
	tpls, err := r.queries.ListRecurringTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	return tpls, nil
}

// MaterializeOccurrence stores one occurrence of template templateID and
// advances the template's last run to the occurrence date, in one storage
// transaction. A failure on either step leaves neither written.
func (r *SQLiteRepository) MaterializeOccurrence(ctx context.Context, templateID int64, t core.Transaction) (core.Transaction, error) {
	var created core.Transaction
	err := r.inTx(ctx, "materialize occurrence", true, func(q *Queries) error {
		var err error
		if created, err = q.CreateTransaction(ctx, t); err != nil {
			return fmt.Errorf("insert occurrence: %w", err)
		}
		n, err := q.SetRecurrenceLastRun(ctx, templateID, t.Date)
		if err != nil {
			return fmt.Errorf("mark template run: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("template %d: %w", templateID, core.ErrTransactionNotFound)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("materialize occurrence: %w", err)
	}

	slog.InfoContext(ctx, "Recurring occurrence saved to SQLite",
		"id", created.ID,
		"template_id", templateID,
		"wallet_id", created.WalletID,
		"date", created.Date.String())
	return created, nil
}

// Budgets

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	var created core.Budget
	err := r.write(ctx, func() error {
		var err error
		created, err = r.queries.CreateBudget(ctx, b)
		return err
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved to SQLite",
		"id", created.ID,
		"name", created.Name,
		"period", created.Period,
		"start", created.StartDate.String(),
		"end", created.EndDate.String())

	return created, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	b, err := r.queries.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, notFound(err, core.ErrBudgetNotFound))
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	budgets, err := r.queries.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// SetBudgetSpending overwrites the cached spending of a budget.
func (r *SQLiteRepository) SetBudgetSpending(ctx context.Context, id int64, spending decimal.Decimal) error {
	var n int64
	err := r.write(ctx, func() error {
		var err error
		n, err = r.queries.SetBudgetSpending(ctx, id, spending)
		return err
	})
	if err != nil {
		return fmt.Errorf("set budget %d spending: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("set budget %d spending: %w", id, core.ErrBudgetNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id int64) error {
	var n int64
	err := r.write(ctx, func() error {
		var err error
		n, err = r.queries.DeleteBudget(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete budget %d: %w", id, core.ErrBudgetNotFound)
	}
	return nil
}

// Goals

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	var created core.Goal
	err := r.write(ctx, func() error {
		var err error
		created, err = r.queries.CreateGoal(ctx, g)
		return err
	})
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}

	slog.InfoContext(ctx, "Goal saved to SQLite",
		"id", created.ID,
		"name", created.Name,
		"target", created.TargetAmount.String(),
		"target_date", created.TargetDate.String())

	return created, nil
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) error {
	var n int64
	err := r.write(ctx, func() error {
		var err error
		n, err = r.queries.UpdateGoal(ctx, g)
		return err
	})
	if err != nil {
		return fmt.Errorf("update goal %d: %w", g.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update goal %d: %w", g.ID, core.ErrGoalNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	g, err := r.queries.GetGoal(ctx, id)
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal %d: %w", id, notFound(err, core.ErrGoalNotFound))
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	goals, err := r.queries.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// SetGoalProgress overwrites the cached progress of a goal.
func (r *SQLiteRepository) SetGoalProgress(ctx context.Context, id int64, progress decimal.Decimal) error {
	var n int64
	err := r.write(ctx, func() error {
		var err error
		n, err = r.queries.SetGoalProgress(ctx, id, progress)
		return err
	})
	if err != nil {
		return fmt.Errorf("set goal %d progress: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("set goal %d progress: %w", id, core.ErrGoalNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id int64) error {
	var n int64
	err := r.write(ctx, func() error {
		var err error
		n, err = r.queries.DeleteGoal(ctx, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete goal %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete goal %d: %w", id, core.ErrGoalNotFound)
	}
	return nil
}

// Backup

// Snapshot reads all four tables.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (Snapshot, error) {
	var (
		s   Snapshot
		err error
	)
	if s.Wallets, err = r.ListWallets(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Transactions, err = r.AllTransactions(ctx, TransactionFilter{}); err != nil {
		return Snapshot{}, err
	}
	if s.Budgets, err = r.ListBudgets(ctx); err != nil {
		return Snapshot{}, err
	}
	if s.Goals, err = r.ListGoals(ctx); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// ReplaceAll swaps the whole ledger for the snapshot, keeping its ids.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, s Snapshot) error {
	err := r.inTx(ctx, "replace all", true, func(q *Queries) error {
		if err := q.ClearAll(ctx); err != nil {
			return err
		}
		for _, w := range s.Wallets {
			if err := q.InsertWalletWithID(ctx, w); err != nil {
				return fmt.Errorf("insert wallet %d: %w", w.ID, err)
			}
		}
		for _, t := range s.Transactions {
			if err := q.InsertTransactionWithID(ctx, t); err != nil {
				return fmt.Errorf("insert transaction %d: %w", t.ID, err)
			}
		}
		for _, b := range s.Budgets {
			if err := q.InsertBudgetWithID(ctx, b); err != nil {
				return fmt.Errorf("insert budget %d: %w", b.ID, err)
			}
		}
		for _, g := range s.Goals {
			if err := q.InsertGoalWithID(ctx, g); err != nil {
				return fmt.Errorf("insert goal %d: %w", g.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Ledger replaced from snapshot",
		"wallets", len(s.Wallets),
		"transactions", len(s.Transactions),
		"budgets", len(s.Budgets),
		"goals", len(s.Goals))
	return nil
}
