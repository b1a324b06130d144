package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneybook/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Wallets

const walletColumns = `id, name, currency, initial_balance, type, exchange_rate, display_order, created_at`

const createWallet = `INSERT INTO wallets (name, currency, initial_balance, type, exchange_rate, display_order, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + walletColumns

const insertWalletWithID = `INSERT INTO wallets (id, name, currency, initial_balance, type, exchange_rate, display_order, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error) {
	row := q.db.QueryRowContext(ctx, createWallet,
		w.Name, w.Currency, w.InitialBalance, string(w.Type), w.ExchangeRate, w.DisplayOrder,
		w.CreatedAt.UTC().Format(time.RFC3339Nano))
	return scanWallet(row)
}

func (q *Queries) InsertWalletWithID(ctx context.Context, w core.Wallet) error {
	_, err := q.db.ExecContext(ctx, insertWalletWithID,
		w.ID, w.Name, w.Currency, w.InitialBalance, string(w.Type), w.ExchangeRate, w.DisplayOrder,
		w.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (q *Queries) GetWallet(ctx context.Context, id int64) (core.Wallet, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = ?`, id)
	return scanWallet(row)
}

func (q *Queries) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+walletColumns+` FROM wallets ORDER BY display_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []core.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (q *Queries) MaxDisplayOrder(ctx context.Context) (int, error) {
	var top sql.NullInt64
	if err := q.db.QueryRowContext(ctx, `SELECT MAX(display_order) FROM wallets`).Scan(&top); err != nil {
		return 0, err
	}
	if !top.Valid {
		return -1, nil
	}
	return int(top.Int64), nil
}

func (q *Queries) SetDisplayOrder(ctx context.Context, id int64, order int) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE wallets SET display_order = ? WHERE id = ?`, order, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteWallet(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM wallets WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanWallet(row rowScanner) (core.Wallet, error) {
	var (
		w         core.Wallet
		typ       string
		createdAt string
	)
	if err := row.Scan(&w.ID, &w.Name, &w.Currency, &w.InitialBalance, &typ, &w.ExchangeRate, &w.DisplayOrder, &createdAt); err != nil {
		return core.Wallet{}, err
	}
	w.Type = core.WalletType(typ)
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return core.Wallet{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	w.CreatedAt = t
	return w, nil
}

// Transactions

const transactionColumns = `id, wallet_id, direction, amount, category, occurred_on, notes, receipt_ref, recurrence_every, recurrence_end, transfer_peer`

const createTransaction = `INSERT INTO transactions (wallet_id, direction, amount, category, occurred_on, notes, receipt_ref, recurrence_every, recurrence_end)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

const insertTransactionWithID = `INSERT INTO transactions (id, wallet_id, direction, amount, category, occurred_on, notes, receipt_ref, recurrence_every, recurrence_end, transfer_peer)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func recurrenceArgs(r *core.Recurrence) (every, end sql.NullString) {
	if r == nil {
		return
	}
	every = sql.NullString{String: string(r.Every), Valid: true}
	if !r.EndDate.IsZero() {
		end = sql.NullString{String: r.EndDate.String(), Valid: true}
	}
	return
}

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	every, end := recurrenceArgs(t.Recurrence)
	row := q.db.QueryRowContext(ctx, createTransaction,
		t.WalletID, string(t.Direction), t.Amount, t.Category, t.Date.String(), t.Notes, t.ReceiptRef, every, end)
	return scanTransaction(row)
}

func (q *Queries) InsertTransactionWithID(ctx context.Context, t core.Transaction) error {
	every, end := recurrenceArgs(t.Recurrence)
	_, err := q.db.ExecContext(ctx, insertTransactionWithID,
		t.ID, t.WalletID, string(t.Direction), t.Amount, t.Category, t.Date.String(), t.Notes, t.ReceiptRef, every, end,
		sql.NullInt64{Int64: t.TransferPeer, Valid: t.TransferPeer != 0})
	return err
}

// LinkTransferPair points each half of a transfer at the other.
func (q *Queries) LinkTransferPair(ctx context.Context, debitID, creditID int64) error {
	_, err := q.db.ExecContext(ctx, `UPDATE transactions
SET transfer_peer = CASE id WHEN ? THEN ? ELSE ? END
WHERE id IN (?, ?)`, debitID, creditID, debitID, debitID, creditID)
	return err
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteWalletTransactions(ctx context.Context, walletID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE wallet_id = ?`, walletID)
	return err
}

// TransactionFilter selects transaction rows. Zero fields do not filter.
type TransactionFilter struct {
	WalletIDs []int64
	Direction core.Direction
	Category  string
	Range     core.DateRange
}

func (f TransactionFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(f.WalletIDs) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(f.WalletIDs)), ",")
		clauses = append(clauses, "wallet_id IN ("+marks+")")
		for _, id := range f.WalletIDs {
			args = append(args, id)
		}
	}
	if f.Direction != "" {
		clauses = append(clauses, "direction = ?")
		args = append(args, string(f.Direction))
	}
	if f.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	// ISO dates compare correctly as text.
	if !f.Range.From.IsZero() {
		clauses = append(clauses, "occurred_on >= ?")
		args = append(args, f.Range.From.String())
	}
	if !f.Range.To.IsZero() {
		clauses = append(clauses, "occurred_on <= ?")
		args = append(args, f.Range.To.String())
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// FilterTransactions returns matching rows newest first. A negative limit means no limit.
func (q *Queries) FilterTransactions(ctx context.Context, f TransactionFilter, limit, offset int) ([]core.Transaction, error) {
	where, args := f.where()
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where +
		` ORDER BY occurred_on DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecurringTemplate is a transaction with a recurrence descriptor and the
// last day it was materialized on.
type RecurringTemplate struct {
	core.Transaction
	LastRun core.Date
}

func (q *Queries) ListRecurringTemplates(ctx context.Context) ([]RecurringTemplate, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+transactionColumns+`, recurrence_last
FROM transactions WHERE recurrence_every IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecurringTemplate
	for rows.Next() {
		var last sql.NullString
		t, err := scanTransactionExtra(rows, &last)
		if err != nil {
			return nil, err
		}
		tpl := RecurringTemplate{Transaction: t}
		if last.Valid && last.String != "" {
			if tpl.LastRun, err = core.ParseDate(last.String); err != nil {
				return nil, err
			}
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (q *Queries) SetRecurrenceLastRun(ctx context.Context, id int64, d core.Date) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE transactions SET recurrence_last = ? WHERE id = ?`, d.String(), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	return scanTransactionExtra(row)
}

func scanTransactionExtra(row rowScanner, extra ...any) (core.Transaction, error) {
	var (
		t          core.Transaction
		direction  string
		occurredOn string
		every, end sql.NullString
		peer       sql.NullInt64
	)
	dest := append([]any{&t.ID, &t.WalletID, &direction, &t.Amount, &t.Category, &occurredOn, &t.Notes, &t.ReceiptRef, &every, &end, &peer}, extra...)
	if err := row.Scan(dest...); err != nil {
		return core.Transaction{}, err
	}
	t.Direction = core.Direction(direction)
	d, err := core.ParseDate(occurredOn)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date = d
	t.TransferPeer = peer.Int64
	if every.Valid {
		t.Recurrence = &core.Recurrence{Every: core.RepetitionTypes(every.String)}
		if end.Valid && end.String != "" {
			if t.Recurrence.EndDate, err = core.ParseDate(end.String); err != nil {
				return core.Transaction{}, err
			}
		}
	}
	return t, nil
}

// Budgets

const budgetColumns = `id, name, category_ids, wallet_ids, limit_amount, period, start_date, end_date, current_spending`

func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	cats, wallets, err := encodeScope(b.CategoryIDs, b.WalletIDs)
	if err != nil {
		return core.Budget{}, err
	}
	row := q.db.QueryRowContext(ctx, `INSERT INTO budgets (name, category_ids, wallet_ids, limit_amount, period, start_date, end_date, current_spending)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING `+budgetColumns,
		b.Name, cats, wallets, b.LimitAmount, string(b.Period), b.StartDate.String(), b.EndDate.String(), b.CurrentSpending)
	return scanBudget(row)
}

func (q *Queries) InsertBudgetWithID(ctx context.Context, b core.Budget) error {
	cats, wallets, err := encodeScope(b.CategoryIDs, b.WalletIDs)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `INSERT INTO budgets (id, name, category_ids, wallet_ids, limit_amount, period, start_date, end_date, current_spending)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, cats, wallets, b.LimitAmount, string(b.Period), b.StartDate.String(), b.EndDate.String(), b.CurrentSpending)
	return err
}

func (q *Queries) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	return scanBudget(q.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
}

func (q *Queries) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *Queries) SetBudgetSpending(ctx context.Context, id int64, spending decimal.Decimal) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE budgets SET current_spending = ? WHERE id = ?`, spending, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteBudget(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b                  core.Budget
		cats, wallets      string
		period, start, end string
	)
	if err := row.Scan(&b.ID, &b.Name, &cats, &wallets, &b.LimitAmount, &period, &start, &end, &b.CurrentSpending); err != nil {
		return core.Budget{}, err
	}
	b.Period = core.RepetitionTypes(period)
	if err := decodeScope(cats, wallets, &b.CategoryIDs, &b.WalletIDs); err != nil {
		return core.Budget{}, err
	}
	var err error
	if b.StartDate, err = core.ParseDate(start); err != nil {
		return core.Budget{}, err
	}
	if b.EndDate, err = core.ParseDate(end); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// Goals

const goalColumns = `id, name, target_amount, start_date, target_date, wallet_ids, current_progress, notes`

func (q *Queries) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	_, wallets, err := encodeScope(nil, g.WalletIDs)
	if err != nil {
		return core.Goal{}, err
	}
	row := q.db.QueryRowContext(ctx, `INSERT INTO goals (name, target_amount, start_date, target_date, wallet_ids, current_progress, notes)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING `+goalColumns,
		g.Name, g.TargetAmount, g.StartDate.String(), g.TargetDate.String(), wallets, g.CurrentProgress, g.Notes)
	return scanGoal(row)
}

func (q *Queries) InsertGoalWithID(ctx context.Context, g core.Goal) error {
	_, wallets, err := encodeScope(nil, g.WalletIDs)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `INSERT INTO goals (id, name, target_amount, start_date, target_date, wallet_ids, current_progress, notes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.TargetAmount, g.StartDate.String(), g.TargetDate.String(), wallets, g.CurrentProgress, g.Notes)
	return err
}

func (q *Queries) UpdateGoal(ctx context.Context, g core.Goal) (int64, error) {
	_, wallets, err := encodeScope(nil, g.WalletIDs)
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, `UPDATE goals
SET name = ?, target_amount = ?, start_date = ?, target_date = ?, wallet_ids = ?, notes = ?
WHERE id = ?`,
		g.Name, g.TargetAmount, g.StartDate.String(), g.TargetDate.String(), wallets, g.Notes, g.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	return scanGoal(q.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
}

func (q *Queries) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (q *Queries) SetGoalProgress(ctx context.Context, id int64, progress decimal.Decimal) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE goals SET current_progress = ? WHERE id = ?`, progress, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteGoal(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanGoal(row rowScanner) (core.Goal, error) {
	var (
		g                  core.Goal
		start, end, wallet string
	)
	if err := row.Scan(&g.ID, &g.Name, &g.TargetAmount, &start, &end, &wallet, &g.CurrentProgress, &g.Notes); err != nil {
		return core.Goal{}, err
	}
	if err := decodeScope("[]", wallet, nil, &g.WalletIDs); err != nil {
		return core.Goal{}, err
	}
	var err error
	if g.StartDate, err = core.ParseDate(start); err != nil {
		return core.Goal{}, err
	}
	if g.TargetDate, err = core.ParseDate(end); err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

// ClearAll empties every table, children first.
func (q *Queries) ClearAll(ctx context.Context) error {
	for _, table := range []string{"transactions", "budgets", "goals", "wallets"} {
		if _, err := q.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func encodeScope(categories []string, wallets []int64) (string, string, error) {
	if categories == nil {
		categories = []string{}
	}
	if wallets == nil {
		wallets = []int64{}
	}
	c, err := json.Marshal(categories)
	if err != nil {
		return "", "", fmt.Errorf("encode category scope: %w", err)
	}
	w, err := json.Marshal(wallets)
	if err != nil {
		return "", "", fmt.Errorf("encode wallet scope: %w", err)
	}
	return string(c), string(w), nil
}

func decodeScope(categories, wallets string, c *[]string, w *[]int64) error {
	if c != nil {
		if err := json.Unmarshal([]byte(categories), c); err != nil {
			return fmt.Errorf("decode category scope: %w", err)
		}
	}
	if w != nil {
		if err := json.Unmarshal([]byte(wallets), w); err != nil {
			return fmt.Errorf("decode wallet scope: %w", err)
		}
	}
	return nil
}
