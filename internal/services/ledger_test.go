package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"moneybook/internal/core"
)

func TestCreateWallet(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	tests := []struct {
		name    string
		spec    WalletSpec
		wantErr error
	}{
		{"valid", WalletSpec{Name: "Cash", Currency: "eur", Type: core.Cash}, nil},
		{"negative balance allowed", WalletSpec{Name: "Card", Currency: "USD", InitialBalance: dec("-120.5"), Type: core.Credit}, nil},
		{"empty name", WalletSpec{Name: "  ", Currency: "EUR"}, core.ErrEmptyName},
		{"missing currency", WalletSpec{Name: "Cash"}, core.ErrEmptyCurrency},
		{"unknown currency", WalletSpec{Name: "Cash", Currency: "XYZ"}, core.ErrUnknownCurrency},
		{"bad type", WalletSpec{Name: "Cash", Currency: "EUR", Type: "jar"}, core.ErrInvalidWallet},
		{"negative rate", WalletSpec{Name: "Cash", Currency: "EUR", ExchangeRate: dec("-1")}, core.ErrInvalidRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := e.Ledger.CreateWallet(ctx, tt.spec)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateWallet error = %v, want %v", err, tt.wantErr)
				}
				if !errors.Is(err, core.ErrValidation) {
					t.Errorf("error %v should be a validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateWallet: %v", err)
			}
			if !w.ExchangeRate.Equal(decimal.NewFromInt(1)) {
				t.Errorf("default rate = %s, want 1", w.ExchangeRate)
			}
			if w.Currency != core.NormalizeCurrency(tt.spec.Currency) {
				t.Errorf("currency = %q", w.Currency)
			}
		})
	}

	wallets, err := e.Ledger.ListWallets(ctx)
	if err != nil {
		t.Fatalf("ListWallets: %v", err)
	}
	if len(wallets) != 2 {
		t.Fatalf("got %d wallets, want 2", len(wallets))
	}
	for i, w := range wallets {
		if w.DisplayOrder != i {
			t.Errorf("wallet %q order = %d, want %d", w.Name, w.DisplayOrder, i)
		}
	}
}

func TestWalletBalance(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	w := mustWallet(t, e, "Main", "EUR", "100", "1")
	day := core.NewDate(2024, 5, 1)

	mustAdd(t, e, w.ID, core.Income, "50.25", "Salary", day)
	rent := mustAdd(t, e, w.ID, core.Expense, "80", "Rent", day)
	mustAdd(t, e, w.ID, core.Expense, "0.25", "Fees", day)

	if got := balanceOf(t, e, w.ID); !got.Equal(dec("70")) {
		t.Fatalf("balance = %s, want 70", got)
	}

	if _, err := e.Ledger.DeleteTransaction(ctx, rent.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if got := balanceOf(t, e, w.ID); !got.Equal(dec("150")) {
		t.Fatalf("balance after delete = %s, want 150", got)
	}

	if _, err := e.Ledger.GetWalletBalance(ctx, w.ID+100); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("balance of missing wallet error = %v, want ErrNotFound", err)
	}
}

func TestAddTransactionRejects(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	w := mustWallet(t, e, "Main", "EUR", "0", "1")
	day := core.NewDate(2024, 5, 1)

	tests := []struct {
		name    string
		tx      core.Transaction
		wantErr error
	}{
		{"zero amount", core.Transaction{WalletID: w.ID, Direction: core.Expense, Amount: decimal.Zero, Category: "Food", Date: day}, core.ErrInvalidAmount},
		{"negative amount", core.Transaction{WalletID: w.ID, Direction: core.Expense, Amount: dec("-3"), Category: "Food", Date: day}, core.ErrInvalidAmount},
		{"bad direction", core.Transaction{WalletID: w.ID, Direction: "sideways", Amount: dec("3"), Category: "Food", Date: day}, core.ErrInvalidDirection},
		{"empty category", core.Transaction{WalletID: w.ID, Direction: core.Expense, Amount: dec("3"), Category: " ", Date: day}, core.ErrEmptyCategory},
		{"unknown wallet", core.Transaction{WalletID: w.ID + 1, Direction: core.Expense, Amount: dec("3"), Category: "Food", Date: day}, core.ErrNotFound},
		{"transfer category", core.Transaction{WalletID: w.ID, Direction: core.Income, Amount: dec("3"), Category: " Transfer ", Date: day}, core.ErrReservedCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Ledger.AddTransaction(ctx, tt.tx); !errors.Is(err, tt.wantErr) {
				t.Errorf("AddTransaction error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if n := countRows(t, e); n != 0 {
		t.Errorf("rejected transactions left %d rows", n)
	}
}

func TestAddTransactionDefaultsToToday(t *testing.T) {
	e := newTestEngine(t)
	w := mustWallet(t, e, "Main", "EUR", "0", "1")

	tx, err := e.Ledger.AddTransaction(context.Background(), core.Transaction{
		WalletID: w.ID, Direction: core.Income, Amount: dec("1"), Category: "Gift",
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if !tx.Date.Equal(core.NewDate(2024, 5, 15)) {
		t.Errorf("date = %s, want 2024-05-15", tx.Date)
	}
}

func TestDeleteWalletCascadesAndKeepsOrder(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	a := mustWallet(t, e, "A", "EUR", "0", "1")
	b := mustWallet(t, e, "B", "EUR", "0", "1")
	c := mustWallet(t, e, "C", "EUR", "0", "1")
	mustAdd(t, e, b.ID, core.Income, "10", "Gift", core.NewDate(2024, 5, 1))

	if err := e.Ledger.DeleteWallet(ctx, b.ID); err != nil {
		t.Fatalf("DeleteWallet: %v", err)
	}
	if n := countRows(t, e); n != 0 {
		t.Errorf("%d transactions survived their wallet", n)
	}

	wallets, _ := e.Ledger.ListWallets(ctx)
	if len(wallets) != 2 || wallets[0].ID != a.ID || wallets[1].ID != c.ID {
		t.Fatalf("wallets = %+v", wallets)
	}
	if wallets[1].DisplayOrder != 2 {
		t.Errorf("remaining wallet renumbered to %d, want 2", wallets[1].DisplayOrder)
	}

	if err := e.Ledger.DeleteWallet(ctx, b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteWallet twice error = %v, want ErrNotFound", err)
	}
}

func TestFilterTransactionsPaging(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	w := mustWallet(t, e, "Main", "EUR", "0", "1")
	other := mustWallet(t, e, "Other", "EUR", "0", "1")

	for day := 1; day <= 5; day++ {
		mustAdd(t, e, w.ID, core.Expense, "1", "Food", core.NewDate(2024, 5, day))
	}
	mustAdd(t, e, other.ID, core.Expense, "1", "Food", core.NewDate(2024, 5, 3))

	f := TransactionFilter{WalletIDs: []int64{w.ID}}
	p0, err := e.Ledger.FilterTransactions(ctx, f, 0, 2)
	if err != nil {
		t.Fatalf("FilterTransactions: %v", err)
	}
	if len(p0.Items) != 2 || !p0.HasMore {
		t.Fatalf("page 0 = %d items, HasMore %v", len(p0.Items), p0.HasMore)
	}
	if !p0.Items[0].Date.Equal(core.NewDate(2024, 5, 5)) {
		t.Errorf("first item dated %s, want newest", p0.Items[0].Date)
	}

	p2, err := e.Ledger.FilterTransactions(ctx, f, 2, 2)
	if err != nil {
		t.Fatalf("FilterTransactions: %v", err)
	}
	if len(p2.Items) != 1 || p2.HasMore {
		t.Fatalf("page 2 = %d items, HasMore %v", len(p2.Items), p2.HasMore)
	}

	ranged, err := e.Ledger.FilterTransactions(ctx, TransactionFilter{
		Range: core.DateRange{From: core.NewDate(2024, 5, 2), To: core.NewDate(2024, 5, 3)},
	}, 0, 0)
	if err != nil {
		t.Fatalf("FilterTransactions: %v", err)
	}
	if len(ranged.Items) != 3 {
		t.Errorf("range page has %d items, want 3", len(ranged.Items))
	}

	if _, err := e.Ledger.FilterTransactions(ctx, f, -1, 2); !errors.Is(err, core.ErrValidation) {
		t.Errorf("negative page error = %v, want ErrValidation", err)
	}
}

func TestTransactionsSequence(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, WithPageSize(2))
	w := mustWallet(t, e, "Main", "EUR", "0", "1")
	for day := 1; day <= 5; day++ {
		mustAdd(t, e, w.ID, core.Expense, "1", "Food", core.NewDate(2024, 4, day))
	}

	var days []int
	for tx, err := range e.Ledger.Transactions(ctx, TransactionFilter{}) {
		if err != nil {
			t.Fatalf("Transactions: %v", err)
		}
		days = append(days, tx.Date.Day())
	}
	want := []int{5, 4, 3, 2, 1}
	if len(days) != len(want) {
		t.Fatalf("days = %v, want %v", days, want)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Fatalf("days = %v, want %v", days, want)
		}
	}

	seen := 0
	for range e.Ledger.Transactions(ctx, TransactionFilter{}) {
		seen++
		if seen == 3 {
			break
		}
	}
	if seen != 3 {
		t.Errorf("early break saw %d rows", seen)
	}
}

func TestDeleteTransactionRemovesTransferPair(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	a := mustWallet(t, e, "A", "EUR", "100", "1")
	b := mustWallet(t, e, "B", "EUR", "0", "1")

	tr, err := e.Transfers.TransferBetweenWallets(ctx, TransferRequest{FromWalletID: a.ID, ToWalletID: b.ID, Amount: dec("10")})
	if err != nil {
		t.Fatalf("TransferBetweenWallets: %v", err)
	}
	deleted, err := e.Ledger.DeleteTransaction(ctx, tr.Credit.ID)
	if err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if len(deleted) != 2 {
		t.Fatalf("deleted %d rows, want both halves", len(deleted))
	}
	if n := countRows(t, e); n != 0 {
		t.Errorf("rows = %d, want 0", n)
	}
	if got := balanceOf(t, e, a.ID); !got.Equal(dec("100")) {
		t.Errorf("balance of A = %s, want 100", got)
	}
	if got := balanceOf(t, e, b.ID); !got.Equal(dec("0")) {
		t.Errorf("balance of B = %s, want 0", got)
	}
}

func TestDeleteTransactionOrphanedTransferHalf(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	a := mustWallet(t, e, "A", "EUR", "100", "1")
	b := mustWallet(t, e, "B", "EUR", "20", "1")

	tr, err := e.Transfers.TransferBetweenWallets(ctx, TransferRequest{FromWalletID: a.ID, ToWalletID: b.ID, Amount: dec("10")})
	if err != nil {
		t.Fatalf("TransferBetweenWallets: %v", err)
	}
	if err := e.Ledger.DeleteWallet(ctx, a.ID); err != nil {
		t.Fatalf("DeleteWallet: %v", err)
	}

	deleted, err := e.Ledger.DeleteTransaction(ctx, tr.Credit.ID)
	if err != nil {
		t.Fatalf("DeleteTransaction(orphan): %v", err)
	}
	if len(deleted) != 1 || deleted[0].ID != tr.Credit.ID {
		t.Errorf("deleted = %+v, want only the credit row", deleted)
	}
	if got := balanceOf(t, e, b.ID); !got.Equal(dec("20")) {
		t.Errorf("balance of B = %s, want 20", got)
	}
}

func TestAddOccurrence(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	w := mustWallet(t, e, "Main", "EUR", "0", "1")

	tpl, err := e.Ledger.AddTransaction(ctx, core.Transaction{
		WalletID: w.ID, Direction: core.Expense, Amount: dec("9"), Category: "Gym",
		Date: core.NewDate(2024, 1, 1), Recurrence: &core.Recurrence{Every: core.Monthly},
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	occ := tpl
	occ.Date = core.NewDate(2024, 2, 1)
	row, err := e.Ledger.AddOccurrence(ctx, tpl.ID, occ)
	if err != nil {
		t.Fatalf("AddOccurrence: %v", err)
	}
	if row.ID == tpl.ID || row.Recurrence != nil {
		t.Errorf("occurrence = %+v, want a new plain row", row)
	}

	t.Run("unknown template writes nothing", func(t *testing.T) {
		before := countRows(t, e)
		if _, err := e.Ledger.AddOccurrence(ctx, tpl.ID+100, occ); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("AddOccurrence error = %v, want ErrNotFound", err)
		}
		if n := countRows(t, e); n != before {
			t.Errorf("rows = %d, want %d", n, before)
		}
	})
}
