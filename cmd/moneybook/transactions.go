package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"moneybook/internal/core"
	"moneybook/internal/services"
)

type txAddCmd struct {
	wallet    int64
	direction string
	amount    string
	category  string
	date      string
	notes     string
	receipt   string
	every     string
	until     string
}

func (*txAddCmd) Name() string     { return "tx-add" }
func (*txAddCmd) Synopsis() string { return "record an income or an expense" }
func (*txAddCmd) Usage() string {
	return `moneybook tx-add -wallet <id> -amount <amount> -category <label> [-dir income|expense] [-date YYYY-MM-DD] [-every daily|weekly|monthly|yearly [-until YYYY-MM-DD]]

  Records a transaction. With -every the transaction becomes a recurring
  template that moneybook-worker repeats.
`
}

func (c *txAddCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.wallet, "wallet", 0, "wallet id")
	f.StringVar(&c.direction, "dir", string(core.Expense), "income or expense")
	f.StringVar(&c.amount, "amount", "", "positive amount in the wallet currency")
	f.StringVar(&c.category, "category", "", "category label")
	f.StringVar(&c.date, "date", "", "transaction date, defaults to today")
	f.StringVar(&c.notes, "notes", "", "free text")
	f.StringVar(&c.receipt, "receipt", "", "receipt reference")
	f.StringVar(&c.every, "every", "", "repeat daily, weekly, monthly or yearly")
	f.StringVar(&c.until, "until", "", "last date of the repetition")
}

func (c *txAddCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	amount, err := core.ParseAmount(c.amount)
	if err != nil {
		return usageError("Error parsing amount: %v", err)
	}
	date, err := parseOptionalDate(c.date)
	if err != nil {
		return usageError("Error parsing date: %v", err)
	}

	tx := core.Transaction{
		WalletID:   c.wallet,
		Direction:  core.Direction(c.direction),
		Amount:     amount,
		Category:   c.category,
		Date:       date,
		Notes:      c.notes,
		ReceiptRef: c.receipt,
	}
	if c.every != "" {
		every, err := core.ParseRepetition(c.every)
		if err != nil {
			return usageError("Error parsing repetition: %v", err)
		}
		until, err := parseOptionalDate(c.until)
		if err != nil {
			return usageError("Error parsing end date: %v", err)
		}
		tx.Recurrence = &core.Recurrence{Every: every, EndDate: until}
	}

	created, err := a.engine.Ledger.AddTransaction(ctx, tx)
	if err != nil {
		return a.fail("adding transaction", err)
	}
	a.afterWrite(ctx, created)

	wallets, err := walletIndex(ctx, a)
	if err != nil {
		return a.fail("listing wallets", err)
	}
	a.printMarkdown(transactionsMarkdown(services.Page{Items: []core.Transaction{created}}, wallets))
	return subcommands.ExitSuccess
}

type txListCmd struct {
	wallets   string
	direction string
	category  string
	from      string
	to        string
	page      int
	size      int
}

func (*txListCmd) Name() string     { return "tx-list" }
func (*txListCmd) Synopsis() string { return "list transactions, newest first" }
func (*txListCmd) Usage() string {
	return `moneybook tx-list [-wallets <id,...>] [-dir income|expense] [-category <label>] [-from YYYY-MM-DD] [-to YYYY-MM-DD] [-page N] [-size N]
`
}

func (c *txListCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.wallets, "wallets", "", "only these wallet ids")
	f.StringVar(&c.direction, "dir", "", "only income or expense")
	f.StringVar(&c.category, "category", "", "only this category")
	f.StringVar(&c.from, "from", "", "first date, inclusive")
	f.StringVar(&c.to, "to", "", "last date, inclusive")
	f.IntVar(&c.page, "page", 0, "zero-based page number")
	f.IntVar(&c.size, "size", 0, "page size, defaults to PAGE_SIZE")
}

func (c *txListCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	ids, err := parseIDs(c.wallets)
	if err != nil {
		return usageError("%v", err)
	}
	from, err := parseOptionalDate(c.from)
	if err != nil {
		return usageError("Error parsing -from: %v", err)
	}
	to, err := parseOptionalDate(c.to)
	if err != nil {
		return usageError("Error parsing -to: %v", err)
	}

	page, err := a.engine.Ledger.FilterTransactions(ctx, services.TransactionFilter{
		WalletIDs: ids,
		Direction: core.Direction(c.direction),
		Category:  c.category,
		Range:     core.DateRange{From: from, To: to},
	}, c.page, c.size)
	if err != nil {
		return a.fail("listing transactions", err)
	}

	wallets, err := walletIndex(ctx, a)
	if err != nil {
		return a.fail("listing wallets", err)
	}
	a.printMarkdown(transactionsMarkdown(page, wallets))
	return subcommands.ExitSuccess
}

type txRmCmd struct{}

func (*txRmCmd) Name() string             { return "tx-rm" }
func (*txRmCmd) Synopsis() string         { return "delete a transaction" }
func (*txRmCmd) Usage() string            { return "moneybook tx-rm <transaction-id>\n" }
func (*txRmCmd) SetFlags(_ *flag.FlagSet) {}

func (c *txRmCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if f.NArg() != 1 {
		return usageError("tx-rm takes exactly one transaction id")
	}
	id, err := parseID(f.Arg(0))
	if err != nil {
		return usageError("%v", err)
	}
	deleted, err := a.engine.Ledger.DeleteTransaction(ctx, id)
	if err != nil {
		return a.fail("deleting transaction", err)
	}
	a.afterWrite(ctx, deleted...)
	if len(deleted) > 1 {
		a.printMarkdown(fmt.Sprintf("Transfer %d deleted with its counterpart.\n", id))
	} else {
		a.printMarkdown(fmt.Sprintf("Transaction %d deleted.\n", id))
	}
	return subcommands.ExitSuccess
}

type transferCmd struct {
	from   int64
	to     int64
	amount string
	notes  string
	date   string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between two wallets" }
func (*transferCmd) Usage() string {
	return `moneybook transfer -from <id> -to <id> -amount <amount> [-notes <text>] [-date YYYY-MM-DD]

  The amount is in the source wallet currency. The destination is credited
  the amount converted through both wallets' exchange rates.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.from, "from", 0, "source wallet id")
	f.Int64Var(&c.to, "to", 0, "destination wallet id")
	f.StringVar(&c.amount, "amount", "", "amount in the source currency")
	f.StringVar(&c.notes, "notes", "", "extra notes")
	f.StringVar(&c.date, "date", "", "transfer date, defaults to today")
}

func (c *transferCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	amount, err := core.ParseAmount(c.amount)
	if err != nil {
		return usageError("Error parsing amount: %v", err)
	}
	date, err := parseOptionalDate(c.date)
	if err != nil {
		return usageError("Error parsing date: %v", err)
	}

	tr, err := a.engine.Transfers.TransferBetweenWallets(ctx, services.TransferRequest{
		FromWalletID: c.from,
		ToWalletID:   c.to,
		Amount:       amount,
		Notes:        c.notes,
		Date:         date,
	})
	if err != nil {
		return a.fail("transferring", err)
	}
	a.afterWrite(ctx, tr.Debit, tr.Credit)

	wallets, err := walletIndex(ctx, a)
	if err != nil {
		return a.fail("listing wallets", err)
	}
	a.printMarkdown(transactionsMarkdown(services.Page{Items: []core.Transaction{tr.Debit, tr.Credit}}, wallets))
	return subcommands.ExitSuccess
}

func walletIndex(ctx context.Context, a *app) (map[int64]core.Wallet, error) {
	wallets, err := a.engine.Ledger.ListWallets(ctx)
	if err != nil {
		return nil, err
	}
	idx := make(map[int64]core.Wallet, len(wallets))
	for _, w := range wallets {
		idx[w.ID] = w
	}
	return idx, nil
}
