package main

import (
	"context"
	"flag"
	"strconv"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"moneybook/internal/core"
	"moneybook/internal/services"
)

type walletAddCmd struct {
	name     string
	currency string
	balance  string
	kind     string
	rate     string
}

func (*walletAddCmd) Name() string     { return "wallet-add" }
func (*walletAddCmd) Synopsis() string { return "create a wallet" }
func (*walletAddCmd) Usage() string {
	return `moneybook wallet-add -name <name> -currency <code> [-balance <amount>] [-type <type>] [-rate <rate>]

  Creates a wallet. The rate converts one unit of the wallet currency to the
  default currency. Types: cash, bank, mobile_money, credit, other.
`
}

func (c *walletAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "wallet name")
	f.StringVar(&c.currency, "currency", "", "ISO 4217 currency code")
	f.StringVar(&c.balance, "balance", "0", "initial balance, may be negative")
	f.StringVar(&c.kind, "type", string(core.Other), "wallet type")
	f.StringVar(&c.rate, "rate", "1", "exchange rate to the default currency")
}

func (c *walletAddCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	balance, err := core.ParseSignedAmount(c.balance)
	if err != nil {
		return usageError("Error parsing balance: %v", err)
	}
	rate, err := core.ParseAmount(c.rate)
	if err != nil {
		return usageError("Error parsing rate: %v", err)
	}

	w, err := a.engine.Ledger.CreateWallet(ctx, services.WalletSpec{
		Name:           c.name,
		Currency:       c.currency,
		InitialBalance: balance,
		Type:           core.WalletType(c.kind),
		ExchangeRate:   rate,
	})
	if err != nil {
		return a.fail("creating wallet", err)
	}
	a.printMarkdown(walletsMarkdown([]core.Wallet{w}, map[int64]decimal.Decimal{w.ID: w.InitialBalance}))
	return subcommands.ExitSuccess
}

type walletRmCmd struct{}

func (*walletRmCmd) Name() string             { return "wallet-rm" }
func (*walletRmCmd) Synopsis() string         { return "delete a wallet and its transactions" }
func (*walletRmCmd) Usage() string            { return "moneybook wallet-rm <wallet-id>\n" }
func (*walletRmCmd) SetFlags(_ *flag.FlagSet) {}

func (c *walletRmCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if f.NArg() != 1 {
		return usageError("wallet-rm takes exactly one wallet id")
	}
	id, err := parseID(f.Arg(0))
	if err != nil {
		return usageError("%v", err)
	}
	if err := a.engine.Ledger.DeleteWallet(ctx, id); err != nil {
		return a.fail("deleting wallet", err)
	}
	// Removed rows can shrink any budget or goal.
	a.recomputeAll(ctx)
	a.printMarkdown("Wallet deleted.\n")
	return subcommands.ExitSuccess
}

type walletsCmd struct{}

func (*walletsCmd) Name() string             { return "wallets" }
func (*walletsCmd) Synopsis() string         { return "list wallets with their balances" }
func (*walletsCmd) Usage() string            { return "moneybook wallets\n" }
func (*walletsCmd) SetFlags(_ *flag.FlagSet) {}

func (c *walletsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	wallets, err := a.engine.Ledger.ListWallets(ctx)
	if err != nil {
		return a.fail("listing wallets", err)
	}
	balances := make(map[int64]decimal.Decimal, len(wallets))
	for _, w := range wallets {
		b, err := a.engine.Ledger.GetWalletBalance(ctx, w.ID)
		if err != nil {
			return a.fail("computing balance", err)
		}
		balances[w.ID] = b
	}
	a.printMarkdown(walletsMarkdown(wallets, balances))
	return subcommands.ExitSuccess
}

type reorderCmd struct {
	ids string
}

func (*reorderCmd) Name() string     { return "reorder" }
func (*reorderCmd) Synopsis() string { return "change the display order of wallets" }
func (*reorderCmd) Usage() string {
	return `moneybook reorder <from> <to>
moneybook reorder -ids <id,id,...>

  The first form moves the wallet at position <from> to position <to>
  (zero-based). The second form sets the whole order at once.
`
}

func (c *reorderCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ids, "ids", "", "every wallet id, in the new display order")
}

func (c *reorderCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)

	if c.ids != "" {
		ids, err := parseIDs(c.ids)
		if err != nil {
			return usageError("%v", err)
		}
		orders := make([]core.WalletOrder, len(ids))
		for i, id := range ids {
			orders[i] = core.WalletOrder{ID: id, DisplayOrder: i}
		}
		if err := a.engine.Ordering.UpdateWalletsOrder(ctx, orders); err != nil {
			return a.fail("reordering wallets", err)
		}
	} else {
		if f.NArg() != 2 {
			return usageError("reorder takes <from> <to> or -ids")
		}
		from, err1 := strconv.Atoi(f.Arg(0))
		to, err2 := strconv.Atoi(f.Arg(1))
		if err1 != nil || err2 != nil {
			return usageError("positions must be integers")
		}
		session, err := a.engine.Ordering.NewReorderSession(ctx)
		if err != nil {
			return a.fail("loading wallets", err)
		}
		if err := session.Move(from, to); err != nil {
			return a.fail("moving wallet", err)
		}
		if err := session.Commit(ctx); err != nil {
			return a.fail("saving order", err)
		}
	}

	return (&walletsCmd{}).Execute(ctx, f, args...)
}
