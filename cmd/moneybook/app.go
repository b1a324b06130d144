package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"moneybook/internal/amqp"
	"moneybook/internal/cli"
	"moneybook/internal/config"
	"moneybook/internal/core"
	"moneybook/internal/log"
	"moneybook/internal/services"
	"moneybook/internal/storage"
)

var errTooManyArgs = errors.New("expected at most one id")

// app is what every subcommand receives as its first Execute argument.
// Storage and the broker are opened by the first command that needs them.
type app struct {
	cfg *config.Config
	log *log.Logger
	out io.Writer

	engine *services.Engine
	client *amqp.Client
}

func appFrom(args []interface{}) *app {
	return args[0].(*app)
}

// open connects the ledger database and, when configured, the broker.
func (a *app) open() error {
	if a.engine != nil {
		return nil
	}
	repo, err := storage.NewSQLiteRepository(a.cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", a.cfg.SQLiteDBPath, err)
	}
	a.client = cli.InitAMQP(a.log, a.cfg)
	a.engine = services.NewEngine(repo, cli.EngineOptions(a.cfg, a.log, a.client)...)
	return nil
}

// close releases whatever open acquired.
func (a *app) close() {
	if a.client != nil {
		a.client.Close()
		a.client = nil
	}
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.log.LogError(context.Background(), "Failed to close ledger", err, log.NewFields())
		}
		a.engine = nil
	}
}

// ledgerCmd opens the engine before running a command that reads or writes
// the ledger. Help and flag listings never touch storage.
type ledgerCmd struct {
	subcommands.Command
}

func (c ledgerCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if err := a.open(); err != nil {
		return a.fail("opening ledger", err)
	}
	return c.Command.Execute(ctx, f, args...)
}

func (a *app) fail(what string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", what, err)
	return subcommands.ExitFailure
}

func usageError(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitUsageError
}

// printMarkdown renders md for the terminal, falling back to the raw text.
func (a *app) printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Fprint(a.out, md)
		return
	}
	fmt.Fprint(a.out, out)
}

// afterWrite refreshes the budgets and goals touched by txs. The write itself
// already succeeded, so a failure here is only reported.
func (a *app) afterWrite(ctx context.Context, txs ...core.Transaction) {
	if err := a.engine.Recompute.AfterWrite(ctx, txs...); err != nil {
		a.log.LogError(ctx, "Recompute after write failed", err, log.NewFields().WithOperation(log.OpRecompute))
	}
}

// recomputeAll refreshes every budget and goal.
func (a *app) recomputeAll(ctx context.Context) {
	cmds, err := a.engine.Recompute.All(ctx)
	if err == nil {
		err = a.engine.Recompute.Dispatch(ctx, cmds...)
	}
	if err != nil {
		a.log.LogError(ctx, "Recompute failed", err, log.NewFields().WithOperation(log.OpRecompute))
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseIDs reads a comma separated id list; an empty string is an empty list.
func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := parseID(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseLabels(s string) []string {
	var labels []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			labels = append(labels, part)
		}
	}
	return labels
}

// parseOptionalDate returns the zero date for an empty string.
func parseOptionalDate(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}
