package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"moneybook/internal/cli"
	"moneybook/internal/log"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(ledgerCmd{&walletAddCmd{}}, "wallets")
	commander.Register(ledgerCmd{&walletRmCmd{}}, "wallets")
	commander.Register(ledgerCmd{&walletsCmd{}}, "wallets")
	commander.Register(ledgerCmd{&reorderCmd{}}, "wallets")

	commander.Register(ledgerCmd{&txAddCmd{}}, "transactions")
	commander.Register(ledgerCmd{&txListCmd{}}, "transactions")
	commander.Register(ledgerCmd{&txRmCmd{}}, "transactions")
	commander.Register(ledgerCmd{&transferCmd{}}, "transactions")

	commander.Register(ledgerCmd{&summaryCmd{}}, "reports")
	commander.Register(ledgerCmd{&budgetAddCmd{}}, "reports")
	commander.Register(ledgerCmd{&budgetCheckCmd{}}, "reports")
	commander.Register(ledgerCmd{&goalAddCmd{}}, "reports")
	commander.Register(ledgerCmd{&goalCheckCmd{}}, "reports")

	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLoggerTo(nil, os.Stderr))
	logger := cli.SetupLoggerTo(cfg, os.Stderr).WithComponent(log.ComponentCLI)

	a := &app{cfg: cfg, log: logger, out: os.Stdout}
	status := commander.Execute(context.Background(), a)
	a.close()
	os.Exit(int(status))
}
