package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/texbuilder/cmd/texbuilder/commands"
	tberrors "git.home.luguber.info/inful/texbuilder/internal/errors"
	"git.home.luguber.info/inful/texbuilder/internal/toolexec"
	"git.home.luguber.info/inful/texbuilder/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("texbuilder"),
		kong.Description("Compile, watch and release LaTeX documents."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	global := &commands.Global{
		Logger: slog.Default(),
		Ctx:    ctx,
		Out:    os.Stdout,
		Runner: toolexec.NewExecRunner(),
	}
	err := parser.Run(global, cli)
	stop()

	adapter := tberrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
	os.Exit(adapter.HandleError(err))
}
