// Command fel stacks git commits into a chain of pull requests and
// keeps them in sync as the stack changes.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// globalOptions are flags available to every subcommand.
type globalOptions struct {
	C string `short:"C" help:"Run as if started in this directory." default:"."`
}

type mainCmd struct {
	globalOptions

	Verbose bool `short:"v" help:"Log verbose output."`

	Version versionFlag `help:"Print version information and exit."`

	Submit     submitCmd  `cmd:"" help:"Push the current stack and open or update its pull requests."`
	VersionCmd versionCmd `cmd:"version" help:"Print version information."`
}

func (cmd *mainCmd) AfterApply(kctx *kong.Context, logger *log.Logger) error {
	if cmd.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return nil
}

func main() {
	logger := log.New(os.Stderr)
	logger.SetReportTimestamp(false)
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		logger.SetColorProfile(termenv.Ascii)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		select {
		case <-sigc:
			logger.Info("Cleaning up. Press Ctrl-C again to exit immediately.")
			cancel()
			signal.Stop(sigc)
		case <-ctx.Done():
		}
	}()

	var cmd mainCmd
	kctx := kong.Parse(&cmd,
		kong.Name("fel"),
		kong.Description("Stack git commits into a chain of pull requests."),
		kong.Bind(logger, &cmd.globalOptions),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.UsageOnError(),
	)

	kctx.FatalIfErrorf(kctx.Run())
}
