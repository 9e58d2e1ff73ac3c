// Command ordersync reconciles storefront orders into the ERP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitOK      = 0
	exitError   = 1
	exitPartial = 2
)

// errPartialFailure marks a run in which at least one order failed.
var errPartialFailure = errors.New("one or more orders failed")

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "ordersync",
		Short:         "Synchronize storefront orders into the ERP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default: ./config.toml, /etc/ordersync/config.toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newReconcileCommand(opts),
		newStatusCommand(opts),
		newCustomersCommand(opts),
		newHistoryCommand(opts),
		newMigrateCommand(opts),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:]))
}

func run(ctx context.Context, args []string) int {
	root := newRootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errPartialFailure) {
			return exitPartial
		}
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return exitError
	}
	return exitOK
}
