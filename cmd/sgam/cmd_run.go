package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sgam/internal/history"
	"sgam/internal/manager"
	"sgam/internal/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dryRun        bool
	watch         bool
	watchInterval time.Duration // zero means the config value
)

// runCmd enters matching giveaways
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape open giveaways and enter the requested ones",
	Long: `Runs one pass:
  1. Sort requests.txt in place
  2. Verify the session cookie
  3. Scrape every open giveaway
  4. Keep the titles requested in requests.txt
  5. Skip giveaways already entered
  6. Enter the rest and print a summary

With --watch the pass repeats on an interval and whenever requests.txt is saved.`,
	Args: cobra.NoArgs,
	RunE: runEntries,
}

func runEntries(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeFn, err := openHistory()
	if err != nil {
		return err
	}
	defer closeFn()

	mgr, err := newManager(cmd.OutOrStdout(), store)
	if err != nil {
		return err
	}

	opts := manager.RunOptions{DryRun: dryRun}
	if watch {
		interval := cfg.GetWatchInterval()
		if watchInterval > 0 {
			interval = watchInterval
		}
		logger.Info("Watching requests file", zap.String("path", cfg.Requests.Path), zap.Duration("interval", interval))
		return mgr.Watch(ctx, interval, opts)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()
	_, err = mgr.Run(ctx, opts)
	return err
}

// openHistory opens the entry log when it is enabled. The close func is
// never nil.
func openHistory() (*history.Store, func(), error) {
	if !cfg.History.Enabled {
		return nil, func() {}, nil
	}
	store, err := history.Open(cfg.History.Driver, cfg.History.Path)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close history", zap.Error(err))
		}
	}, nil
}

// newManager wires config, the entry log, and the terminal printer into a
// Manager. store may be nil for commands that enter nothing.
func newManager(out io.Writer, store *history.Store) (*manager.Manager, error) {
	return manager.New(manager.Options{
		Config:   cfg,
		Logger:   logger,
		Reporter: report.NewPrinter(out),
		History:  store,
	})
}
