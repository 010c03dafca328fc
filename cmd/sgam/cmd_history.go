package main

import (
	"fmt"

	"sgam/internal/history"
	"sgam/internal/report"

	"github.com/spf13/cobra"
)

var historyLimit int

// historyCmd prints the entry log
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent entry attempts",
	Args:  cobra.NoArgs,
	RunE:  showHistory,
}

func showHistory(cmd *cobra.Command, args []string) error {
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled in %s", configPath)
	}

	store, err := history.Open(cfg.History.Driver, cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	totals, err := store.Totals(cmd.Context())
	if err != nil {
		return err
	}

	report.NewPrinter(cmd.OutOrStdout()).History(entries, totals)
	return nil
}
