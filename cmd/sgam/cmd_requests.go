package main

import (
	"fmt"
	"os"

	"sgam/internal/diff"
	"sgam/internal/report"
	"sgam/internal/requests"

	"github.com/spf13/cobra"
)

var (
	importTitles bool
	showDiff     bool
)

// sortCmd rewrites requests.txt in canonical form
var sortCmd = &cobra.Command{
	Use:   "sort",
	Short: "Sort and lower-case the title lists in requests.txt",
	Args:  cobra.NoArgs,
	RunE:  sortRequests,
}

// enteredCmd lists every title the user has entered
var enteredCmd = &cobra.Command{
	Use:   "entered",
	Short: "List the titles of all giveaways you have entered",
	Long: `Lists the titles of every giveaway on your entered list.

With --import the titles are merged into the [exact_match] section of
requests.txt, which is a quick way to seed it from your history.`,
	Args: cobra.NoArgs,
	RunE: listEntered,
}

// pointsCmd prints the current balance
var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "Show your remaining points",
	Args:  cobra.NoArgs,
	RunE:  showPoints,
}

func sortRequests(cmd *cobra.Command, args []string) error {
	// A read failure surfaces through Normalize below.
	before, _ := os.ReadFile(cfg.Requests.Path)

	rf, err := requests.Normalize(cfg.Requests.Path, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sorted %s: %d exact, %d any, %d excluded\n",
		cfg.Requests.Path, len(rf.ExactMatches), len(rf.AnyMatches), len(rf.NoMatches))

	if showDiff {
		after, err := os.ReadFile(cfg.Requests.Path)
		if err != nil {
			return fmt.Errorf("failed to re-read requests file: %w", err)
		}
		report.NewPrinter(cmd.OutOrStdout()).Diff(diff.Changes(string(before), string(after)))
	}
	return nil
}

func listEntered(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()

	mgr, err := newManager(cmd.OutOrStdout(), nil)
	if err != nil {
		return err
	}

	client, rf, err := mgr.Connect(ctx)
	if err != nil {
		return err
	}
	titles, err := client.EnteredTitles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list entered titles: %w", err)
	}

	printer := report.NewPrinter(cmd.OutOrStdout())
	printer.Titles(titles)
	if !importTitles {
		return nil
	}

	before := len(rf.ExactMatches)
	rf.AddExactMatches(titles...)
	if err := rf.Save(cfg.Requests.Path); err != nil {
		return err
	}
	printer.Imported(len(rf.ExactMatches)-before, cfg.Requests.Path)
	return nil
}

func showPoints(cmd *cobra.Command, args []string) error {
	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()

	mgr, err := newManager(cmd.OutOrStdout(), nil)
	if err != nil {
		return err
	}

	client, _, err := mgr.Connect(ctx)
	if err != nil {
		return err
	}
	points, err := client.RemainingPoints(ctx)
	if err != nil {
		return err
	}
	report.NewPrinter(cmd.OutOrStdout()).Points(points)
	return nil
}
