// Package report prints run progress and results to the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"sgam/internal/diff"
	"sgam/internal/giveaway"
	"sgam/internal/history"
	"sgam/internal/manager"
	"sgam/internal/steamgifts"

	"github.com/charmbracelet/lipgloss"
)

var (
	successColor = lipgloss.Color("#8BC34A")
	failColor    = lipgloss.Color("#e53935")
	infoColor    = lipgloss.Color("#2196F3")
	mutedColor   = lipgloss.Color("#9e9e9e")
)

// Styles used by the Printer.
type Styles struct {
	Title   lipgloss.Style
	Success lipgloss.Style
	Fail    lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true),
		Success: lipgloss.NewStyle().Foreground(successColor),
		Fail:    lipgloss.NewStyle().Foreground(failColor),
		Info:    lipgloss.NewStyle().Foreground(infoColor),
		Muted:   lipgloss.NewStyle().Foreground(mutedColor),
	}
}

// Printer writes human-readable output. It is safe for concurrent use and
// implements manager.Reporter.
type Printer struct {
	mu         sync.Mutex
	w          io.Writer
	styles     Styles
	inProgress bool
}

var _ manager.Reporter = (*Printer)(nil)

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, styles: DefaultStyles()}
}

// endProgress terminates an in-place progress line. Callers hold mu.
func (p *Printer) endProgress() {
	if p.inProgress {
		fmt.Fprintln(p.w)
		p.inProgress = false
	}
}

func (p *Printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endProgress()
	fmt.Fprintln(p.w, s)
}

// ScrapeProgress rewrites the current line with scrape progress.
func (p *Printer) ScrapeProgress(sp steamgifts.ScrapeProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\rScraped %d pages, found %d giveaways in %dms",
		sp.Pages, sp.Giveaways, sp.Elapsed.Milliseconds())
	p.inProgress = true
}

func (p *Printer) FoundEntered(n int) {
	p.println(p.styles.Info.Render(fmt.Sprintf("Found %d entered giveaways", n)))
}

func (p *Printer) FoundCandidates(n int) {
	p.println(p.styles.Info.Render(fmt.Sprintf("Found %d giveaways to enter", n)))
}

func (p *Printer) Entered(g giveaway.Giveaway, pointsLeft int) {
	p.println(p.styles.Success.Render("Entered giveaway: "+g.Title) +
		p.styles.Muted.Render(fmt.Sprintf(" (-%dP, %dP left)", g.PointCost, pointsLeft)))
}

func (p *Printer) Failed(g giveaway.Giveaway, reason string) {
	line := "Failed to enter giveaway: " + g.Title
	if reason != "" {
		line += " (" + reason + ")"
	}
	p.println(p.styles.Fail.Render(line))
}

// Summary prints the closing block of a run. Dry runs list the candidates
// instead of entry counts.
func (p *Printer) Summary(s *manager.Summary) {
	var sb strings.Builder
	sb.WriteString(p.styles.Title.Render("Summary") + "\n")
	if s.DryRun {
		fmt.Fprintf(&sb, "Dry run: %d giveaways would be entered (%dP)\n",
			len(s.Candidates), giveaway.TotalCost(s.Candidates))
		for _, g := range s.Candidates {
			fmt.Fprintf(&sb, "  %s %s\n", g.Title, p.styles.Muted.Render(fmt.Sprintf("(%dP) %s", g.PointCost, g.RelativeURL)))
		}
	} else {
		fmt.Fprintf(&sb, "Entered %d giveaways, spent %dP\n", s.Entered, s.PointsSpent)
		if s.Failed > 0 {
			sb.WriteString(p.styles.Fail.Render(fmt.Sprintf("Failed to enter %d giveaways", s.Failed)) + "\n")
		}
	}
	fmt.Fprintf(&sb, "Remaining points: %d\n", s.PointsRemaining)
	sb.WriteString(p.styles.Muted.Render(fmt.Sprintf("Scraped %d, matched %d, already entered %d in %s",
		s.Scraped, s.Matched, s.AlreadyEntered, s.Duration.Round(time.Millisecond))))
	p.println(sb.String())
}

// Points prints the point balance.
func (p *Printer) Points(points int) {
	p.println(fmt.Sprintf("Remaining points: %d", points))
}

// Titles prints a list of titles, one per line.
func (p *Printer) Titles(titles []string) {
	p.println(p.styles.Title.Render(fmt.Sprintf("%d entered titles", len(titles))))
	for _, t := range titles {
		p.println("  " + t)
	}
}

// Imported reports how many titles were merged into the requests file.
func (p *Printer) Imported(added int, path string) {
	p.println(p.styles.Success.Render(fmt.Sprintf("Added %d titles to [exact_match] in %s", added, path)))
}

// Diff prints changed lines prefixed with + or -.
func (p *Printer) Diff(lines []diff.Line) {
	if len(lines) == 0 {
		p.println(p.styles.Muted.Render("Requests file was already sorted"))
		return
	}

	var sb strings.Builder
	for _, l := range lines {
		switch l.Type {
		case diff.LineAdded:
			sb.WriteString(p.styles.Success.Render("+ "+l.Content) + "\n")
		case diff.LineRemoved:
			sb.WriteString(p.styles.Fail.Render("- "+l.Content) + "\n")
		}
	}
	added, removed := diff.Stat(lines)
	fmt.Fprintf(&sb, "%d lines added, %d removed", added, removed)
	p.println(sb.String())
}

// History prints logged entries as a table, followed by totals.
func (p *Printer) History(entries []history.Entry, totals history.Totals) {
	if len(entries) == 0 {
		p.println(p.styles.Muted.Render("No entries recorded yet"))
		return
	}

	col := func(width int) lipgloss.Style { return lipgloss.NewStyle().Width(width).MaxWidth(width) }
	row := func(when, status, points, title string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			col(18).Render(when), col(8).Render(status), col(7).Render(points), title)
	}

	var sb strings.Builder
	sb.WriteString(p.styles.Title.Render(row("WHEN", "STATUS", "POINTS", "TITLE")) + "\n")
	for _, e := range entries {
		status := p.styles.Success.Render("ok")
		title := e.Title
		if !e.Success {
			status = p.styles.Fail.Render("failed")
			if e.Message != "" {
				title += p.styles.Muted.Render(" (" + e.Message + ")")
			}
		}
		sb.WriteString(row(e.AttemptedAt.Format("2006-01-02 15:04"), status, fmt.Sprintf("%d", e.Points), title) + "\n")
	}
	fmt.Fprintf(&sb, "%d entries over %d runs, %dP spent", totals.Entered, totals.Runs, totals.PointsSpent)
	p.println(sb.String())
}
