package manager

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"sgam/internal/config"
	"sgam/internal/giveaway"
	"sgam/internal/history"
	"sgam/internal/requests"
	"sgam/internal/steamgifts"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Reporter receives progress and results as a run unfolds. Entered and
// Failed may be called concurrently.
type Reporter interface {
	ScrapeProgress(p steamgifts.ScrapeProgress)
	FoundEntered(n int)
	FoundCandidates(n int)
	Entered(g giveaway.Giveaway, pointsLeft int)
	Failed(g giveaway.Giveaway, reason string)
	Summary(s *Summary)
}

// Summary describes one finished run.
type Summary struct {
	RunID           string
	DryRun          bool
	Scraped         int
	Matched         int
	AlreadyEntered  int
	Candidates      []giveaway.Giveaway
	Entered         int
	Failed          int
	PointsSpent     int
	PointsRemaining int
	Duration        time.Duration
}

// RunOptions tweak a single run.
type RunOptions struct {
	DryRun bool // select candidates but do not enter them
}

// Options configures a Manager.
type Options struct {
	Config     *config.Config
	Logger     *zap.Logger
	Reporter   Reporter       // nil discards progress
	History    *history.Store // nil disables the entry log
	HTTPClient *http.Client   // nil builds one from Config
}

// Manager runs the entry pipeline for the user named in the requests file.
type Manager struct {
	cfg        *config.Config
	logger     *zap.Logger
	reporter   Reporter
	history    *history.Store
	httpClient *http.Client

	watchDebounce time.Duration

	writtenMu sync.Mutex
	written   []byte // requests file content as last rewritten by Connect
}

// New creates a Manager.
func New(opts Options) (*Manager, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m := &Manager{
		cfg:           opts.Config,
		logger:        opts.Logger,
		reporter:      opts.Reporter,
		history:       opts.History,
		httpClient:    opts.HTTPClient,
		watchDebounce: 500 * time.Millisecond,
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.logger = m.logger.Named("manager")
	if m.reporter == nil {
		m.reporter = nopReporter{}
	}
	return m, nil
}

// Connect normalizes the requests file, builds a client from its
// credentials, and checks that the session is live.
func (m *Manager) Connect(ctx context.Context) (*steamgifts.Client, *requests.File, error) {
	rf, err := requests.Normalize(m.cfg.Requests.Path, m.logger)
	if err != nil {
		return nil, nil, err
	}
	m.setWritten(rf.Format())

	client, err := steamgifts.New(steamgifts.Options{
		BaseURL:        m.cfg.Site.BaseURL,
		UserAgent:      m.cfg.Site.UserAgent,
		Timeout:        m.cfg.GetRequestTimeout(),
		PageBatch:      m.cfg.Scrape.PageBatch,
		MaxConcurrency: m.cfg.Scrape.MaxConcurrency,
		HTTPClient:     m.httpClient,
		Logger:         m.logger,
		OnProgress:     m.reporter.ScrapeProgress,
	}, steamgifts.Credentials{
		CookieName:  rf.CookieName,
		CookieValue: rf.CookieValue,
		XSRFToken:   rf.XSRFToken,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := client.CheckSession(ctx); err != nil {
		return nil, nil, err
	}
	return client, rf, nil
}

// Run executes the pipeline once.
func (m *Manager) Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	start := time.Now()
	sum := &Summary{RunID: uuid.NewString(), DryRun: opts.DryRun}
	logger := m.logger.With(zap.String("run_id", sum.RunID))

	client, rf, err := m.Connect(ctx)
	if err != nil {
		return nil, err
	}

	available, err := client.AvailableGiveaways(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape giveaways: %w", err)
	}
	sum.Scraped = len(available)

	matched := giveaway.NewMatcher(rf).Select(available)
	sum.Matched = len(matched)

	links, err := client.EnteredLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entered giveaways: %w", err)
	}
	m.reporter.FoundEntered(len(links))

	sum.Candidates = giveaway.Exclude(matched, links)
	sum.AlreadyEntered = sum.Matched - len(sum.Candidates)
	m.reporter.FoundCandidates(len(sum.Candidates))
	logger.Info("selected candidates",
		zap.Int("scraped", sum.Scraped),
		zap.Int("matched", sum.Matched),
		zap.Int("candidates", len(sum.Candidates)))

	if !opts.DryRun {
		if err := m.enterAll(ctx, client, sum, logger); err != nil {
			return nil, err
		}
	}

	points, err := client.RemainingPoints(ctx)
	if err != nil {
		logger.Warn("failed to read remaining points", zap.Error(err))
	}
	sum.PointsRemaining = points
	sum.Duration = time.Since(start)

	m.reporter.Summary(sum)
	logger.Info("run finished",
		zap.Int("entered", sum.Entered),
		zap.Int("failed", sum.Failed),
		zap.Int("points_spent", sum.PointsSpent),
		zap.Duration("elapsed", sum.Duration))
	return sum, nil
}

// enterAll enters every candidate concurrently. Individual failures are
// counted; only cancellation aborts.
func (m *Manager) enterAll(ctx context.Context, client *steamgifts.Client, sum *Summary, logger *zap.Logger) error {
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Scrape.MaxConcurrency)
	for _, ga := range sum.Candidates {
		ga := ga
		g.Go(func() error {
			res, err := client.Enter(gctx, ga)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				res.Message = err.Error()
			}

			m.record(ctx, sum.RunID, ga, res, logger)

			mu.Lock()
			defer mu.Unlock()
			if res.Success {
				sum.Entered++
				sum.PointsSpent += ga.PointCost
				m.reporter.Entered(ga, res.Points)
			} else {
				sum.Failed++
				m.reporter.Failed(ga, res.Message)
			}
			return nil
		})
	}
	return g.Wait()
}

func (m *Manager) record(ctx context.Context, runID string, g giveaway.Giveaway, res steamgifts.EntryResult, logger *zap.Logger) {
	if m.history == nil {
		return
	}
	_, err := m.history.Record(ctx, history.Entry{
		RunID:       runID,
		Code:        g.Code(),
		Title:       g.Title,
		RelativeURL: g.RelativeURL,
		Points:      g.PointCost,
		Success:     res.Success,
		Message:     res.Message,
	})
	if err != nil {
		logger.Warn("failed to record entry", zap.String("code", g.Code()), zap.Error(err))
	}
}

func (m *Manager) setWritten(data []byte) {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	m.written = data
}

// lastWritten returns what the most recent Connect wrote to the requests file.
func (m *Manager) lastWritten() []byte {
	m.writtenMu.Lock()
	defer m.writtenMu.Unlock()
	return m.written
}

type nopReporter struct{}

func (nopReporter) ScrapeProgress(steamgifts.ScrapeProgress) {}
func (nopReporter) FoundEntered(int)                          {}
func (nopReporter) FoundCandidates(int)                       {}
func (nopReporter) Entered(giveaway.Giveaway, int)            {}
func (nopReporter) Failed(giveaway.Giveaway, string)          {}
func (nopReporter) Summary(*Summary)                          {}
