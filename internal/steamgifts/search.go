package steamgifts

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"sgam/internal/giveaway"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

type searchResult struct {
	giveaways []giveaway.Giveaway
	last      bool
}

// AvailableGiveaways scrapes the search listing. Pages are fetched a batch
// at a time; the batch that reaches an empty page (or a page that fails to
// load) is the last one. Giveaways are deduplicated by relative URL and
// returned in listing order.
func (c *Client) AvailableGiveaways(ctx context.Context) ([]giveaway.Giveaway, error) {
	start := time.Now()
	seen := make(map[string]int)
	var out []giveaway.Giveaway
	var scraped atomic.Int64

	for first, more := 1, true; more; first += c.pageBatch {
		results := make([]searchResult, c.pageBatch)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)
		for i := range results {
			i := i
			pageNumber := first + i
			g.Go(func() error {
				p, err := c.get(gctx, searchPath+strconv.Itoa(pageNumber))
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					c.logger.Warn("search page failed, stopping pagination",
						zap.Int("page", pageNumber), zap.Error(err))
					results[i].last = true
					return nil
				}
				if p.contains(noResultsMarker) {
					results[i].last = true
					return nil
				}
				results[i].giveaways = parseGiveaways(p.root)
				scraped.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for _, r := range results {
			if r.last {
				more = false
			}
			for _, ga := range r.giveaways {
				if idx, ok := seen[ga.RelativeURL]; ok {
					out[idx] = ga
					continue
				}
				seen[ga.RelativeURL] = len(out)
				out = append(out, ga)
			}
		}

		if c.onProgress != nil {
			c.onProgress(ScrapeProgress{
				Pages:     int(scraped.Load()),
				Giveaways: len(out),
				Elapsed:   time.Since(start),
			})
		}
	}

	c.logger.Info("scraped available giveaways",
		zap.Int64("pages", scraped.Load()),
		zap.Int("giveaways", len(out)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

func parseGiveaways(root *html.Node) []giveaway.Giveaway {
	var out []giveaway.Giveaway
	for _, row := range byClass(root, classGiveawayRow) {
		if ga, ok := parseGiveaway(row); ok {
			out = append(out, ga)
		}
	}
	return out
}

// parseGiveaway reads one listing row. Rows without a title are skipped.
func parseGiveaway(row *html.Node) (giveaway.Giveaway, bool) {
	name := firstByClass(row, classGiveawayName)
	if name == nil {
		return giveaway.Giveaway{}, false
	}

	href, ok := hrefByClass(row, classGiveawayThumb)
	if !ok {
		href, _ = hrefByClass(row, classGiveawayThumbMiss)
	}

	cost := 0
	if thin := lastByClass(row, classGiveawayHeadingThin); thin != nil {
		cost, _ = strconv.Atoi(digits(textContent(thin)))
	}

	return giveaway.Giveaway{
		Title:       textContent(name),
		RelativeURL: href,
		PointCost:   cost,
	}, true
}
