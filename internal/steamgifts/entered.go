package steamgifts

import (
	"context"
	"regexp"
	"slices"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

var copiesSuffix = regexp.MustCompile(` \(\d+ Copies\)`)

// EnteredLinks returns the relative URLs of entered giveaways that are still
// open. The entered list is newest first; walking stops at the first page
// whose last row is closed (it has no remove-entry link).
func (c *Client) EnteredLinks(ctx context.Context) ([]string, error) {
	var links []string

	for pageNumber := 1; ; pageNumber++ {
		p, err := c.get(ctx, enteredSearchPath+strconv.Itoa(pageNumber))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("entered page failed, stopping pagination",
				zap.Int("page", pageNumber), zap.Error(err))
			break
		}

		rows := byClass(p.root, classTableRow)
		if len(rows) == 0 {
			break
		}

		done := false
		for i, row := range rows {
			if firstByClass(row, classTableSecondaryLink) == nil {
				if i == len(rows)-1 {
					done = true
				}
				continue
			}
			if href, ok := hrefByClass(row, classTableHeading); ok {
				links = append(links, href)
			}
		}
		if done {
			break
		}
	}

	c.logger.Info("found entered giveaways", zap.Int("count", len(links)))
	return links, nil
}

// EnteredTitles returns every title on the entered list, without the
// " (N Copies)" suffix, deduplicated and sorted.
func (c *Client) EnteredTitles(ctx context.Context) ([]string, error) {
	p, err := c.get(ctx, enteredPath)
	if err != nil {
		return nil, err
	}

	// A list that fits on one page renders no pagination links.
	pageCount := 1
	numbered := findAll(p.root, func(n *html.Node) bool { return hasAttr(n, attrPageNumber) })
	if len(numbered) > 0 {
		last, err := strconv.Atoi(getAttr(numbered[len(numbered)-1], attrPageNumber))
		if err == nil && last > 1 {
			pageCount = last
		}
	}

	var (
		mu     sync.Mutex
		titles = make(map[string]struct{})
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for pageNumber := 1; pageNumber <= pageCount; pageNumber++ {
		pageNumber := pageNumber
		g.Go(func() error {
			sp, err := c.get(gctx, enteredSearchPath+strconv.Itoa(pageNumber))
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Warn("entered page failed", zap.Int("page", pageNumber), zap.Error(err))
				return nil
			}
			headings := byClass(sp.root, classTableHeading)

			mu.Lock()
			defer mu.Unlock()
			for _, h := range headings {
				t := copiesSuffix.ReplaceAllString(textContent(h), "")
				if t != "" {
					titles[t] = struct{}{}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(titles))
	for t := range titles {
		out = append(out, t)
	}
	slices.Sort(out)
	return out, nil
}
