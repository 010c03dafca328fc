package steamgifts

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"sgam/internal/giveaway"
	"sgam/internal/steamgifts/sgtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/net/html"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testCreds() Credentials {
	return Credentials{
		CookieName:  sgtest.CookieName,
		CookieValue: sgtest.CookieValue,
		XSRFToken:   sgtest.XSRFToken,
	}
}

func newTestClient(t *testing.T, srv *sgtest.Server, opts Options) *Client {
	t.Helper()
	opts.BaseURL = srv.URL
	opts.HTTPClient = srv.Client()
	c, err := New(opts, testCreds())
	require.NoError(t, err)
	return c
}

func makeGiveaways(n int) []giveaway.Giveaway {
	out := make([]giveaway.Giveaway, n)
	for i := range out {
		out[i] = giveaway.Giveaway{
			Title:       fmt.Sprintf("Game %03d", i),
			RelativeURL: fmt.Sprintf("/giveaway/g%04d/game-%03d", i, i),
			PointCost:   i%50 + 1,
		}
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{BaseURL: "::nope"}, testCreds())
	assert.Error(t, err)

	_, err = New(Options{BaseURL: "https://www.steamgifts.com"}, Credentials{})
	assert.Error(t, err)

	c, err := New(Options{BaseURL: "https://www.steamgifts.com/"}, testCreds())
	require.NoError(t, err)
	assert.Equal(t, "https://www.steamgifts.com", c.BaseURL())
	assert.Equal(t, defaultPageBatch, c.pageBatch)
	assert.Equal(t, defaultConcurrency, c.concurrency)
}

func TestCheckSession(t *testing.T) {
	srv := sgtest.NewServer(t, &sgtest.Site{Points: 10})
	ctx := context.Background()

	c := newTestClient(t, srv, Options{})
	assert.NoError(t, c.CheckSession(ctx))

	creds := testCreds()
	creds.CookieValue = strings.Repeat("x", 48)
	stranger, err := New(Options{BaseURL: srv.URL, HTTPClient: srv.Client()}, creds)
	require.NoError(t, err)
	assert.ErrorIs(t, stranger.CheckSession(ctx), ErrNoSession)
}

func TestRemainingPoints(t *testing.T) {
	srv := sgtest.NewServer(t, &sgtest.Site{Points: 317})
	c := newTestClient(t, srv, Options{})

	points, err := c.RemainingPoints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 317, points)
}

func TestAvailableGiveaways(t *testing.T) {
	open := makeGiveaways(120)
	srv := sgtest.NewServer(t, &sgtest.Site{Open: open, PerPage: 50})

	var progress []ScrapeProgress
	c := newTestClient(t, srv, Options{
		PageBatch:      2,
		MaxConcurrency: 2,
		OnProgress:     func(p ScrapeProgress) { progress = append(progress, p) },
	})

	got, err := c.AvailableGiveaways(context.Background())
	require.NoError(t, err)
	assert.Equal(t, open, got)

	require.Len(t, progress, 2)
	assert.Equal(t, 2, progress[0].Pages)
	assert.Equal(t, 100, progress[0].Giveaways)
	assert.Equal(t, 3, progress[1].Pages)
	assert.Equal(t, 120, progress[1].Giveaways)
}

func TestAvailableGiveaways_Deduplicates(t *testing.T) {
	open := makeGiveaways(3)
	open = append(open, open[0])
	srv := sgtest.NewServer(t, &sgtest.Site{Open: open, PerPage: 2})
	c := newTestClient(t, srv, Options{PageBatch: 1})

	got, err := c.AvailableGiveaways(context.Background())
	require.NoError(t, err)
	assert.Equal(t, open[:3], got)
}

func TestAvailableGiveaways_StopsOnFailedPage(t *testing.T) {
	srv := sgtest.NewServer(t, &sgtest.Site{Open: makeGiveaways(10), PerPage: 2, FailSearchPage: 2})
	c := newTestClient(t, srv, Options{PageBatch: 1})

	got, err := c.AvailableGiveaways(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAvailableGiveaways_CanceledContext(t *testing.T) {
	srv := sgtest.NewServer(t, &sgtest.Site{Open: makeGiveaways(10)})
	c := newTestClient(t, srv, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.AvailableGiveaways(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseGiveaway(t *testing.T) {
	doc := `<div class="giveaway__row-inner-wrap">
<a class="giveaway__heading__name">  Half-Life   2 </a>
<a class="giveaway_image_thumbnail_missing" href="/giveaway/hl2xx/half-life-2"></a>
<span class="giveaway__heading__thin">(1,250P)</span>
</div>
<div class="giveaway__row-inner-wrap"><a class="giveaway_image_thumbnail" href="/giveaway/nonam/x"></a></div>
<div class="giveaway__row-inner-wrap">
<a class="giveaway__heading__name">Free Thing</a>
<a class="giveaway_image_thumbnail" href="/giveaway/free1/free-thing"></a>
</div>`
	root, err := html.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	got := parseGiveaways(root)
	assert.Equal(t, []giveaway.Giveaway{
		{Title: "Half-Life 2", RelativeURL: "/giveaway/hl2xx/half-life-2", PointCost: 1250},
		{Title: "Free Thing", RelativeURL: "/giveaway/free1/free-thing", PointCost: 0},
	}, got)
}

func TestEnteredLinks(t *testing.T) {
	entered := makeGiveaways(30)
	srv := sgtest.NewServer(t, &sgtest.Site{
		EnteredOpen:   entered,
		EnteredClosed: []string{"Old 1", "Old 2", "Old 3"},
	})
	c := newTestClient(t, srv, Options{})

	links, err := c.EnteredLinks(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 30)
	for i, g := range entered {
		assert.Equal(t, g.RelativeURL, links[i])
	}
}

func TestEnteredLinks_Empty(t *testing.T) {
	srv := sgtest.NewServer(t, &sgtest.Site{})
	c := newTestClient(t, srv, Options{})

	links, err := c.EnteredLinks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestEnter(t *testing.T) {
	open := makeGiveaways(3)
	site := &sgtest.Site{
		Points: 2,
		Open:   open,
		Refuse: map[string]string{open[2].Code(): "Previously Won"},
	}
	srv := sgtest.NewServer(t, site)
	c := newTestClient(t, srv, Options{})
	ctx := context.Background()

	res, err := c.Enter(ctx, open[0])
	require.NoError(t, err)
	assert.Equal(t, EntryResult{Success: true, Points: 1}, res)

	res, err = c.Enter(ctx, open[1])
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Not Enough Points", res.Message)

	res, err = c.Enter(ctx, open[2])
	require.NoError(t, err)
	assert.Equal(t, "Previously Won", res.Message)

	_, err = c.Enter(ctx, giveaway.Giveaway{RelativeURL: "/discussions"})
	assert.Error(t, err)

	site.Mu.Lock()
	defer site.Mu.Unlock()
	assert.Equal(t, []string{open[0].Code(), open[1].Code(), open[2].Code()}, site.Posted)
}

func TestParseEntryResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want EntryResult
	}{
		{"string counts", `{"type":"success","entry_count":"1,024","points":"42"}`, EntryResult{Success: true, Points: 42}},
		{"number counts", `{"type":"success","entry_count":7,"points":5}`, EntryResult{Success: true, Points: 5}},
		{"missing points", `{"type":"success","entry_count":"7"}`, EntryResult{Message: "entry refused"}},
		{"error", `{"type":"error","msg":"Exists"}`, EntryResult{Message: "Exists"}},
		{"html", `<html>busy</html>`, EntryResult{Message: "unexpected response: <html>busy</html>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseEntryResponse([]byte(tt.body)))
		})
	}
}

func TestEnteredTitles(t *testing.T) {
	srv := sgtest.NewServer(t, &sgtest.Site{
		EnteredOpen:    []giveaway.Giveaway{{Title: "Celeste", RelativeURL: "/giveaway/celes/celeste"}},
		EnteredClosed:  []string{"Portal 2 (3 Copies)", "Portal 2", "Braid", "Hades (10 Copies)"},
		EnteredPerPage: 2,
	})
	c := newTestClient(t, srv, Options{MaxConcurrency: 2})

	titles, err := c.EnteredTitles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Braid", "Celeste", "Hades", "Portal 2"}, titles)
}

func TestEnteredTitles_SinglePage(t *testing.T) {
	srv := sgtest.NewServer(t, &sgtest.Site{EnteredClosed: []string{"Braid"}})
	c := newTestClient(t, srv, Options{})

	titles, err := c.EnteredTitles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Braid"}, titles)
}
