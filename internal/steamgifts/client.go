package steamgifts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const (
	searchPath         = "/giveaways/search?page="
	ajaxPath           = "/ajax.php"
	enteredPath        = "/giveaways/entered"
	enteredSearchPath  = enteredPath + "/search?page="
	maxBodyBytes       = 5 << 20
	defaultPageBatch   = 10
	defaultConcurrency = 10
)

// CSS classes the site renders.
const (
	classGiveawayRow         = "giveaway__row-inner-wrap"
	classGiveawayName        = "giveaway__heading__name"
	classGiveawayThumb       = "giveaway_image_thumbnail"
	classGiveawayThumbMiss   = "giveaway_image_thumbnail_missing"
	classGiveawayHeadingThin = "giveaway__heading__thin"
	classNavPoints           = "nav__points"
	classTableRow            = "table__row-inner-wrap"
	classTableSecondaryLink  = "table__column__secondary-link"
	classTableHeading        = "table__column__heading"
	attrPageNumber           = "data-page-number"
)

var (
	signInMarker    = []byte("Sign in through STEAM")
	noResultsMarker = []byte("No results were found.")
)

// ErrNoSession is returned when the cookie is not tied to a signed-in user.
var ErrNoSession = errors.New("no session associated with the provided cookie found")

// Credentials identify the signed-in user.
type Credentials struct {
	CookieName  string
	CookieValue string
	XSRFToken   string
}

// ScrapeProgress is reported after each batch of search pages.
type ScrapeProgress struct {
	Pages     int
	Giveaways int
	Elapsed   time.Duration
}

// Options configures a Client. Zero values take defaults.
type Options struct {
	BaseURL        string
	UserAgent      string
	Timeout        time.Duration
	PageBatch      int
	MaxConcurrency int
	HTTPClient     *http.Client
	Logger         *zap.Logger
	OnProgress     func(ScrapeProgress)
}

// Client talks to the giveaway site on behalf of one user.
type Client struct {
	baseURL     string
	userAgent   string
	creds       Credentials
	httpClient  *http.Client
	pageBatch   int
	concurrency int
	logger      *zap.Logger
	onProgress  func(ScrapeProgress)
}

// New creates a Client. It does not touch the network; call CheckSession
// to verify the credentials.
func New(opts Options, creds Credentials) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL: %q", opts.BaseURL)
	}
	if creds.CookieName == "" || creds.CookieValue == "" {
		return nil, fmt.Errorf("session cookie required")
	}

	c := &Client{
		baseURL:     base,
		userAgent:   opts.UserAgent,
		creds:       creds,
		httpClient:  opts.HTTPClient,
		pageBatch:   opts.PageBatch,
		concurrency: opts.MaxConcurrency,
		logger:      opts.Logger,
		onProgress:  opts.OnProgress,
	}
	if c.httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		c.httpClient = &http.Client{Timeout: timeout}
	}
	if c.pageBatch < 1 {
		c.pageBatch = defaultPageBatch
	}
	if c.concurrency < 1 {
		c.concurrency = defaultConcurrency
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.Named("steamgifts")
	return c, nil
}

// BaseURL returns the site root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// page is a fetched and parsed HTML document.
type page struct {
	raw  []byte
	root *html.Node
}

func (p *page) contains(marker []byte) bool {
	return bytes.Contains(p.raw, marker)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.AddCookie(&http.Cookie{Name: c.creds.CookieName, Value: c.creds.CookieValue})
	return req, nil
}

// do sends req and returns the body of a 200 response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, req.URL.String())
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// get fetches path below the base URL and parses it.
func (c *Client) get(ctx context.Context, path string) (*page, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	c.logger.Debug("fetched page", zap.String("path", path), zap.Int("bytes", len(body)))
	return &page{raw: body, root: root}, nil
}

// CheckSession returns ErrNoSession when the site shows the sign-in button.
func (c *Client) CheckSession(ctx context.Context) error {
	p, err := c.get(ctx, "/")
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if p.contains(signInMarker) {
		return ErrNoSession
	}
	return nil
}

// RemainingPoints returns the user's point balance shown in the nav bar.
func (c *Client) RemainingPoints(ctx context.Context) (int, error) {
	p, err := c.get(ctx, "/")
	if err != nil {
		return 0, err
	}
	return parsePoints(p.root)
}

func parsePoints(root *html.Node) (int, error) {
	text := textByClass(root, classNavPoints)
	points, err := strconv.Atoi(strings.ReplaceAll(text, ",", ""))
	if err != nil {
		return 0, fmt.Errorf("failed to read points %q: %w", text, err)
	}
	return points, nil
}
