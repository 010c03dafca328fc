// Package sgtest serves a small in-memory copy of the giveaway site for tests.
package sgtest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"sgam/internal/giveaway"

	"github.com/goccy/go-json"
)

const (
	CookieName  = "PHPSESSID"
	CookieValue = "0123456789abcdef0123456789abcdef0123456789abcdef"
	XSRFToken   = "fedcba9876543210fedcba9876543210"
)

// Site is the state behind the fake server. Lock Mu before reading fields
// while the server is running.
type Site struct {
	Mu sync.Mutex

	Points  int
	Open    []giveaway.Giveaway // search listing
	PerPage int                 // listing rows per page, default 50

	EnteredOpen    []giveaway.Giveaway // entered and still open, newest first
	EnteredClosed  []string            // titles of entered, closed giveaways
	EnteredPerPage int                 // entered rows per page, default 25

	Refuse         map[string]string // giveaway code -> error message
	FailSearchPage int               // search page answered with 500

	Posted []string // codes received by the ajax endpoint
}

// Server is a running fake site.
type Server struct {
	*httptest.Server
	Site *Site
}

// NewServer starts a fake site and closes it when the test ends.
func NewServer(t testing.TB, site *Site) *Server {
	t.Helper()
	if site.PerPage == 0 {
		site.PerPage = 50
	}
	if site.EnteredPerPage == 0 {
		site.EnteredPerPage = 25
	}

	s := &Server{Site: site}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.home)
	mux.HandleFunc("/giveaways/search", s.search)
	mux.HandleFunc("/giveaways/entered", s.entered)
	mux.HandleFunc("/giveaways/entered/search", s.enteredSearch)
	mux.HandleFunc("/ajax.php", s.ajax)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func signedIn(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	return err == nil && c.Value == CookieValue
}

func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>SteamGifts</title></head><body>%s</body></html>", body)
}

func (s *Server) nav(r *http.Request) string {
	if !signedIn(r) {
		return `<header><a class="nav__sits" href="/?login">Sign in through STEAM</a></header>`
	}
	return fmt.Sprintf(`<header><a class="nav__button" href="/account"><span class="nav__points">%d</span></a></header>`, s.Site.Points)
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.Site.Mu.Lock()
	defer s.Site.Mu.Unlock()
	writeHTML(w, s.nav(r))
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	s.Site.Mu.Lock()
	defer s.Site.Mu.Unlock()

	n := pageParam(r)
	if n == s.Site.FailSearchPage {
		http.Error(w, "overloaded", http.StatusInternalServerError)
		return
	}
	lo := (n - 1) * s.Site.PerPage
	if lo >= len(s.Site.Open) {
		writeHTML(w, s.nav(r)+`<div class="pagination">No results were found.</div>`)
		return
	}
	hi := min(lo+s.Site.PerPage, len(s.Site.Open))

	var sb strings.Builder
	sb.WriteString(s.nav(r))
	for i, g := range s.Site.Open[lo:hi] {
		sb.WriteString(giveawayRow(g, i%2 == 1))
	}
	writeHTML(w, sb.String())
}

// giveawayRow renders a listing row; odd rows use the missing-thumbnail link.
func giveawayRow(g giveaway.Giveaway, missingThumb bool) string {
	thumb := fmt.Sprintf(`<a class="giveaway_image_thumbnail" href="%s"></a>`, html.EscapeString(g.RelativeURL))
	if missingThumb {
		thumb = fmt.Sprintf(`<a class="global__image-outer-wrap giveaway_image_thumbnail_missing" href="%s"><i class="fa fa-question"></i></a>`, html.EscapeString(g.RelativeURL))
	}
	return fmt.Sprintf(`<div class="giveaway__row-outer-wrap"><div class="giveaway__row-inner-wrap">
<div class="giveaway__summary"><h2 class="giveaway__heading">
<a class="giveaway__heading__name" href="%s">%s</a>
<span class="giveaway__heading__thin">(2 Copies)</span>
<span class="giveaway__heading__thin">(%dP)</span>
</h2></div>%s</div></div>`,
		html.EscapeString(g.RelativeURL), html.EscapeString(g.Title), g.PointCost, thumb)
}

type enteredRow struct {
	title string
	url   string
	open  bool
}

func (s *Server) enteredRows() []enteredRow {
	var rows []enteredRow
	for _, g := range s.Site.EnteredOpen {
		rows = append(rows, enteredRow{title: g.Title, url: g.RelativeURL, open: true})
	}
	for i, t := range s.Site.EnteredClosed {
		rows = append(rows, enteredRow{title: t, url: fmt.Sprintf("/giveaway/cl%03d/closed", i)})
	}
	return rows
}

func (s *Server) entered(w http.ResponseWriter, r *http.Request) {
	s.Site.Mu.Lock()
	defer s.Site.Mu.Unlock()

	rows := s.enteredRows()
	pages := (len(rows) + s.Site.EnteredPerPage - 1) / s.Site.EnteredPerPage
	var sb strings.Builder
	sb.WriteString(s.nav(r))
	if pages > 1 {
		sb.WriteString(`<div class="pagination__navigation">`)
		for i := 1; i <= pages; i++ {
			fmt.Fprintf(&sb, `<a href="/giveaways/entered/search?page=%d" data-page-number="%d">%d</a>`, i, i, i)
		}
		sb.WriteString(`</div>`)
	}
	writeHTML(w, sb.String())
}

func (s *Server) enteredSearch(w http.ResponseWriter, r *http.Request) {
	s.Site.Mu.Lock()
	defer s.Site.Mu.Unlock()

	rows := s.enteredRows()
	lo := (pageParam(r) - 1) * s.Site.EnteredPerPage
	var sb strings.Builder
	sb.WriteString(s.nav(r))
	sb.WriteString(`<div class="table__rows">`)
	if lo < len(rows) {
		hi := min(lo+s.Site.EnteredPerPage, len(rows))
		for _, row := range rows[lo:hi] {
			sb.WriteString(`<div class="table__row-outer-wrap"><div class="table__row-inner-wrap">`)
			fmt.Fprintf(&sb, `<a class="table__column__heading" href="%s">%s</a>`,
				html.EscapeString(row.url), html.EscapeString(row.title))
			if row.open {
				sb.WriteString(`<div class="table__remove-default"><span class="table__column__secondary-link">Remove</span></div>`)
			}
			sb.WriteString(`</div></div>`)
		}
	}
	sb.WriteString(`</div>`)
	writeHTML(w, sb.String())
}

func (s *Server) ajax(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.Site.Mu.Lock()
	defer s.Site.Mu.Unlock()

	code := r.PostForm.Get("code")
	s.Site.Posted = append(s.Site.Posted, code)

	w.Header().Set("Content-Type", "application/json")
	reply := func(v map[string]any) { _ = json.NewEncoder(w).Encode(v) }

	if !signedIn(r) || r.PostForm.Get("xsrf_token") != XSRFToken || r.PostForm.Get("do") != "entry_insert" {
		reply(map[string]any{"type": "error", "msg": "Invalid request"})
		return
	}
	if msg, ok := s.Site.Refuse[code]; ok {
		reply(map[string]any{"type": "error", "msg": msg})
		return
	}

	for i, g := range s.Site.Open {
		if g.Code() != code {
			continue
		}
		if g.PointCost > s.Site.Points {
			reply(map[string]any{"type": "error", "msg": "Not Enough Points"})
			return
		}
		s.Site.Points -= g.PointCost
		s.Site.EnteredOpen = append([]giveaway.Giveaway{s.Site.Open[i]}, s.Site.EnteredOpen...)
		reply(map[string]any{
			"type":        "success",
			"entry_count": strconv.Itoa(len(s.Site.EnteredOpen)),
			"points":      strconv.Itoa(s.Site.Points),
		})
		return
	}
	reply(map[string]any{"type": "error", "msg": "Giveaway not found"})
}
