// Package requests reads and rewrites the requests file: the session cookie,
// the XSRF token, and the title lists that decide which giveaways to enter.
package requests

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Tag marks the start of a title section.
type Tag string

const (
	TagExactMatch Tag = "[exact_match]"
	TagAnyMatch   Tag = "[any_match]"
	TagNoMatch    Tag = "[no_match]"
)

// Tags lists every section tag in file order.
var Tags = []Tag{TagExactMatch, TagAnyMatch, TagNoMatch}

func isTag(line string) bool {
	for _, t := range Tags {
		if string(t) == line {
			return true
		}
	}
	return false
}

const (
	cookieValueLength = 48
	xsrfTokenLength   = 32
)

var (
	ErrNotFound      = errors.New("requests file not found")
	ErrInvalidCookie = errors.New("invalid cookie format")
	ErrInvalidToken  = errors.New("invalid token format")
)

// File is the parsed content of a requests file.
type File struct {
	CookieName   string
	CookieValue  string
	XSRFToken    string
	ExactMatches []string
	AnyMatches   []string
	NoMatches    []string
}

// Parse reads a requests file from r.
func Parse(r io.Reader) (*File, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read requests: %w", err)
	}

	if len(lines) < 1 || !isValidCookie(lines[0]) {
		return nil, ErrInvalidCookie
	}
	if len(lines) < 2 || !isValidXSRFToken(lines[1]) {
		return nil, ErrInvalidToken
	}

	name, value, _ := strings.Cut(lines[0], "=")
	return &File{
		CookieName:   name,
		CookieValue:  value,
		XSRFToken:    lines[1],
		ExactMatches: titlesByTag(TagExactMatch, lines),
		AnyMatches:   titlesByTag(TagAnyMatch, lines),
		NoMatches:    titlesByTag(TagNoMatch, lines),
	}, nil
}

// Load reads and parses the requests file at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open requests file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Normalize sorts the requests file at path in place and returns the
// re-read content. Everything below the cookie line ends up lower case.
func Normalize(path string, logger *zap.Logger) (*File, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()

	rf, err := Load(path)
	if err != nil {
		return nil, err
	}
	rf.Sort()
	if err := rf.Save(path); err != nil {
		return nil, err
	}
	logger.Info("requests file sorted",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start)))

	return Load(path)
}

// Save writes the canonical form of the file to path.
func (f *File) Save(path string) error {
	if err := os.WriteFile(path, f.Format(), 0600); err != nil {
		return fmt.Errorf("failed to write requests file: %w", err)
	}
	return nil
}

// Sort lower-cases each title list, orders it, and drops duplicates.
func (f *File) Sort() {
	f.ExactMatches = sortUnique(f.ExactMatches)
	f.AnyMatches = sortUnique(f.AnyMatches)
	f.NoMatches = sortUnique(f.NoMatches)
}

// AddExactMatches merges titles into the exact match section.
func (f *File) AddExactMatches(titles ...string) {
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" || isTag(strings.ToLower(t)) {
			continue
		}
		f.ExactMatches = append(f.ExactMatches, t)
	}
	f.ExactMatches = sortUnique(f.ExactMatches)
}

// Format renders the file. The cookie line keeps its case; the rest is
// lower-cased.
func (f *File) Format() []byte {
	var body strings.Builder
	body.WriteString(f.XSRFToken)
	body.WriteByte('\n')
	for _, section := range []struct {
		tag    Tag
		titles []string
	}{
		{TagExactMatch, f.ExactMatches},
		{TagAnyMatch, f.AnyMatches},
		{TagNoMatch, f.NoMatches},
	} {
		body.WriteString(string(section.tag))
		body.WriteByte('\n')
		for _, t := range section.titles {
			body.WriteString(t)
			body.WriteByte('\n')
		}
	}

	var buf bytes.Buffer
	buf.WriteString(f.CookieName + "=" + f.CookieValue + "\n")
	buf.WriteString(strings.ToLower(body.String()))
	return buf.Bytes()
}

func isValidCookie(cookie string) bool {
	parts := strings.Split(cookie, "=")
	return len(parts) == 2 && parts[0] != "" && len(parts[1]) == cookieValueLength
}

func isValidXSRFToken(token string) bool {
	return len(token) == xsrfTokenLength
}

// titlesByTag collects the lines after tag up to the next blank line or tag.
func titlesByTag(tag Tag, lines []string) []string {
	idx := slices.Index(lines, string(tag))
	if idx < 0 {
		return nil
	}

	var titles []string
	for _, line := range lines[idx+1:] {
		if line == "" || isTag(line) {
			break
		}
		titles = append(titles, line)
	}
	return titles
}

func sortUnique(s []string) []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		out = append(out, strings.ToLower(v))
	}
	slices.Sort(out)
	return slices.Compact(out)
}
