package giveaway

import (
	"strings"

	"sgam/internal/requests"
)

// Matcher selects giveaways by title. Titles are compared lower case.
type Matcher struct {
	exact map[string]struct{}
	any   []string
	none  []string
}

// NewMatcher builds a matcher from the title sections of a requests file.
func NewMatcher(rf *requests.File) *Matcher {
	m := &Matcher{exact: make(map[string]struct{}, len(rf.ExactMatches))}
	for _, t := range rf.ExactMatches {
		m.exact[strings.ToLower(t)] = struct{}{}
	}
	for _, t := range rf.AnyMatches {
		m.any = append(m.any, strings.ToLower(t))
	}
	for _, t := range rf.NoMatches {
		m.none = append(m.none, strings.ToLower(t))
	}
	return m
}

// Match reports whether g is requested: its title equals an exact match or
// contains an any match, and contains no excluded phrase.
func (m *Matcher) Match(g Giveaway) bool {
	title := strings.ToLower(g.Title)
	if containsAny(title, m.none) {
		return false
	}
	if _, ok := m.exact[title]; ok {
		return true
	}
	return containsAny(title, m.any)
}

// Select returns the matching giveaways in input order.
func (m *Matcher) Select(giveaways []Giveaway) []Giveaway {
	var out []Giveaway
	for _, g := range giveaways {
		if m.Match(g) {
			out = append(out, g)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
