// Package giveaway holds the giveaway model and decides which giveaways a
// requests file asks to enter.
package giveaway

import "strings"

// Giveaway is one open giveaway listed on the site.
type Giveaway struct {
	Title       string
	RelativeURL string // e.g. /giveaway/AbC12/some-game
	PointCost   int
}

// Code returns the giveaway code embedded in the relative URL, or "" when
// the URL is not a giveaway link.
func (g Giveaway) Code() string {
	parts := strings.Split(strings.Trim(g.RelativeURL, "/"), "/")
	if len(parts) < 2 || parts[0] != "giveaway" {
		return ""
	}
	return parts[1]
}

// Exclude drops giveaways whose relative URL appears in links.
func Exclude(giveaways []Giveaway, links []string) []Giveaway {
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		seen[l] = struct{}{}
	}

	out := make([]Giveaway, 0, len(giveaways))
	for _, g := range giveaways {
		if _, ok := seen[g.RelativeURL]; ok {
			continue
		}
		out = append(out, g)
	}
	return out
}

// TotalCost sums the point cost of giveaways.
func TotalCost(giveaways []Giveaway) int {
	total := 0
	for _, g := range giveaways {
		total += g.PointCost
	}
	return total
}
