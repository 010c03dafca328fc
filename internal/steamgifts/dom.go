package steamgifts

import (
	"strings"

	"golang.org/x/net/html"
)

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(getAttr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// findAll returns the descendants of n (n included) accepted by match, in
// document order.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func byClass(n *html.Node, class string) []*html.Node {
	return findAll(n, func(n *html.Node) bool { return hasClass(n, class) })
}

func firstByClass(n *html.Node, class string) *html.Node {
	if all := byClass(n, class); len(all) > 0 {
		return all[0]
	}
	return nil
}

func lastByClass(n *html.Node, class string) *html.Node {
	if all := byClass(n, class); len(all) > 0 {
		return all[len(all)-1]
	}
	return nil
}

// hrefByClass returns the href of the first element with class that has one.
func hrefByClass(n *html.Node, class string) (string, bool) {
	for _, e := range byClass(n, class) {
		if hasAttr(e, "href") {
			return getAttr(e, "href"), true
		}
	}
	return "", false
}

// textContent concatenates the text below n and collapses the whitespace it
// contains. Inline markup adds no separator: Portal<b>2</b> reads "Portal2".
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// textByClass joins the text of every element with class.
func textByClass(n *html.Node, class string) string {
	var parts []string
	for _, e := range byClass(n, class) {
		if t := textContent(e); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// digits keeps only the ASCII digits of s.
func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
