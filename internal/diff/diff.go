// Package diff computes line diffs using the sergi/go-diff library.
// `sgam sort --diff` uses it to show what normalizing the requests file changed.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineType represents the type of diff line
type LineType int

const (
	LineContext LineType = iota // Unchanged line
	LineAdded                   // Added line
	LineRemoved                 // Removed line
)

// Line represents a single line in the diff
type Line struct {
	Content string
	Type    LineType
}

// Compute returns every line of before and after, marked as kept, added or removed.
func Compute(before, after string) []Line {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	// Line-level reduction keeps whole lines together.
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var lines []Line
	for _, d := range diffs {
		typ := LineContext
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			typ = LineAdded
		case diffmatchpatch.DiffDelete:
			typ = LineRemoved
		}
		for _, content := range splitLines(d.Text) {
			lines = append(lines, Line{Content: content, Type: typ})
		}
	}
	return lines
}

// Changes is Compute without the unchanged lines.
func Changes(before, after string) []Line {
	var changed []Line
	for _, l := range Compute(before, after) {
		if l.Type != LineContext {
			changed = append(changed, l)
		}
	}
	return changed
}

// Stat counts added and removed lines.
func Stat(lines []Line) (added, removed int) {
	for _, l := range lines {
		switch l.Type {
		case LineAdded:
			added++
		case LineRemoved:
			removed++
		}
	}
	return added, removed
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
