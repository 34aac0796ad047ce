package detect

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/wikidigest"
)

// Summary limits.
const (
	minTextLength     = 10
	maxTextLength     = 100
	maxHeadings       = 3
	maxTextAdded      = 3
	maxTextRemoved    = 2
	addedSnippetLen   = 80
	removedSnippetLen = 60
)

var imageMarkers = []string{"[IMAGE_EXTERNAL:", "[IMAGE_ATTACHMENT:", "[IMAGE:"}

// Changes is the classified result of a line-set diff between two
// normalized snapshots. Lines keep the order they have in their snapshot.
type Changes struct {
	Added   int
	Removed int

	ImagesAdded     []string
	ImagesRemoved   []string
	HeadingsAdded   []string
	HeadingsRemoved []string
	TextAdded       []string
	TextRemoved     []string
}

// Diff compares two normalized snapshots as sets of lines. A line present in
// current but not in previous is added; the reverse is removed. Reordered
// lines are not changes, and an edited line counts as one removal plus one
// addition.
func Diff(previous, current string) Changes {
	prevLines := strings.Split(previous, "\n")
	currLines := strings.Split(current, "\n")

	added := difference(currLines, prevLines)
	removed := difference(prevLines, currLines)

	c := Changes{Added: len(added), Removed: len(removed)}
	for _, line := range added {
		switch kind, text := classify(line); kind {
		case lineImage:
			c.ImagesAdded = append(c.ImagesAdded, text)
		case lineHeading:
			c.HeadingsAdded = append(c.HeadingsAdded, text)
		case lineText:
			c.TextAdded = append(c.TextAdded, text)
		}
	}
	for _, line := range removed {
		switch kind, text := classify(line); kind {
		case lineImage:
			c.ImagesRemoved = append(c.ImagesRemoved, text)
		case lineHeading:
			c.HeadingsRemoved = append(c.HeadingsRemoved, text)
		case lineText:
			c.TextRemoved = append(c.TextRemoved, text)
		}
	}
	return c
}

// Summary renders the changes as a " | " separated list of the most telling
// items, or a count of additions and removals when nothing classified.
func (c Changes) Summary() string {
	var parts []string

	for _, img := range c.ImagesAdded {
		parts = append(parts, "NEW IMAGE ADDED: "+imageName(img))
	}
	for _, img := range c.ImagesRemoved {
		parts = append(parts, "IMAGE REMOVED: "+img)
	}
	for _, h := range head(c.HeadingsAdded, maxHeadings) {
		parts = append(parts, "NEW SECTION: "+h)
	}
	for _, h := range head(c.HeadingsRemoved, maxHeadings) {
		parts = append(parts, "SECTION REMOVED: "+h)
	}
	for _, txt := range head(c.TextAdded, maxTextAdded) {
		parts = append(parts, fmt.Sprintf(`NEW TEXT: "%s..."`, wikidigest.Truncate(txt, addedSnippetLen)))
	}
	for _, txt := range head(c.TextRemoved, maxTextRemoved) {
		parts = append(parts, fmt.Sprintf(`TEXT REMOVED: "%s..."`, wikidigest.Truncate(txt, removedSnippetLen)))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("Minor content changes: %d additions, %d removals", c.Added, c.Removed)
	}
	return strings.Join(parts, " | ")
}

type lineKind int

const (
	lineNoise lineKind = iota
	lineImage
	lineHeading
	lineText
)

func classify(line string) (lineKind, string) {
	line = strings.TrimSpace(line)
	if line == "[IMAGE]" {
		return lineImage, line
	}
	for _, marker := range imageMarkers {
		if strings.Contains(line, marker) {
			return lineImage, line
		}
	}
	if strings.Contains(line, "[HEADING]") {
		return lineHeading, strings.TrimSpace(strings.ReplaceAll(line, "[HEADING]", ""))
	}
	if utf8.RuneCountInString(line) > minTextLength {
		return lineText, wikidigest.Truncate(line, maxTextLength)
	}
	return lineNoise, ""
}

// imageName strips the marker from an image line, leaving the file name or
// the external description.
func imageName(line string) string {
	if line == "[IMAGE]" {
		return "unnamed image"
	}
	for _, marker := range imageMarkers {
		line = strings.ReplaceAll(line, marker, "")
	}
	return strings.TrimSpace(strings.ReplaceAll(line, "]", ""))
}

// difference returns the distinct lines of a that are not in b, in the
// order they first appear in a.
func difference(a, b []string) []string {
	exclude := make(map[string]struct{}, len(b))
	for _, line := range b {
		exclude[line] = struct{}{}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, line := range a {
		if _, ok := exclude[line]; ok {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
