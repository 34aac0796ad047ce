// Package chunk splits extracted page blocks into indexable text units and
// assembles the documents stored in the search index.
package chunk

import (
	"fmt"
	"strings"

	"github.com/fwojciec/wikidigest"
)

// Default text caps.
const (
	DefaultWholePageMax = 32000
	DefaultSectionMax   = 10000
)

func headingLine(level int, text string) string {
	return strings.Repeat("#", max(level, 1)) + " " + text
}

func listText(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "• " + item
	}
	return strings.Join(lines, "\n")
}

func tableText(rows [][]string) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, "TABLE:")
	for _, row := range rows {
		lines = append(lines, strings.Join(row, " | "))
	}
	return strings.Join(lines, "\n")
}

func placeholder(img *wikidigest.Image) string {
	return fmt.Sprintf("[IMAGE: %s]", imageName(img))
}

func imageName(img *wikidigest.Image) string {
	if img == nil || img.Filename == "" {
		return "image"
	}
	return img.Filename
}

func imageType(img *wikidigest.Image) wikidigest.ImageType {
	if img.DescriptionType == "" {
		return wikidigest.ImageGeneral
	}
	return img.DescriptionType
}

// imageURL prefers the stored copy over the original location.
func imageURL(img *wikidigest.Image) string {
	if img.BlobURL != "" {
		return img.BlobURL
	}
	return img.ExternalURL
}

// renderBlock renders the non-image payload of a block.
func renderBlock(b wikidigest.ContentBlock) string {
	switch b.Type {
	case wikidigest.BlockHeading:
		return headingLine(b.Level, b.Content)
	case wikidigest.BlockList:
		return listText(b.Items)
	case wikidigest.BlockTable:
		return tableText(b.Rows)
	default:
		return b.Content
	}
}
