package wikidigest

import (
	"context"
	"strings"
	"time"
)

// ImageType is the coarse kind of an image, used to pick a description prompt.
type ImageType string

// ImageType constants.
const (
	ImageTable      ImageType = "table"
	ImageFlowchart  ImageType = "flowchart"
	ImageScreenshot ImageType = "screenshot"
	ImageDiagram    ImageType = "diagram"
	ImageGeneral    ImageType = "general"
)

var imageTypeKeywords = []struct {
	typ      ImageType
	keywords []string
}{
	{ImageTable, []string{"table", "matrix", "raci", "responsibility", "grid"}},
	{ImageFlowchart, []string{"flow", "process", "workflow", "pipeline", "sequence"}},
	{ImageScreenshot, []string{"screenshot", "screen", "email", "ui", "interface"}},
	{ImageDiagram, []string{"diagram", "architecture", "structure", "org", "hierarchy"}},
}

// DetectImageType guesses the kind of an image from its file name and the
// text around it.
func DetectImageType(filename, context string) ImageType {
	haystack := strings.ToLower(filename + " " + context)
	for _, rule := range imageTypeKeywords {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return rule.typ
			}
		}
	}
	return ImageGeneral
}

const (
	contextWindow  = 2
	contextTextLen = 150
)

// ImageContext returns the text that surrounds the image block at position
// pos: its alt text plus headings and text from the blocks just before it.
func ImageContext(blocks []ContentBlock, pos int) string {
	if pos < 0 || pos >= len(blocks) {
		return ""
	}

	var parts []string
	if img := blocks[pos].Image; img != nil && img.AltText != "" {
		parts = append(parts, "Alt text: "+img.AltText)
	}

	start := max(pos-contextWindow, 0)
	for i := start; i < pos; i++ {
		b := blocks[i]
		switch b.Type {
		case BlockHeading:
			parts = append(parts, "Section: "+b.Content)
		case BlockText:
			parts = append(parts, "Context: "+Truncate(b.Content, contextTextLen))
		}
	}

	return strings.Join(parts, " | ")
}

// DescriptionRecord is a cached vision-model description, keyed by the
// content hash of the image it describes.
type DescriptionRecord struct {
	ImageHash   string    `json:"imageHash"`
	Filename    string    `json:"filename"`
	Description string    `json:"description"`
	ImageType   ImageType `json:"imageType"`
	TokensUsed  int       `json:"tokensUsed"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// DescriptionCache stores descriptions by image hash.
type DescriptionCache interface {
	// FindDescription returns the description cached for an image hash.
	// Returns ENOTFOUND on a miss.
	FindDescription(ctx context.Context, imageHash string) (*DescriptionRecord, error)

	// PutDescription caches a description under its image hash.
	PutDescription(ctx context.Context, rec *DescriptionRecord) error
}

// DescribeRequest is one image to describe.
type DescribeRequest struct {
	Filename  string
	MediaType string
	Data      []byte
	URL       string
	ImageType ImageType
	Context   string
}

// Description is a vision-model answer.
type Description struct {
	Text       string `json:"text"`
	TokenCount int    `json:"tokenCount"`
}

// Describer generates a text description of an image.
type Describer interface {
	Describe(ctx context.Context, req DescribeRequest) (*Description, error)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
