package chunk

import (
	"fmt"
	"strings"

	"github.com/fwojciec/wikidigest"
)

// Thresholds under which a text block opens a section.
const (
	headingMaxChars = 100
	headingMaxWords = 20
)

// Ensure Semantic implements wikidigest.Chunker at compile time.
var _ wikidigest.Chunker = (*Semantic)(nil)

// Semantic splits a page into one chunk per heading-like block.
type Semantic struct {
	// Max caps the rendered text of each section in characters.
	// Zero means DefaultSectionMax.
	Max int
}

type section struct {
	heading string
	level   int
	blocks  []wikidigest.ContentBlock
}

// IsHeadingLike reports whether b opens a section: an explicit heading, or a
// text block short in characters or words.
func IsHeadingLike(b wikidigest.ContentBlock) bool {
	switch b.Type {
	case wikidigest.BlockHeading:
		return true
	case wikidigest.BlockText:
		return len([]rune(b.Content)) < headingMaxChars || len(strings.Fields(b.Content)) < headingMaxWords
	}
	return false
}

// Chunk groups blocks into sections and renders each one. A section whose
// text is empty is dropped; chunk indexes keep counting across it.
func (s *Semantic) Chunk(meta wikidigest.PageMetadata, blocks []wikidigest.ContentBlock) []*wikidigest.Chunk {
	limit := s.Max
	if limit <= 0 {
		limit = DefaultSectionMax
	}

	var chunks []*wikidigest.Chunk
	for i, sec := range group(blocks) {
		text := renderSection(sec)
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, &wikidigest.Chunk{
			ID:           fmt.Sprintf("%s_v%d_section_%03d", meta.PageID, meta.Version, i),
			PageID:       meta.PageID,
			Index:        i,
			Type:         wikidigest.ChunkSection,
			Heading:      sec.heading,
			HeadingLevel: sec.level,
			Blocks:       sec.blocks,
			Text:         wikidigest.Truncate(text, limit),
		})
	}
	return chunks
}

func group(blocks []wikidigest.ContentBlock) []section {
	var (
		sections []section
		current  section
	)
	for _, b := range blocks {
		if !IsHeadingLike(b) {
			current.blocks = append(current.blocks, b)
			continue
		}
		if len(current.blocks) > 0 {
			sections = append(sections, current)
		}
		current = section{heading: b.Content, level: 3, blocks: []wikidigest.ContentBlock{b}}
		if b.Type == wikidigest.BlockHeading {
			current.level = b.Level
		}
	}
	if len(current.blocks) > 0 {
		sections = append(sections, current)
	}
	return sections
}

func renderSection(sec section) string {
	var parts []string
	if sec.heading != "" {
		parts = append(parts, headingLine(sec.level, sec.heading))
	}

	for i, b := range sec.blocks {
		// The opening block is already rendered as the heading line.
		if i == 0 && sec.heading != "" {
			continue
		}
		if b.Type == wikidigest.BlockImage {
			parts = append(parts, inlineImage(b.Image))
			continue
		}
		parts = append(parts, renderBlock(b))
	}
	return strings.Join(parts, "\n\n")
}

func inlineImage(img *wikidigest.Image) string {
	if img == nil || img.Description == "" {
		return placeholder(img)
	}
	return fmt.Sprintf("\n📷 IMAGE (%s): %s\n%s\n", imageType(img), imageName(img), img.Description)
}
