package chunk

import (
	"fmt"
	"strings"

	"github.com/fwojciec/wikidigest"
)

// Ensure WholePage implements wikidigest.Chunker at compile time.
var _ wikidigest.Chunker = (*WholePage)(nil)

// WholePage renders every block of a page into a single chunk. Images are
// kept in place as placeholders and listed with their details in a closing
// section.
type WholePage struct {
	// Max caps the rendered text in characters. Zero means DefaultWholePageMax.
	Max int
}

// Chunk returns one chunk, or none when the page has no blocks.
func (w *WholePage) Chunk(meta wikidigest.PageMetadata, blocks []wikidigest.ContentBlock) []*wikidigest.Chunk {
	if len(blocks) == 0 {
		return nil
	}

	parts := []string{"# " + meta.Title, ""}
	var images []*wikidigest.Image
	for _, b := range blocks {
		if b.Type == wikidigest.BlockImage {
			if b.Image != nil {
				images = append(images, b.Image)
			}
			parts = append(parts, placeholder(b.Image))
			continue
		}
		parts = append(parts, renderBlock(b))
	}

	if len(images) > 0 {
		parts = append(parts, "\n\n---\n## IMAGES IN THIS PAGE:\n")
		for i, img := range images {
			parts = append(parts,
				fmt.Sprintf("### Image %d: %s", i+1, imageName(img)),
				"**URL:** "+imageURL(img),
				fmt.Sprintf("**Type:** %s", imageType(img)),
			)
			if img.Description != "" {
				parts = append(parts, "**Description:** "+img.Description)
			}
			parts = append(parts, "")
		}
	}

	limit := w.Max
	if limit <= 0 {
		limit = DefaultWholePageMax
	}

	return []*wikidigest.Chunk{{
		ID:           fmt.Sprintf("%s_v%d_full", meta.PageID, meta.Version),
		PageID:       meta.PageID,
		Index:        0,
		Type:         wikidigest.ChunkFullPage,
		Heading:      meta.Title,
		HeadingLevel: 1,
		Blocks:       blocks,
		Text:         wikidigest.Truncate(strings.Join(parts, "\n\n"), limit),
	}}
}
