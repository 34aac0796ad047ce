package wikidigest

import (
	"context"
	"time"
)

// ChunkType distinguishes the two chunking strategies in the index.
type ChunkType string

// ChunkType constants.
const (
	ChunkSection  ChunkType = "section"
	ChunkFullPage ChunkType = "full_page"
)

// Chunk is a contiguous run of blocks rendered to one indexable text.
// A semantic section carries the heading-like block that opened it;
// the whole-page chunk carries the page title.
type Chunk struct {
	ID           string         `json:"id"`
	PageID       string         `json:"pageId"`
	Index        int            `json:"index"`
	Type         ChunkType      `json:"type"`
	Heading      string         `json:"heading,omitempty"`
	HeadingLevel int            `json:"headingLevel,omitempty"`
	Blocks       []ContentBlock `json:"blocks"`
	Text         string         `json:"text"`
}

// HasImage reports whether any member block is an image.
func (c *Chunk) HasImage() bool {
	for i := range c.Blocks {
		if c.Blocks[i].Type == BlockImage {
			return true
		}
	}
	return false
}

// Images returns the image payloads of the member blocks.
func (c *Chunk) Images() []*Image {
	return Images(c.Blocks)
}

// Chunker splits a page's blocks into chunks.
type Chunker interface {
	Chunk(meta PageMetadata, blocks []ContentBlock) []*Chunk
}

// IndexDocument is one chunk as stored in the search index.
type IndexDocument struct {
	ChunkID           string    `json:"chunk_id"`
	PageID            string    `json:"page_id"`
	PageTitle         string    `json:"page_title"`
	SpaceKey          string    `json:"space_key"`
	Version           int       `json:"version"`
	ChunkIndex        int       `json:"chunk_index"`
	ContentType       ChunkType `json:"content_type"`
	ContentText       string    `json:"content_text"`
	ContentVector     []float32 `json:"content_vector,omitempty"`
	HasImage          bool      `json:"has_image"`
	ImageURLs         []string  `json:"image_urls,omitempty"`
	ImageDescriptions []string  `json:"image_descriptions,omitempty"`
	PageURL           string    `json:"page_url"`
	LastModified      time.Time `json:"last_modified"`
	TokenCount        int       `json:"token_count,omitempty"`
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TokenCounter counts tokens in text for a specific model.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}

// SearchIndex stores indexed chunks.
type SearchIndex interface {
	// Upsert writes documents, replacing any with the same chunk ID.
	Upsert(ctx context.Context, docs []*IndexDocument) error

	// DeletePage removes every document of a page.
	DeletePage(ctx context.Context, pageID string) error

	// QueryPage returns the documents of a page ordered by chunk index.
	QueryPage(ctx context.Context, pageID string) ([]*IndexDocument, error)
}
