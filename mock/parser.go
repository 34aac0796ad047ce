package mock

import (
	"context"

	"github.com/fwojciec/wikidigest"
)

var _ wikidigest.Parser = (*Parser)(nil)

// Parser is a mock implementation of wikidigest.Parser.
type Parser struct {
	ParseFn func(markup string) (*wikidigest.ParseResult, error)
}

func (p *Parser) Parse(markup string) (*wikidigest.ParseResult, error) {
	return p.ParseFn(markup)
}

var _ wikidigest.Normalizer = (*Normalizer)(nil)

// Normalizer is a mock implementation of wikidigest.Normalizer.
type Normalizer struct {
	NormalizeFn func(page *wikidigest.Page) string
}

func (n *Normalizer) Normalize(page *wikidigest.Page) string {
	return n.NormalizeFn(page)
}

var _ wikidigest.ChangeDetector = (*ChangeDetector)(nil)

// ChangeDetector is a mock implementation of wikidigest.ChangeDetector.
type ChangeDetector struct {
	DetectPageFn func(ctx context.Context, page *wikidigest.Page, force bool) (*wikidigest.ChangeDetection, error)
}

func (d *ChangeDetector) DetectPage(ctx context.Context, page *wikidigest.Page, force bool) (*wikidigest.ChangeDetection, error) {
	return d.DetectPageFn(ctx, page, force)
}

var _ wikidigest.Chunker = (*Chunker)(nil)

// Chunker is a mock implementation of wikidigest.Chunker.
type Chunker struct {
	ChunkFn func(meta wikidigest.PageMetadata, blocks []wikidigest.ContentBlock) []*wikidigest.Chunk
}

func (c *Chunker) Chunk(meta wikidigest.PageMetadata, blocks []wikidigest.ContentBlock) []*wikidigest.Chunk {
	return c.ChunkFn(meta, blocks)
}
