package mock

import (
	"context"

	"github.com/fwojciec/wikidigest"
)

var _ wikidigest.SearchIndex = (*SearchIndex)(nil)

// SearchIndex is a mock implementation of wikidigest.SearchIndex.
type SearchIndex struct {
	UpsertFn     func(ctx context.Context, docs []*wikidigest.IndexDocument) error
	DeletePageFn func(ctx context.Context, pageID string) error
	QueryPageFn  func(ctx context.Context, pageID string) ([]*wikidigest.IndexDocument, error)
}

func (s *SearchIndex) Upsert(ctx context.Context, docs []*wikidigest.IndexDocument) error {
	return s.UpsertFn(ctx, docs)
}

func (s *SearchIndex) DeletePage(ctx context.Context, pageID string) error {
	return s.DeletePageFn(ctx, pageID)
}

func (s *SearchIndex) QueryPage(ctx context.Context, pageID string) ([]*wikidigest.IndexDocument, error) {
	return s.QueryPageFn(ctx, pageID)
}

var _ wikidigest.Embedder = (*Embedder)(nil)

// Embedder is a mock implementation of wikidigest.Embedder.
type Embedder struct {
	EmbedFn func(ctx context.Context, text string) ([]float32, error)
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.EmbedFn(ctx, text)
}
