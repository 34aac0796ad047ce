package mock

import (
	"context"

	"github.com/fwojciec/wikidigest"
)

var _ wikidigest.BlobStore = (*BlobStore)(nil)

// BlobStore is a mock implementation of wikidigest.BlobStore.
type BlobStore struct {
	ExistsFn      func(ctx context.Context, key string) (bool, error)
	MetadataFn    func(ctx context.Context, key string) (*wikidigest.ArtifactMetadata, error)
	PutFn         func(ctx context.Context, key string, data []byte, meta wikidigest.ArtifactMetadata) (string, error)
	GetFn         func(ctx context.Context, key string) ([]byte, error)
	SetMetadataFn func(ctx context.Context, key string, meta wikidigest.ArtifactMetadata) error
	ListFn        func(ctx context.Context, prefix string) ([]string, error)
	URLFn         func(key string) string
}

func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.ExistsFn(ctx, key)
}

func (s *BlobStore) Metadata(ctx context.Context, key string) (*wikidigest.ArtifactMetadata, error) {
	return s.MetadataFn(ctx, key)
}

func (s *BlobStore) Put(ctx context.Context, key string, data []byte, meta wikidigest.ArtifactMetadata) (string, error) {
	return s.PutFn(ctx, key, data, meta)
}

func (s *BlobStore) SetMetadata(ctx context.Context, key string, meta wikidigest.ArtifactMetadata) error {
	return s.SetMetadataFn(ctx, key, meta)
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.GetFn(ctx, key)
}

func (s *BlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.ListFn(ctx, prefix)
}

func (s *BlobStore) URL(key string) string {
	return s.URLFn(key)
}
