package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/wikidigest"
)

// Ensure LoggingBlobStore implements wikidigest.BlobStore.
var _ wikidigest.BlobStore = (*LoggingBlobStore)(nil)

// LoggingBlobStore wraps a BlobStore with debug logging. Writes log at info
// level, reads at debug.
type LoggingBlobStore struct {
	next   wikidigest.BlobStore
	logger *slog.Logger
}

// NewLoggingBlobStore creates a new LoggingBlobStore.
func NewLoggingBlobStore(next wikidigest.BlobStore, logger *slog.Logger) *LoggingBlobStore {
	return &LoggingBlobStore{next: next, logger: logger}
}

func (s *LoggingBlobStore) Exists(ctx context.Context, key string) (ok bool, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("blob exists", "key", key, "exists", ok, "duration", time.Since(begin), "err", err)
	}(time.Now())
	return s.next.Exists(ctx, key)
}

func (s *LoggingBlobStore) Metadata(ctx context.Context, key string) (meta *wikidigest.ArtifactMetadata, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("blob metadata", "key", key, "duration", time.Since(begin), "err", err)
	}(time.Now())
	return s.next.Metadata(ctx, key)
}

func (s *LoggingBlobStore) Put(ctx context.Context, key string, data []byte, meta wikidigest.ArtifactMetadata) (url string, err error) {
	defer func(begin time.Time) {
		s.logger.Info("blob put",
			"key", key,
			"bytes", len(data),
			"hash", wikidigest.ShortHash(meta.ContentHash),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Put(ctx, key, data, meta)
}

func (s *LoggingBlobStore) SetMetadata(ctx context.Context, key string, meta wikidigest.ArtifactMetadata) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("blob set metadata",
			"key", key,
			"marker", meta.VersionMarker,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.SetMetadata(ctx, key, meta)
}

func (s *LoggingBlobStore) Get(ctx context.Context, key string) (data []byte, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("blob get", "key", key, "bytes", len(data), "duration", time.Since(begin), "err", err)
	}(time.Now())
	return s.next.Get(ctx, key)
}

func (s *LoggingBlobStore) List(ctx context.Context, prefix string) (keys []string, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("blob list", "prefix", prefix, "count", len(keys), "duration", time.Since(begin), "err", err)
	}(time.Now())
	return s.next.List(ctx, prefix)
}

func (s *LoggingBlobStore) URL(key string) string {
	return s.next.URL(key)
}
