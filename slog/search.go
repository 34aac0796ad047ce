package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/wikidigest"
)

// Ensure LoggingSearchIndex implements wikidigest.SearchIndex.
var _ wikidigest.SearchIndex = (*LoggingSearchIndex)(nil)

// LoggingSearchIndex wraps a SearchIndex with logging.
type LoggingSearchIndex struct {
	next   wikidigest.SearchIndex
	logger *slog.Logger
}

// NewLoggingSearchIndex creates a new LoggingSearchIndex.
func NewLoggingSearchIndex(next wikidigest.SearchIndex, logger *slog.Logger) *LoggingSearchIndex {
	return &LoggingSearchIndex{next: next, logger: logger}
}

// Upsert delegates to the wrapped index and logs the operation.
func (s *LoggingSearchIndex) Upsert(ctx context.Context, docs []*wikidigest.IndexDocument) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("index upsert",
			"count", len(docs),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Upsert(ctx, docs)
}

// DeletePage delegates to the wrapped index and logs the operation.
func (s *LoggingSearchIndex) DeletePage(ctx context.Context, pageID string) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("index delete page",
			"page", pageID,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DeletePage(ctx, pageID)
}

// QueryPage delegates to the wrapped index and logs the operation.
func (s *LoggingSearchIndex) QueryPage(ctx context.Context, pageID string) (docs []*wikidigest.IndexDocument, err error) {
	defer func(begin time.Time) {
		s.logger.Info("index query page",
			"page", pageID,
			"count", len(docs),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.QueryPage(ctx, pageID)
}
