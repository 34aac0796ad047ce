// Package slog provides logging decorators for the external collaborators
// of the pipeline.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/wikidigest"
)

// Ensure LoggingPageSource implements wikidigest.PageSource.
var _ wikidigest.PageSource = (*LoggingPageSource)(nil)

// LoggingPageSource wraps a PageSource with logging.
type LoggingPageSource struct {
	next   wikidigest.PageSource
	logger *slog.Logger
}

// NewLoggingPageSource creates a new LoggingPageSource.
func NewLoggingPageSource(next wikidigest.PageSource, logger *slog.Logger) *LoggingPageSource {
	return &LoggingPageSource{next: next, logger: logger}
}

// FetchPage delegates to the wrapped source and logs the operation.
func (s *LoggingPageSource) FetchPage(ctx context.Context, pageID string) (page *wikidigest.Page, err error) {
	defer func(begin time.Time) {
		attrs := []any{"page", pageID, "duration", time.Since(begin), "err", err}
		if page != nil {
			attrs = append(attrs, "title", page.Title, "version", page.Version, "attachments", len(page.Attachments))
		}
		s.logger.Info("fetch page", attrs...)
	}(time.Now())
	return s.next.FetchPage(ctx, pageID)
}

// DownloadAttachment delegates to the wrapped source and logs the operation.
func (s *LoggingPageSource) DownloadAttachment(ctx context.Context, att wikidigest.Attachment) (data []byte, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("download attachment",
			"file", att.Filename,
			"bytes", len(data),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DownloadAttachment(ctx, att)
}
