package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/wikidigest"
)

// Ensure LoggingDescriber implements wikidigest.Describer.
var _ wikidigest.Describer = (*LoggingDescriber)(nil)

// LoggingDescriber wraps a Describer with logging.
type LoggingDescriber struct {
	next   wikidigest.Describer
	logger *slog.Logger
}

// NewLoggingDescriber creates a new LoggingDescriber.
func NewLoggingDescriber(next wikidigest.Describer, logger *slog.Logger) *LoggingDescriber {
	return &LoggingDescriber{next: next, logger: logger}
}

// Describe delegates to the wrapped describer and logs the operation.
func (d *LoggingDescriber) Describe(ctx context.Context, req wikidigest.DescribeRequest) (desc *wikidigest.Description, err error) {
	defer func(begin time.Time) {
		var tokens int
		if desc != nil {
			tokens = desc.TokenCount
		}
		d.logger.Info("describe image",
			"file", req.Filename,
			"type", req.ImageType,
			"bytes", len(req.Data),
			"tokens", tokens,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return d.next.Describe(ctx, req)
}

// Ensure LoggingEmbedder implements wikidigest.Embedder.
var _ wikidigest.Embedder = (*LoggingEmbedder)(nil)

// LoggingEmbedder wraps an Embedder with debug logging.
type LoggingEmbedder struct {
	next   wikidigest.Embedder
	logger *slog.Logger
}

// NewLoggingEmbedder creates a new LoggingEmbedder.
func NewLoggingEmbedder(next wikidigest.Embedder, logger *slog.Logger) *LoggingEmbedder {
	return &LoggingEmbedder{next: next, logger: logger}
}

// Embed delegates to the wrapped embedder and logs the operation.
func (e *LoggingEmbedder) Embed(ctx context.Context, text string) (vec []float32, err error) {
	defer func(begin time.Time) {
		e.logger.Debug("embed",
			"chars", len(text),
			"dims", len(vec),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Embed(ctx, text)
}

// Ensure LoggingDigestWriter implements wikidigest.DigestWriter.
var _ wikidigest.DigestWriter = (*LoggingDigestWriter)(nil)

// LoggingDigestWriter wraps a DigestWriter with logging.
type LoggingDigestWriter struct {
	next   wikidigest.DigestWriter
	logger *slog.Logger
}

// NewLoggingDigestWriter creates a new LoggingDigestWriter.
func NewLoggingDigestWriter(next wikidigest.DigestWriter, logger *slog.Logger) *LoggingDigestWriter {
	return &LoggingDigestWriter{next: next, logger: logger}
}

// WriteDigest delegates to the wrapped writer and logs the operation.
func (w *LoggingDigestWriter) WriteDigest(ctx context.Context, req wikidigest.DigestRequest) (text string, err error) {
	defer func(begin time.Time) {
		w.logger.Info("write digest",
			"title", req.PageTitle,
			"version", req.Version,
			"chunks", len(req.Chunks),
			"chars", len(text),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return w.next.WriteDigest(ctx, req)
}
