// Package digest turns a page change into an email digest and delivers it
// to the page's subscribers.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/cache"
)

// FallbackSummary replaces the summary when the writer fails, so that
// subscribers still learn about the change.
const FallbackSummary = "The summary could not be generated. Please review the page directly."

// Ensure Service implements wikidigest.DigestService at compile time.
var _ wikidigest.DigestService = (*Service)(nil)

// Service builds and sends digests.
type Service struct {
	Index       wikidigest.SearchIndex
	Writer      wikidigest.DigestWriter
	Subscribers wikidigest.SubscriberService
	Notifier    wikidigest.Notifier
	Sanitizer   wikidigest.Sanitizer

	// Converter and Archive are optional; when both are set, every digest
	// is archived as HTML and Markdown.
	Converter wikidigest.Converter
	Archive   *cache.Store

	Logger *slog.Logger
	Now    func() time.Time
}

// ArchiveKey returns the key under which a digest is archived; ext is
// "html" or "md".
func ArchiveKey(pageID string, version int, ext string) string {
	return fmt.Sprintf("emails/%s_v%d.%s", pageID, version, ext)
}

// SendDigest delivers the digest of meta's version to every subscriber of
// the page. Individual delivery failures are recorded in the result, not
// returned.
func (s *Service) SendDigest(ctx context.Context, meta wikidigest.PageMetadata) (*wikidigest.DigestResult, error) {
	log := s.logger().With("page", meta.PageID, "version", meta.Version)

	result := &wikidigest.DigestResult{
		PageID:      meta.PageID,
		Version:     meta.Version,
		SentTo:      []string{},
		GeneratedAt: s.now(),
	}

	subscribers, err := s.Subscribers.FindSubscribersForPage(ctx, meta.PageID)
	if err != nil {
		return nil, fmt.Errorf("find subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		result.Status = wikidigest.DigestNoSubscribers
		log.Info("no subscribers")
		return result, nil
	}

	chunks, err := s.Index.QueryPage(ctx, meta.PageID)
	if err != nil {
		return nil, fmt.Errorf("query indexed content: %w", err)
	}
	if len(chunks) == 0 {
		return nil, wikidigest.Errorf(wikidigest.ENOTFOUND, "no indexed content for page %s", meta.PageID)
	}
	result.ChunksCount = len(chunks)

	summary, err := s.Writer.WriteDigest(ctx, wikidigest.DigestRequest{
		PageTitle:     meta.Title,
		PageURL:       meta.URL,
		Version:       meta.Version,
		ChangeSummary: meta.ChangeSummary,
		Chunks:        chunks,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("summary failed, sending fallback", "err", err)
		summary = FallbackSummary
	}
	result.Summary = summary

	body, err := RenderEmail(meta, summary, chunks, result.GeneratedAt)
	if err != nil {
		return nil, fmt.Errorf("render email: %w", err)
	}
	body = s.Sanitizer.Sanitize(body)

	s.archive(ctx, log, meta, body)

	subject := Subject(meta.Title)
	for _, sub := range subscribers {
		msg := &wikidigest.Message{To: sub.Email, Subject: subject, HTMLBody: body}
		if err := s.Notifier.Send(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if result.Failed == nil {
				result.Failed = make(map[string]string)
			}
			result.Failed[sub.Email] = err.Error()
			result.FailedCount++
			log.Warn("delivery failed", "to", sub.Email, "err", err)
			continue
		}
		result.SentTo = append(result.SentTo, sub.Email)
		result.SentCount++
	}

	switch {
	case result.FailedCount == 0:
		result.Status = wikidigest.DigestSent
	case result.SentCount > 0:
		result.Status = wikidigest.DigestPartial
	default:
		result.Status = wikidigest.DigestFailed
	}

	log.Info("digest delivered", "status", result.Status, "sent", result.SentCount, "failed", result.FailedCount)
	return result, nil
}

// archive stores the rendered digest. Failures are logged only.
func (s *Service) archive(ctx context.Context, log *slog.Logger, meta wikidigest.PageMetadata, body string) {
	if s.Archive == nil {
		return
	}

	htmlKey := ArchiveKey(meta.PageID, meta.Version, "html")
	if _, err := s.Archive.UploadIfChanged(ctx, htmlKey, []byte(body), wikidigest.ArtifactMetadata{}); err != nil {
		log.Warn("archive failed", "key", htmlKey, "err", err)
	}

	if s.Converter == nil {
		return
	}
	md, err := s.Converter.Convert(body)
	if err != nil {
		log.Warn("markdown conversion failed", "err", err)
		return
	}
	mdKey := ArchiveKey(meta.PageID, meta.Version, "md")
	if _, err := s.Archive.UploadIfChanged(ctx, mdKey, []byte(md), wikidigest.ArtifactMetadata{}); err != nil {
		log.Warn("archive failed", "key", mdKey, "err", err)
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.DiscardHandler)
}
