package mock

import (
	"context"

	"github.com/fwojciec/wikidigest"
)

var _ wikidigest.Notifier = (*Notifier)(nil)

// Notifier is a mock implementation of wikidigest.Notifier.
type Notifier struct {
	SendFn func(ctx context.Context, msg *wikidigest.Message) error
}

func (n *Notifier) Send(ctx context.Context, msg *wikidigest.Message) error {
	return n.SendFn(ctx, msg)
}

var _ wikidigest.DigestWriter = (*DigestWriter)(nil)

// DigestWriter is a mock implementation of wikidigest.DigestWriter.
type DigestWriter struct {
	WriteDigestFn func(ctx context.Context, req wikidigest.DigestRequest) (string, error)
}

func (w *DigestWriter) WriteDigest(ctx context.Context, req wikidigest.DigestRequest) (string, error) {
	return w.WriteDigestFn(ctx, req)
}

var _ wikidigest.DigestService = (*DigestService)(nil)

// DigestService is a mock implementation of wikidigest.DigestService.
type DigestService struct {
	SendDigestFn func(ctx context.Context, meta wikidigest.PageMetadata) (*wikidigest.DigestResult, error)
}

func (s *DigestService) SendDigest(ctx context.Context, meta wikidigest.PageMetadata) (*wikidigest.DigestResult, error) {
	return s.SendDigestFn(ctx, meta)
}

var _ wikidigest.Sanitizer = (*Sanitizer)(nil)

// Sanitizer is a mock implementation of wikidigest.Sanitizer.
type Sanitizer struct {
	SanitizeFn func(html string) string
}

func (s *Sanitizer) Sanitize(html string) string {
	return s.SanitizeFn(html)
}
