package wikidigest

import (
	"context"
	"time"
)

// Message is one email handed to the notification relay.
type Message struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"body"`
}

// Notifier delivers messages.
type Notifier interface {
	Send(ctx context.Context, msg *Message) error
}

// DigestRequest is the input for writing a change digest.
type DigestRequest struct {
	PageTitle     string
	PageURL       string
	Version       int
	ChangeSummary string
	Chunks        []*IndexDocument
}

// DigestWriter writes a short human summary of a page change.
type DigestWriter interface {
	WriteDigest(ctx context.Context, req DigestRequest) (string, error)
}

// Sanitizer strips unsafe markup from generated HTML.
type Sanitizer interface {
	Sanitize(html string) string
}

// Converter converts HTML to Markdown.
type Converter interface {
	Convert(html string) (string, error)
}

// Digest status values.
const (
	DigestSent          = "sent"
	DigestPartial       = "partial"
	DigestFailed        = "failed"
	DigestNoSubscribers = "no_subscribers"
)

// DigestResult reports the delivery of one digest.
type DigestResult struct {
	PageID      string            `json:"pageId"`
	Version     int               `json:"version"`
	Status      string            `json:"status"`
	Summary     string            `json:"summary"`
	SentCount   int               `json:"sentCount"`
	FailedCount int               `json:"failedCount"`
	SentTo      []string          `json:"sentTo"`
	Failed      map[string]string `json:"failed,omitempty"`
	GeneratedAt time.Time         `json:"generatedAt"`
	ChunksCount int               `json:"chunksCount"`
}

// DigestService builds and delivers the digest of one page change.
type DigestService interface {
	SendDigest(ctx context.Context, meta PageMetadata) (*DigestResult, error)
}
