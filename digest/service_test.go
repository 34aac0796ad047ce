package digest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/cache"
	"github.com/fwojciec/wikidigest/digest"
	"github.com/fwojciec/wikidigest/fs"
	"github.com/fwojciec/wikidigest/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var meta = wikidigest.PageMetadata{
	PageID:        "42",
	Title:         "Release Process",
	Version:       3,
	URL:           "https://wiki.example.com/wiki/spaces/ENG/pages/42",
	ChangeSummary: "NEW SECTION: Rollback",
}

// fixture wires a Service to mocks that succeed; tests override fields.
type fixture struct {
	service *digest.Service
	mu      sync.Mutex
	sent    []*wikidigest.Message
	request wikidigest.DigestRequest
}

func newFixture(t *testing.T, emails ...string) *fixture {
	t.Helper()
	f := &fixture{}

	var subs []*wikidigest.Subscriber
	for _, e := range emails {
		subs = append(subs, &wikidigest.Subscriber{Email: e})
	}

	f.service = &digest.Service{
		Index: &mock.SearchIndex{
			QueryPageFn: func(_ context.Context, pageID string) ([]*wikidigest.IndexDocument, error) {
				return []*wikidigest.IndexDocument{
					{ChunkID: pageID + "_v3_section_000", ContentText: "# Release Process\nShip on Tuesday."},
					{ChunkID: pageID + "_v3_section_001", ContentText: "## Rollback\nRevert the tag."},
				}, nil
			},
		},
		Writer: &mock.DigestWriter{
			WriteDigestFn: func(_ context.Context, req wikidigest.DigestRequest) (string, error) {
				f.request = req
				return "Overview:\n• Releases ship on Tuesday", nil
			},
		},
		Subscribers: &mock.SubscriberService{
			FindSubscribersForPageFn: func(_ context.Context, pageID string) ([]*wikidigest.Subscriber, error) {
				return subs, nil
			},
		},
		Notifier: &mock.Notifier{
			SendFn: func(_ context.Context, msg *wikidigest.Message) error {
				f.mu.Lock()
				defer f.mu.Unlock()
				f.sent = append(f.sent, msg)
				return nil
			},
		},
		Sanitizer: &mock.Sanitizer{SanitizeFn: func(html string) string { return html }},
		Now:       func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
	return f
}

func TestService_SendDigest(t *testing.T) {
	t.Parallel()

	t.Run("sends to every subscriber", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, "ana@example.com", "bo@example.com")

		result, err := f.service.SendDigest(context.Background(), meta)

		require.NoError(t, err)
		assert.Equal(t, wikidigest.DigestSent, result.Status)
		assert.Equal(t, 2, result.SentCount)
		assert.Equal(t, []string{"ana@example.com", "bo@example.com"}, result.SentTo)
		assert.Equal(t, 2, result.ChunksCount)
		assert.Equal(t, "Overview:\n• Releases ship on Tuesday", result.Summary)

		require.Len(t, f.sent, 2)
		assert.Equal(t, "Wiki Update: Release Process", f.sent[0].Subject)
		assert.Contains(t, f.sent[0].HTMLBody, "Releases ship on Tuesday")
		assert.Equal(t, "NEW SECTION: Rollback", f.request.ChangeSummary)
		assert.Len(t, f.request.Chunks, 2)
	})

	t.Run("nobody subscribed skips generation", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.service.Writer = &mock.DigestWriter{
			WriteDigestFn: func(context.Context, wikidigest.DigestRequest) (string, error) {
				t.Fatal("writer must not be called")
				return "", nil
			},
		}

		result, err := f.service.SendDigest(context.Background(), meta)

		require.NoError(t, err)
		assert.Equal(t, wikidigest.DigestNoSubscribers, result.Status)
		assert.Empty(t, f.sent)
	})

	t.Run("partial delivery", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, "ana@example.com", "bounce@example.com")
		f.service.Notifier = &mock.Notifier{
			SendFn: func(_ context.Context, msg *wikidigest.Message) error {
				if msg.To == "bounce@example.com" {
					return wikidigest.Errorf(wikidigest.EINVALID, "relay rejected recipient")
				}
				return nil
			},
		}

		result, err := f.service.SendDigest(context.Background(), meta)

		require.NoError(t, err)
		assert.Equal(t, wikidigest.DigestPartial, result.Status)
		assert.Equal(t, 1, result.SentCount)
		assert.Equal(t, 1, result.FailedCount)
		assert.Contains(t, result.Failed["bounce@example.com"], "relay rejected recipient")
	})

	t.Run("every delivery failed", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, "ana@example.com")
		f.service.Notifier = &mock.Notifier{
			SendFn: func(context.Context, *wikidigest.Message) error {
				return wikidigest.Errorf(wikidigest.EUNAVAILABLE, "relay down")
			},
		}

		result, err := f.service.SendDigest(context.Background(), meta)

		require.NoError(t, err)
		assert.Equal(t, wikidigest.DigestFailed, result.Status)
		assert.Empty(t, result.SentTo)
	})

	t.Run("writer failure sends the fallback summary", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, "ana@example.com")
		f.service.Writer = &mock.DigestWriter{
			WriteDigestFn: func(context.Context, wikidigest.DigestRequest) (string, error) {
				return "", errors.New("model overloaded")
			},
		}

		result, err := f.service.SendDigest(context.Background(), meta)

		require.NoError(t, err)
		assert.Equal(t, digest.FallbackSummary, result.Summary)
		assert.Equal(t, wikidigest.DigestSent, result.Status)
	})

	t.Run("no indexed content is not found", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, "ana@example.com")
		f.service.Index = &mock.SearchIndex{
			QueryPageFn: func(context.Context, string) ([]*wikidigest.IndexDocument, error) {
				return nil, nil
			},
		}

		_, err := f.service.SendDigest(context.Background(), meta)

		assert.Equal(t, wikidigest.ENOTFOUND, wikidigest.ErrorCode(err))
		assert.Empty(t, f.sent)
	})

	t.Run("sanitizes the body", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, "ana@example.com")
		f.service.Sanitizer = &mock.Sanitizer{SanitizeFn: func(string) string { return "<p>clean</p>" }}

		_, err := f.service.SendDigest(context.Background(), meta)

		require.NoError(t, err)
		assert.Equal(t, "<p>clean</p>", f.sent[0].HTMLBody)
	})

	t.Run("archives html and markdown", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		f := newFixture(t, "ana@example.com")
		f.service.Archive = cache.NewStore(fs.NewBlobStore(dir, ""), nil)
		f.service.Converter = &mock.Converter{ConvertFn: func(string) (string, error) { return "# Release Process\n", nil }}

		_, err := f.service.SendDigest(context.Background(), meta)

		require.NoError(t, err)
		html, err := os.ReadFile(filepath.Join(dir, "emails", "42_v3.html"))
		require.NoError(t, err)
		assert.Equal(t, f.sent[0].HTMLBody, string(html))

		md, err := os.ReadFile(filepath.Join(dir, "emails", "42_v3.md"))
		require.NoError(t, err)
		assert.Equal(t, "# Release Process\n", string(md))
	})

	t.Run("subscriber lookup failure is returned", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.service.Subscribers = &mock.SubscriberService{
			FindSubscribersForPageFn: func(context.Context, string) ([]*wikidigest.Subscriber, error) {
				return nil, errors.New("database is locked")
			},
		}

		_, err := f.service.SendDigest(context.Background(), meta)

		assert.ErrorContains(t, err, "database is locked")
	})
}

func TestArchiveKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "emails/42_v3.md", digest.ArchiveKey("42", 3, "md"))
}
