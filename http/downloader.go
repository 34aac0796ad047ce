// Package http provides HTTP implementations of wikidigest.Downloader for
// externally hosted images and wikidigest.Notifier for the email relay.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/wikidigest"
)

// DefaultDownloadTimeout is the default timeout for image downloads.
const DefaultDownloadTimeout = 30 * time.Second

// MaxDownloadSize caps the bytes read from a single download.
const MaxDownloadSize = 50 << 20

// Ensure Downloader implements wikidigest.Downloader at compile time.
var _ wikidigest.Downloader = (*Downloader)(nil)

// Downloader retrieves external images with plain GET requests.
type Downloader struct {
	client *http.Client
}

// Option configures a Downloader or a Notifier.
type Option func(*options)

type options struct {
	timeout time.Duration
	delays  []time.Duration
}

// WithTimeout sets the timeout for each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithRetryDelays sets the waits between notifier attempts.
// Defaults to 1s, 2s, 4s.
func WithRetryDelays(delays []time.Duration) Option {
	return func(o *options) {
		o.delays = delays
	}
}

// NewDownloader creates a new Downloader.
func NewDownloader(opts ...Option) *Downloader {
	o := options{timeout: DefaultDownloadTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &Downloader{client: &http.Client{Timeout: o.timeout}}
}

// Download returns the body of url.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, wikidigest.Errorf(wikidigest.EINVALID, "invalid url %q", url)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, wikidigest.Errorf(wikidigest.StatusCode(resp.StatusCode), "HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxDownloadSize {
		return nil, fmt.Errorf("download %s: larger than %d bytes", url, MaxDownloadSize)
	}
	return body, nil
}
