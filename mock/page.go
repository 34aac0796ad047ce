package mock

import (
	"context"

	"github.com/fwojciec/wikidigest"
)

var _ wikidigest.PageSource = (*PageSource)(nil)

// PageSource is a mock implementation of wikidigest.PageSource.
type PageSource struct {
	FetchPageFn          func(ctx context.Context, pageID string) (*wikidigest.Page, error)
	DownloadAttachmentFn func(ctx context.Context, att wikidigest.Attachment) ([]byte, error)
}

func (s *PageSource) FetchPage(ctx context.Context, pageID string) (*wikidigest.Page, error) {
	return s.FetchPageFn(ctx, pageID)
}

func (s *PageSource) DownloadAttachment(ctx context.Context, att wikidigest.Attachment) ([]byte, error) {
	return s.DownloadAttachmentFn(ctx, att)
}

var _ wikidigest.Downloader = (*Downloader)(nil)

// Downloader is a mock implementation of wikidigest.Downloader.
type Downloader struct {
	DownloadFn func(ctx context.Context, url string) ([]byte, error)
}

func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	return d.DownloadFn(ctx, url)
}
