package wikidigest

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Page is a wiki page as returned by the markup source.
type Page struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	SpaceKey     string       `json:"spaceKey"`
	Version      int          `json:"version"`
	LastModified time.Time    `json:"lastModified"`
	Body         string       `json:"body"`
	Attachments  []Attachment `json:"attachments,omitempty"`
}

// Attachment describes a file attached to a page.
type Attachment struct {
	Filename    string `json:"filename"`
	Version     int    `json:"version"`
	Size        int64  `json:"size"`
	MediaType   string `json:"mediaType,omitempty"`
	DownloadRef string `json:"downloadRef"`
}

// Attachment returns the attachment with the given file name.
func (p *Page) Attachment(filename string) (Attachment, bool) {
	for _, a := range p.Attachments {
		if a.Filename == filename {
			return a, true
		}
	}
	return Attachment{}, false
}

// PageSource fetches pages and their attachments from the wiki.
type PageSource interface {
	// FetchPage returns the page with its storage markup and attachment list.
	// Returns ENOTFOUND if the page does not exist.
	FetchPage(ctx context.Context, pageID string) (*Page, error)

	// DownloadAttachment returns the bytes of an attachment.
	DownloadAttachment(ctx context.Context, att Attachment) ([]byte, error)
}

// Downloader fetches externally hosted binary content.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// PageMetadata describes an extracted page document.
type PageMetadata struct {
	PageID        string    `json:"pageId"`
	Title         string    `json:"title"`
	SpaceKey      string    `json:"spaceKey"`
	SourceVersion int       `json:"sourceVersion"`
	Version       int       `json:"version"`
	LastModified  time.Time `json:"lastModified"`
	URL           string    `json:"url"`
	ExtractedAt   time.Time `json:"extractedAt"`
	TotalBlocks   int       `json:"totalBlocks"`
	ImageCount    int       `json:"imageCount"`
	ChangeSummary string    `json:"changeSummary,omitempty"`
}

// PageDocument is the parsed form of a page, persisted per version.
type PageDocument struct {
	Metadata PageMetadata   `json:"metadata"`
	Blocks   []ContentBlock `json:"contentBlocks"`
}

// PageURL returns the browser URL of a page.
func PageURL(baseURL, spaceKey, pageID string) string {
	return fmt.Sprintf("%s/wiki/spaces/%s/pages/%s", strings.TrimRight(baseURL, "/"), spaceKey, pageID)
}

// PageBasePath returns the storage prefix that holds every artifact of a page.
func PageBasePath(spaceKey, title, pageID string) string {
	return fmt.Sprintf("%s/%s_%s", spaceKey, SanitizeName(title), pageID)
}

// NewPageDocument assembles the stored document of one extracted page version.
func NewPageDocument(page *Page, baseURL string, version int, blocks []ContentBlock, extractedAt time.Time) *PageDocument {
	return &PageDocument{
		Metadata: PageMetadata{
			PageID:        page.ID,
			Title:         page.Title,
			SpaceKey:      page.SpaceKey,
			SourceVersion: page.Version,
			Version:       version,
			LastModified:  page.LastModified,
			URL:           PageURL(baseURL, page.SpaceKey, page.ID),
			ExtractedAt:   extractedAt,
			TotalBlocks:   len(blocks),
			ImageCount:    len(Images(blocks)),
		},
		Blocks: blocks,
	}
}
