// Package confluence implements wikidigest.PageSource over the wiki's
// REST API.
package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/retry"
)

// Default request timeouts.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultDownloadTimeout = 60 * time.Second
)

// attachmentPageSize is the number of attachments requested per call.
const attachmentPageSize = 200

// Ensure Client implements wikidigest.PageSource at compile time.
var _ wikidigest.PageSource = (*Client)(nil)

// Client fetches pages and attachments with basic authentication.
type Client struct {
	baseURL  string
	email    string
	token    string
	client   *http.Client
	download *http.Client
	policy   retry.Policy
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the timeout for API requests.
// Defaults to DefaultTimeout (30s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithDownloadTimeout sets the timeout for attachment downloads.
// Defaults to DefaultDownloadTimeout (60s) if not specified.
func WithDownloadTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.download.Timeout = d
	}
}

// WithRetryPolicy sets how transient failures are retried.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// NewClient creates a new Client for the site at baseURL, the root that
// page URLs are built from.
func NewClient(baseURL, email, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		email:    email,
		token:    token,
		client:   &http.Client{Timeout: DefaultTimeout},
		download: &http.Client{Timeout: DefaultDownloadTimeout},
		policy:   retry.Default(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type pageResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Space struct {
		Key string `json:"key"`
	} `json:"space"`
	Version struct {
		Number int       `json:"number"`
		When   time.Time `json:"when"`
	} `json:"version"`
	History struct {
		LastUpdated struct {
			When time.Time `json:"when"`
		} `json:"lastUpdated"`
	} `json:"history"`
	Body struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}

type attachmentResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Version struct {
			Number int `json:"number"`
		} `json:"version"`
		Extensions struct {
			FileSize  int64  `json:"fileSize"`
			MediaType string `json:"mediaType"`
		} `json:"extensions"`
		Metadata struct {
			MediaType string `json:"mediaType"`
		} `json:"metadata"`
		Links struct {
			Download string `json:"download"`
		} `json:"_links"`
	} `json:"results"`
	Links struct {
		Next string `json:"next"`
	} `json:"_links"`
}

// FetchPage returns a page with its storage body and attachment list.
func (c *Client) FetchPage(ctx context.Context, pageID string) (*wikidigest.Page, error) {
	if pageID == "" {
		return nil, wikidigest.Errorf(wikidigest.EINVALID, "page id required")
	}

	var resp pageResponse
	path := "/rest/api/content/" + url.PathEscape(pageID) + "?expand=body.storage,version,space,history.lastUpdated"
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}

	page := &wikidigest.Page{
		ID:           resp.ID,
		Title:        resp.Title,
		SpaceKey:     resp.Space.Key,
		Version:      max(resp.Version.Number, 1),
		LastModified: resp.History.LastUpdated.When,
		Body:         resp.Body.Storage.Value,
	}
	if page.LastModified.IsZero() {
		page.LastModified = resp.Version.When
	}
	if page.ID == "" {
		page.ID = pageID
	}
	if page.Title == "" {
		page.Title = "Untitled"
	}

	attachments, err := c.attachments(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	page.Attachments = attachments

	return page, nil
}

func (c *Client) attachments(ctx context.Context, pageID string) ([]wikidigest.Attachment, error) {
	var out []wikidigest.Attachment
	next := fmt.Sprintf("/rest/api/content/%s/child/attachment?expand=version,metadata&limit=%d", url.PathEscape(pageID), attachmentPageSize)

	for next != "" {
		var resp attachmentResponse
		if err := c.getJSON(ctx, next, &resp); err != nil {
			return nil, err
		}
		for _, r := range resp.Results {
			mediaType := r.Metadata.MediaType
			if mediaType == "" {
				mediaType = r.Extensions.MediaType
			}
			out = append(out, wikidigest.Attachment{
				Filename:    r.Title,
				Version:     max(r.Version.Number, 1),
				Size:        r.Extensions.FileSize,
				MediaType:   mediaType,
				DownloadRef: r.Links.Download,
			})
		}
		next = strings.TrimPrefix(resp.Links.Next, "/wiki")
	}
	return out, nil
}

// DownloadAttachment returns the bytes of an attachment.
func (c *Client) DownloadAttachment(ctx context.Context, att wikidigest.Attachment) ([]byte, error) {
	if att.DownloadRef == "" {
		return nil, wikidigest.Errorf(wikidigest.EINVALID, "attachment %q has no download link", att.Filename)
	}
	return retry.Do(ctx, c.policy, "download "+att.Filename, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, c.download, c.apiURL(att.DownloadRef))
	})
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	body, err := retry.Do(ctx, c.policy, path, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, c.client, c.apiURL(path))
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, client *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.email, c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, wikidigest.Errorf(wikidigest.EUNAVAILABLE, "GET %s: %v", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, wikidigest.Errorf(wikidigest.StatusCode(resp.StatusCode), "HTTP %d for %s", resp.StatusCode, u)
	}
	return io.ReadAll(resp.Body)
}

// apiURL resolves a REST path or a download link below the site's /wiki root.
func (c *Client) apiURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/wiki" + path
}
