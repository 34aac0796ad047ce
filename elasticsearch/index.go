// Package elasticsearch implements wikidigest.SearchIndex on Elasticsearch.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/retry"
)

// Defaults for bulk writes.
const (
	DefaultIndex         = "wiki-pages"
	DefaultBatchSize     = 50
	DefaultBatchInterval = 2 * time.Second
)

// maxPageChunks bounds the documents returned for one page.
const maxPageChunks = 1000

// DefaultBulkDelays returns the waits between attempts of a rate limited batch.
func DefaultBulkDelays() []time.Duration {
	return []time.Duration{5 * time.Second, 10 * time.Second}
}

// Ensure SearchIndex implements wikidigest.SearchIndex at compile time.
var _ wikidigest.SearchIndex = (*SearchIndex)(nil)

// NewClient creates an Elasticsearch client. apiKey may be empty.
func NewClient(address, apiKey string) (*es.Client, error) {
	if address == "" {
		return nil, wikidigest.Errorf(wikidigest.EINVALID, "elasticsearch address required")
	}
	client, err := es.NewClient(es.Config{
		Addresses: []string{address},
		APIKey:    apiKey,
	})
	if err != nil {
		return nil, wikidigest.Errorf(wikidigest.EINVALID, "elasticsearch client: %v", err)
	}
	return client, nil
}

// SearchIndex stores chunk documents in one Elasticsearch index.
type SearchIndex struct {
	client    *es.Client
	index     string
	batchSize int
	pacer     *retry.Pacer
	policy    retry.Policy
}

// Option configures a SearchIndex.
type Option func(*SearchIndex)

// WithBatchSize sets the number of documents per bulk request.
func WithBatchSize(n int) Option {
	return func(s *SearchIndex) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithBatchInterval sets the minimum spacing between bulk requests.
func WithBatchInterval(d time.Duration) Option {
	return func(s *SearchIndex) {
		s.pacer = retry.NewPacer(d)
	}
}

// WithRetryDelays sets the waits between attempts of a rate limited batch.
func WithRetryDelays(delays []time.Duration) Option {
	return func(s *SearchIndex) {
		s.policy.Delays = delays
	}
}

// WithLogger sets the logger used for retries.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SearchIndex) {
		s.policy.Logger = logger
	}
}

// NewSearchIndex creates a new SearchIndex writing to index.
func NewSearchIndex(client *es.Client, index string, opts ...Option) *SearchIndex {
	if index == "" {
		index = DefaultIndex
	}
	s := &SearchIndex{
		client:    client,
		index:     index,
		batchSize: DefaultBatchSize,
		pacer:     retry.NewPacer(DefaultBatchInterval),
		policy: retry.Policy{
			Delays: DefaultBulkDelays(),
			Retryable: func(err error) bool {
				return wikidigest.ErrorCode(err) == wikidigest.EUNAVAILABLE
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// indexMapping is the mapping created by EnsureIndex.
const indexMapping = `{
  "mappings": {
    "properties": {
      "chunk_id":           {"type": "keyword"},
      "page_id":            {"type": "keyword"},
      "page_title":         {"type": "text"},
      "space_key":          {"type": "keyword"},
      "version":            {"type": "integer"},
      "chunk_index":        {"type": "integer"},
      "content_type":       {"type": "keyword"},
      "content_text":       {"type": "text"},
      "content_vector":     {"type": "dense_vector", "dims": 1536, "index": true, "similarity": "cosine"},
      "has_image":          {"type": "boolean"},
      "image_urls":         {"type": "keyword"},
      "image_descriptions": {"type": "text"},
      "page_url":           {"type": "keyword"},
      "last_modified":      {"type": "date"},
      "token_count":        {"type": "integer"}
    }
  }
}`

// EnsureIndex creates the index with its mapping when it does not exist.
func (s *SearchIndex) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return transportError(ctx, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return transportError(ctx, err)
	}
	defer res.Body.Close()
	return responseError(res, "create index "+s.index)
}

// Upsert writes docs in bulk batches, replacing documents with the same
// chunk ID. Batches are spaced by the batch interval; a rate limited batch
// is retried.
func (s *SearchIndex) Upsert(ctx context.Context, docs []*wikidigest.IndexDocument) error {
	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))

		body, err := bulkBody(docs[start:end])
		if err != nil {
			return err
		}

		if err := s.pacer.Wait(ctx, "bulk"); err != nil {
			return err
		}

		_, err = retry.Do(ctx, s.policy, "bulk", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.bulk(ctx, body)
		})
		if err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func bulkBody(docs []*wikidigest.IndexDocument) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		if doc.ChunkID == "" {
			return nil, wikidigest.Errorf(wikidigest.EINVALID, "document without chunk id")
		}
		if err := enc.Encode(map[string]any{"index": map[string]any{"_id": doc.ChunkID}}); err != nil {
			return nil, err
		}
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

func (s *SearchIndex) bulk(ctx context.Context, body []byte) error {
	res, err := s.client.Bulk(
		bytes.NewReader(body),
		s.client.Bulk.WithContext(ctx),
		s.client.Bulk.WithIndex(s.index),
		s.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return transportError(ctx, err)
	}
	defer res.Body.Close()

	if err := responseError(res, "bulk"); err != nil {
		return err
	}

	var result bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return wikidigest.Errorf(wikidigest.EINTERNAL, "decode bulk response: %v", err)
	}
	if !result.Errors {
		return nil
	}

	var failed, throttled int
	var first string
	for _, item := range result.Items {
		for _, r := range item {
			if r.Status < 300 {
				continue
			}
			failed++
			if r.Status == http.StatusTooManyRequests {
				throttled++
			}
			if first == "" && r.Error != nil {
				first = fmt.Sprintf("%s: %s: %s", r.ID, r.Error.Type, r.Error.Reason)
			}
		}
	}
	if failed == 0 {
		return nil
	}
	code := wikidigest.EINTERNAL
	if throttled == failed {
		code = wikidigest.EUNAVAILABLE
	}
	return wikidigest.Errorf(code, "bulk: %d documents failed (first: %s)", failed, first)
}

// DeletePage removes every document of pageID. A missing index is not an
// error.
func (s *SearchIndex) DeletePage(ctx context.Context, pageID string) error {
	if pageID == "" {
		return wikidigest.Errorf(wikidigest.EINVALID, "page id required")
	}

	body, err := json.Marshal(pageQuery(pageID))
	if err != nil {
		return err
	}

	res, err := s.client.DeleteByQuery(
		[]string{s.index},
		bytes.NewReader(body),
		s.client.DeleteByQuery.WithContext(ctx),
		s.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return transportError(ctx, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return responseError(res, "delete page "+pageID)
}

// QueryPage returns the documents of pageID ordered by chunk index.
func (s *SearchIndex) QueryPage(ctx context.Context, pageID string) ([]*wikidigest.IndexDocument, error) {
	if pageID == "" {
		return nil, wikidigest.Errorf(wikidigest.EINVALID, "page id required")
	}

	query := pageQuery(pageID)
	query["size"] = maxPageChunks
	query["sort"] = []map[string]any{{"chunk_index": map[string]any{"order": "asc"}}}
	query["_source"] = map[string]any{"excludes": []string{"content_vector"}}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return []*wikidigest.IndexDocument{}, nil
	}
	if err := responseError(res, "query page "+pageID); err != nil {
		return nil, err
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source wikidigest.IndexDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, wikidigest.Errorf(wikidigest.EINTERNAL, "decode search response: %v", err)
	}

	docs := make([]*wikidigest.IndexDocument, 0, len(result.Hits.Hits))
	for i := range result.Hits.Hits {
		docs = append(docs, &result.Hits.Hits[i].Source)
	}
	return docs, nil
}

func pageQuery(pageID string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"term": map[string]any{"page_id": pageID},
		},
	}
}

func responseError(res *esapi.Response, op string) error {
	if !res.IsError() {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return wikidigest.Errorf(wikidigest.StatusCode(res.StatusCode), "%s: %d %s", op, res.StatusCode, bytes.TrimSpace(msg))
}

func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return wikidigest.Errorf(wikidigest.EUNAVAILABLE, "elasticsearch: %v", err)
}
