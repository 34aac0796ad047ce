package chunk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fwojciec/wikidigest"
)

// EmbeddingInputMax caps the text sent to the embedder in characters.
const EmbeddingInputMax = 8000

// BuildIndexDocuments turns chunks into index documents without vectors.
func BuildIndexDocuments(meta wikidigest.PageMetadata, chunks []*wikidigest.Chunk) []*wikidigest.IndexDocument {
	docs := make([]*wikidigest.IndexDocument, 0, len(chunks))
	for _, c := range chunks {
		doc := &wikidigest.IndexDocument{
			ChunkID:      c.ID,
			PageID:       meta.PageID,
			PageTitle:    meta.Title,
			SpaceKey:     meta.SpaceKey,
			Version:      meta.Version,
			ChunkIndex:   c.Index,
			ContentType:  c.Type,
			ContentText:  c.Text,
			HasImage:     c.HasImage(),
			PageURL:      meta.URL,
			LastModified: meta.LastModified,
		}
		if doc.LastModified.IsZero() {
			doc.LastModified = meta.ExtractedAt
		}
		for _, img := range c.Images() {
			if url := imageURL(img); url != "" {
				doc.ImageURLs = append(doc.ImageURLs, url)
			}
			if img.Description != "" {
				doc.ImageDescriptions = append(doc.ImageDescriptions,
					fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(imageType(img))), imageName(img), img.Description))
			}
		}
		docs = append(docs, doc)
	}
	return docs
}

// Indexer fills index documents with embeddings and token counts.
type Indexer struct {
	Embedder wikidigest.Embedder
	Tokens   wikidigest.TokenCounter
	Logger   *slog.Logger
}

// Prepare embeds each document. A document whose embedding fails is logged
// and left out of the result; a failed token count only leaves the count
// empty.
func (x *Indexer) Prepare(ctx context.Context, docs []*wikidigest.IndexDocument) []*wikidigest.IndexDocument {
	logger := x.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	out := make([]*wikidigest.IndexDocument, 0, len(docs))
	for _, doc := range docs {
		vec, err := x.Embedder.Embed(ctx, wikidigest.Truncate(doc.ContentText, EmbeddingInputMax))
		if err != nil {
			logger.Error("embedding failed", "chunk", doc.ChunkID, "err", err)
			continue
		}
		doc.ContentVector = vec

		if x.Tokens != nil {
			n, err := x.Tokens.CountTokens(ctx, doc.ContentText)
			if err != nil {
				logger.Warn("token count failed", "chunk", doc.ChunkID, "err", err)
			} else {
				doc.TokenCount = n
			}
		}
		out = append(out, doc)
	}
	return out
}
