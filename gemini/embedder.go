package gemini

import (
	"context"
	"time"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/retry"
	"google.golang.org/genai"
)

// DefaultEmbedInterval spaces consecutive embedding calls.
const DefaultEmbedInterval = 500 * time.Millisecond

// EmbedRetryDelays returns the waits between embedding attempts.
func EmbedRetryDelays() []time.Duration {
	return []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second}
}

// Ensure Embedder implements wikidigest.Embedder at compile time.
var _ wikidigest.Embedder = (*Embedder)(nil)

// Embedder turns text into EmbeddingDimensions-long vectors.
type Embedder struct {
	client *genai.Client
	model  string
	policy retry.Policy
	pacer  *retry.Pacer
}

// NewEmbedder creates a new Embedder. A nil pacer disables spacing.
func NewEmbedder(client *genai.Client, model string, policy retry.Policy, pacer *retry.Pacer) *Embedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{client: client, model: model, policy: policy, pacer: pacer}
}

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, wikidigest.Errorf(wikidigest.EINVALID, "text required")
	}

	dims := int32(EmbeddingDimensions)
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	config := &genai.EmbedContentConfig{OutputDimensionality: &dims}

	return retry.Do(ctx, e.policy, "embed", func(ctx context.Context) ([]float32, error) {
		if err := e.pacer.Wait(ctx, "embed"); err != nil {
			return nil, err
		}
		result, err := e.client.Models.EmbedContent(ctx, e.model, contents, config)
		if err != nil {
			return nil, apiError(err)
		}
		if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
			return nil, wikidigest.Errorf(wikidigest.EINTERNAL, "gemini returned no embedding")
		}
		return result.Embeddings[0].Values, nil
	})
}
