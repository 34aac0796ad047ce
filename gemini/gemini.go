// Package gemini implements the model-backed services on Google Gemini:
// image descriptions, embeddings, digest text and token counting.
package gemini

import (
	"context"
	"errors"

	"github.com/fwojciec/wikidigest"
	"google.golang.org/genai"
)

// Default models.
const (
	DefaultModel          = "gemini-2.5-flash"
	DefaultEmbeddingModel = "gemini-embedding-001"
	DefaultTokenizerModel = "gemini-2.5-flash"
)

// EmbeddingDimensions is the size of every embedding vector.
const EmbeddingDimensions = 1536

// NewClient connects to the Gemini API. baseURL overrides the endpoint and
// may be empty.
func NewClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, wikidigest.Errorf(wikidigest.EINVALID, "gemini API key required")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
}

// apiError maps a Gemini API error to an application error so that rate
// limits and server errors are retried.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	var e genai.APIError
	if errors.As(err, &e) {
		return wikidigest.Errorf(wikidigest.StatusCode(e.Code), "gemini: %d %s", e.Code, e.Message)
	}
	var pe *genai.APIError
	if errors.As(err, &pe) {
		return wikidigest.Errorf(wikidigest.StatusCode(pe.Code), "gemini: %d %s", pe.Code, pe.Message)
	}
	return err
}
