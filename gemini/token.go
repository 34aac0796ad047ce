package gemini

import (
	"context"
	"sync"

	"github.com/fwojciec/wikidigest"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

var _ wikidigest.TokenCounter = (*TokenCounter)(nil)

// TokenCounter counts chunk tokens locally with the Gemini tokenizer.
// The tokenizer model is loaded on the first count, and a load failure is
// returned by every later count.
type TokenCounter struct {
	model string

	once sync.Once
	tok  *tokenizer.LocalTokenizer
	err  error
}

// NewTokenCounter returns a counter for model. An empty model selects
// DefaultTokenizerModel.
func NewTokenCounter(model string) *TokenCounter {
	if model == "" {
		model = DefaultTokenizerModel
	}
	return &TokenCounter{model: model}
}

// Model returns the tokenizer model name.
func (tc *TokenCounter) Model() string { return tc.model }

func (tc *TokenCounter) load() (*tokenizer.LocalTokenizer, error) {
	tc.once.Do(func() {
		tc.tok, tc.err = tokenizer.NewLocalTokenizer(tc.model)
		if tc.err != nil {
			tc.err = wikidigest.Errorf(wikidigest.EUNAVAILABLE, "load tokenizer for %s: %v", tc.model, tc.err)
		}
	})
	return tc.tok, tc.err
}

// CountTokens counts the tokens of text as a single user turn.
func (tc *TokenCounter) CountTokens(_ context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	tok, err := tc.load()
	if err != nil {
		return 0, err
	}
	result, err := tok.CountTokens([]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		return 0, wikidigest.Errorf(wikidigest.EINTERNAL, "count tokens: %v", err)
	}
	return int(result.TotalTokens), nil
}
