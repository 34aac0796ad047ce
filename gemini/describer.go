package gemini

import (
	"context"
	"strings"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/retry"
	"google.golang.org/genai"
)

// describeMaxTokens caps the length of one description.
const describeMaxTokens = 1500

// Ensure Describer implements wikidigest.Describer at compile time.
var _ wikidigest.Describer = (*Describer)(nil)

// Describer describes images with a multimodal Gemini model.
type Describer struct {
	client *genai.Client
	model  string
	policy retry.Policy
}

// NewDescriber creates a new Describer.
func NewDescriber(client *genai.Client, model string, policy retry.Policy) *Describer {
	if model == "" {
		model = DefaultModel
	}
	return &Describer{client: client, model: model, policy: policy}
}

// Describe sends the image bytes, or its URL when no bytes are given,
// with a prompt chosen by the image type.
func (d *Describer) Describe(ctx context.Context, req wikidigest.DescribeRequest) (*wikidigest.Description, error) {
	var image *genai.Part
	switch {
	case len(req.Data) > 0:
		mediaType := req.MediaType
		if mediaType == "" || !strings.HasPrefix(mediaType, "image/") {
			mediaType = wikidigest.ContentType(req.Filename)
		}
		image = genai.NewPartFromBytes(req.Data, mediaType)
	case req.URL != "":
		image = genai.NewPartFromURI(req.URL, wikidigest.ContentType(req.URL))
	default:
		return nil, wikidigest.Errorf(wikidigest.EINVALID, "image %q has neither bytes nor URL", req.Filename)
	}

	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: DescribePrompt(req.ImageType, req.Context)}, image},
	}}
	temp := float32(0.2)
	config := &genai.GenerateContentConfig{Temperature: &temp, MaxOutputTokens: describeMaxTokens}

	result, err := retry.Do(ctx, d.policy, "describe "+req.Filename, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		result, err := d.client.Models.GenerateContent(ctx, d.model, contents, config)
		return result, apiError(err)
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, wikidigest.Errorf(wikidigest.EINTERNAL, "gemini returned nil result")
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return nil, wikidigest.Errorf(wikidigest.EINTERNAL, "gemini returned an empty description")
	}

	desc := &wikidigest.Description{Text: text}
	if result.UsageMetadata != nil {
		desc.TokenCount = int(result.UsageMetadata.TotalTokenCount)
	}
	return desc, nil
}
