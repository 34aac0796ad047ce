package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/retry"
	"google.golang.org/genai"
)

// Context limits per item.
const (
	maxImageContext = 2500
	maxTextContext  = 1500
)

// Ensure DigestWriter implements wikidigest.DigestWriter at compile time.
var _ wikidigest.DigestWriter = (*DigestWriter)(nil)

// DigestWriter writes change digests with a Gemini model, grounded on the
// page's indexed chunks.
type DigestWriter struct {
	client *genai.Client
	model  string
	policy retry.Policy
}

// NewDigestWriter creates a new DigestWriter.
func NewDigestWriter(client *genai.Client, model string, policy retry.Policy) *DigestWriter {
	if model == "" {
		model = DefaultModel
	}
	return &DigestWriter{client: client, model: model, policy: policy}
}

// WriteDigest returns the digest text for req.
func (w *DigestWriter) WriteDigest(ctx context.Context, req wikidigest.DigestRequest) (string, error) {
	if req.PageTitle == "" {
		return "", wikidigest.Errorf(wikidigest.EINVALID, "page title required")
	}

	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: BuildDigestPrompt(req)}},
	}}

	result, err := retry.Do(ctx, w.policy, "digest "+req.PageTitle, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		result, err := w.client.Models.GenerateContent(ctx, w.model, contents, BuildDigestConfig())
		return result, apiError(err)
	})
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", wikidigest.Errorf(wikidigest.EINTERNAL, "gemini returned nil result")
	}

	return CleanDigest(result.Text()), nil
}

// BuildDigestConfig returns the generation config for digests.
func BuildDigestConfig() *genai.GenerateContentConfig {
	temp := float32(0.3)
	return &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: 2000,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: digestSystemPrompt}},
		},
	}
}

const digestSystemPrompt = `You write complete executive summaries of wiki pages for a mixed audience of engineers and managers.

Rules:
1. Summarize every image section you are given. Tables and responsibility matrices list every role assignment, flowcharts list every step, screenshots name the tool and the key data shown.
2. Include all text content, including notes and side remarks. The reader decides what is relevant.
3. Never invent information. Use only what the content states.
4. Explain what things mean, not how they look.
5. Use plain text with single-level bullets (•). No markdown.`

// BuildDigestPrompt assembles the user prompt: image descriptions first,
// then the text of every chunk.
func BuildDigestPrompt(req wikidigest.DigestRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Page Title: %s\n", req.PageTitle)
	if req.ChangeSummary != "" {
		fmt.Fprintf(&sb, "What changed: %s\n", req.ChangeSummary)
	}
	sb.WriteString("\n")

	var images []string
	for _, doc := range req.Chunks {
		if doc.HasImage {
			images = append(images, doc.ImageDescriptions...)
		}
	}
	if len(images) > 0 {
		sb.WriteString("=== VISUAL CONTENT ===\n")
		for i, desc := range images {
			fmt.Fprintf(&sb, "\nIMAGE %d:\n%s\n", i+1, wikidigest.Truncate(desc, maxImageContext))
		}
		sb.WriteString("\n=== END VISUAL CONTENT ===\n\n")
	}

	sb.WriteString("=== TEXT CONTENT ===\n")
	for _, doc := range req.Chunks {
		text := strings.TrimSpace(stripImageSections(doc.ContentText))
		if text != "" {
			sb.WriteString(wikidigest.Truncate(text, maxTextContext))
			sb.WriteString("\n\n")
		}
	}

	sb.WriteString(`Write a digest with these parts:

Overview:
Two or three sentences on what the page is about.

Key Content:
One bullet per image and per topic of the text.

For Technical Teams:
Processes, responsibilities, steps and procedures.

For Managers:
Business relevance, ownership and decision points.

If the page has little content, say so.`)
	return sb.String()
}

// stripImageSections drops inline image descriptions from chunk text; they
// are already part of the visual content. A skipped description ends at the
// next heading.
func stripImageSections(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	skipping := false
	for _, line := range lines {
		if strings.Contains(line, "📷 IMAGE") {
			skipping = true
			continue
		}
		if skipping && strings.HasPrefix(strings.TrimSpace(line), "#") {
			skipping = false
		}
		if !skipping {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

var digestCleaner = strings.NewReplacer(
	"**", "",
	"__", "",
	"###", "",
	"##", "",
	"# ", "",
)

// CleanDigest removes markdown emphasis and flattens indented bullets.
func CleanDigest(s string) string {
	s = strings.TrimSpace(digestCleaner.Replace(s))
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		switch {
		case strings.HasPrefix(trimmed, "•"):
			lines[i] = trimmed
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			lines[i] = "• " + strings.TrimSpace(trimmed[2:])
		}
	}
	return strings.Join(lines, "\n")
}
