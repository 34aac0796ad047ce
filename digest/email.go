package digest

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/fwojciec/wikidigest"
)

// maxPreviewSections bounds the section list under the summary.
const maxPreviewSections = 8

// SummaryKind classifies one line of a digest summary.
type SummaryKind int

// SummaryKind values.
const (
	SummaryParagraph SummaryKind = iota
	SummaryHeader
	SummaryBullets
)

// SummaryBlock is a run of summary lines rendered as one HTML element.
type SummaryBlock struct {
	Kind  SummaryKind
	Text  string
	Items []string
}

// FormatSummary groups plain-text summary lines into headers (short lines
// ending in a colon), bullet lists and paragraphs. Blank lines end a list.
func FormatSummary(summary string) []SummaryBlock {
	var blocks []SummaryBlock
	inList := false
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			inList = false
		case strings.HasSuffix(line, ":") && len([]rune(line)) < 50 && !strings.HasPrefix(line, "•"):
			inList = false
			blocks = append(blocks, SummaryBlock{Kind: SummaryHeader, Text: line})
		case strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*"):
			item := strings.TrimSpace(strings.TrimLeft(line, "•-* "))
			if !inList {
				blocks = append(blocks, SummaryBlock{Kind: SummaryBullets})
				inList = true
			}
			last := &blocks[len(blocks)-1]
			last.Items = append(last.Items, item)
		default:
			inList = false
			blocks = append(blocks, SummaryBlock{Kind: SummaryParagraph, Text: line})
		}
	}
	return blocks
}

// sectionTitles returns the first line of each chunk, without heading
// markers, for at most maxPreviewSections chunks.
func sectionTitles(chunks []*wikidigest.IndexDocument) []string {
	var titles []string
	for i, doc := range chunks {
		if i == maxPreviewSections {
			break
		}
		first, _, _ := strings.Cut(doc.ContentText, "\n")
		first = wikidigest.Truncate(strings.TrimSpace(strings.Trim(first, "# ")), 60)
		if first != "" {
			titles = append(titles, first)
		}
	}
	return titles
}

type emailView struct {
	Title         string
	URL           string
	Version       int
	Generated     string
	ChangeSummary string
	Summary       []SummaryBlock
	Sections      []string
	MoreSections  int
}

var emailTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Title}}</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.5; color: #333; margin: 0 auto; padding: 15px;">
<h1 style="color: #1a73e8; font-size: 22px; padding: 0 0 12px 0;">{{.Title}}</h1>
<p style="background-color: #f8f9fa; padding: 12px; font-size: 13px;">
<strong>Generated:</strong> {{.Generated}}<br>
<strong>Version:</strong> v{{.Version}}<br>
<strong>Link:</strong> <a href="{{.URL}}">{{.URL}}</a>
</p>
{{- if .ChangeSummary}}
<p style="font-size: 13px;"><strong>What changed:</strong> {{.ChangeSummary}}</p>
{{- end}}
<h2 style="color: #5f6368; font-size: 18px;">Executive Summary</h2>
<div style="background-color: #e8f0fe; border-left: 4px solid #1a73e8; padding: 15px;">
{{- range .Summary}}
{{- if eq .Kind 1}}
<p style="margin: 15px 0 5px 0;"><strong style="color: #1a73e8;">{{.Text}}</strong></p>
{{- else if eq .Kind 2}}
<ul style="margin: 5px 0 10px 15px; padding: 0; list-style-type: disc;">
{{- range .Items}}
<li style="margin: 4px 0;">{{.}}</li>
{{- end}}
</ul>
{{- else}}
<p style="margin: 8px 0; line-height: 1.5;">{{.Text}}</p>
{{- end}}
{{- end}}
</div>
<p><a href="{{.URL}}">View the full page</a></p>
{{- if .Sections}}
<h3 style="color: #5f6368; font-size: 16px;">Page Sections</h3>
<ul>
{{- range .Sections}}
<li style="margin: 4px 0;">{{.}}</li>
{{- end}}
</ul>
{{- if .MoreSections}}
<p style="margin: 5px 0;"><em>...and {{.MoreSections}} more sections</em></p>
{{- end}}
{{- end}}
<p style="color: #5f6368; font-size: 12px;">This digest was generated automatically from wiki content.</p>
</body>
</html>
`))

// RenderEmail renders the HTML body of a digest.
func RenderEmail(meta wikidigest.PageMetadata, summary string, chunks []*wikidigest.IndexDocument, generated time.Time) (string, error) {
	view := emailView{
		Title:         meta.Title,
		URL:           meta.URL,
		Version:       meta.Version,
		Generated:     generated.UTC().Format("January 02, 2006 at 15:04 UTC"),
		ChangeSummary: meta.ChangeSummary,
		Summary:       FormatSummary(summary),
		Sections:      sectionTitles(chunks),
	}
	if len(chunks) > maxPreviewSections {
		view.MoreSections = len(chunks) - maxPreviewSections
	}

	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Subject returns the subject line of a digest email.
func Subject(title string) string {
	return "Wiki Update: " + title
}
