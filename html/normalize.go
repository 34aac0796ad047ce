package html

import (
	"fmt"
	"strings"

	"github.com/fwojciec/wikidigest"
	"golang.org/x/net/html"
)

// Ensure Normalizer implements wikidigest.Normalizer at compile time.
var _ wikidigest.Normalizer = (*Normalizer)(nil)

// Normalizer renders storage markup as line-oriented text with structural
// markers, suitable for hashing and line diffs.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize returns the snapshot text of a page: a title line, a source
// version line, a blank line and the normalized body.
func (n *Normalizer) Normalize(page *wikidigest.Page) string {
	return fmt.Sprintf("TITLE: %s\nVERSION: %d\n\n%s", page.Title, page.Version, NormalizeBody(page.Body))
}

// NormalizeBody converts markup to text. Headings become "[HEADING] text"
// lines, list items "- text" lines, table cells " | text " runs ending at the
// row, and images one of the [IMAGE_ATTACHMENT: name], [IMAGE_EXTERNAL: ...]
// or [IMAGE] markers on their own line. Other tags are dropped and runs of
// spaces within a line collapse to one; empty lines are removed.
func NormalizeBody(body string) string {
	z := html.NewTokenizer(strings.NewReader(body))
	z.AllowCDATA(true)
	var sb strings.Builder
	var img *imageRef
	silent := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if img != nil {
				sb.WriteString(imageMarker(img))
			}
			return tidyLines(sb.String())
		case html.TextToken:
			if img == nil && silent == 0 {
				sb.WriteString(flatten.Replace(string(z.Text())))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			name := tok.Data
			switch {
			case name == tagImage:
				if img != nil {
					break
				}
				img = &imageRef{attrs: attrs(tok)}
				if tt == html.SelfClosingTagToken {
					sb.WriteString(imageMarker(img))
					img = nil
				}
			case img != nil && name == tagRiAttachment:
				img.filename = attrs(tok)[attrRiFilename]
			case img != nil && name == tagRiURL:
				img.url = attrs(tok)[attrRiValue]
			case img != nil:
			case isHeading(name) && tt == html.StartTagToken:
				sb.WriteString("\n[HEADING] ")
			case name == "li" && tt == html.StartTagToken:
				sb.WriteString("\n- ")
			case (name == "th" || name == "td") && tt == html.StartTagToken:
				sb.WriteString(" | ")
			case silentTags[name] && tt == html.StartTagToken:
				silent++
			default:
				sb.WriteByte(' ')
			}
		case html.EndTagToken:
			b, _ := z.TagName()
			name := string(b)
			switch {
			case name == tagImage && img != nil:
				sb.WriteString(imageMarker(img))
				img = nil
			case img != nil:
			case isHeading(name), name == "tr":
				sb.WriteByte('\n')
			case silentTags[name]:
				if silent > 0 {
					silent--
				}
			default:
				sb.WriteByte(' ')
			}
		}
	}
}

// flatten keeps source line breaks from splitting normalized lines.
var flatten = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func imageMarker(ref *imageRef) string {
	switch {
	case ref.filename != "":
		return fmt.Sprintf("\n[IMAGE_ATTACHMENT: %s]\n", ref.filename)
	case ref.url != "" && ref.attrs[attrAlt] != "":
		return fmt.Sprintf("\n[IMAGE_EXTERNAL: %s | URL: %s]\n", ref.attrs[attrAlt], ref.url)
	case ref.url != "":
		return fmt.Sprintf("\n[IMAGE_EXTERNAL: %s]\n", ref.url)
	}
	return "\n[IMAGE]\n"
}

func isHeading(tag string) bool {
	return len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6'
}

// tidyLines collapses whitespace inside each line and drops empty lines.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = collapseSpaces(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
