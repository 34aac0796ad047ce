// Package html reads wiki storage markup with a tag-aware tokenizer. It turns
// a page body into ordered content blocks and into the normalized text that
// change detection hashes.
package html

import (
	"strings"

	"golang.org/x/net/html"
)

// Storage-format element names.
const (
	tagImage           = "ac:image"
	tagParameter       = "ac:parameter"
	tagRiAttachment    = "ri:attachment"
	tagRiURL           = "ri:url"
	attrRiFilename     = "ri:filename"
	attrRiValue        = "ri:value"
	attrAlt            = "ac:alt"
	attrWidth          = "ac:width"
	attrHeight         = "ac:height"
	attrOriginalWidth  = "ac:original-width"
	attrOriginalHeight = "ac:original-height"
)

// silentTags contribute no visible text.
var silentTags = map[string]bool{
	tagParameter: true,
	"script":     true,
	"style":      true,
}

// CleanText strips markup from a fragment, unescapes entities and collapses
// whitespace to single spaces. Text inside macro parameters is dropped.
func CleanText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(fragment))
	z.AllowCDATA(true)
	var sb strings.Builder
	silent := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return collapseSpaces(sb.String())
		case html.TextToken:
			if silent == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if silentTags[string(name)] {
				silent++
			}
			sb.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if silentTags[string(name)] && silent > 0 {
				silent--
			}
			sb.WriteByte(' ')
		case html.SelfClosingTagToken:
			sb.WriteByte(' ')
		}
	}
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// attrs returns the attributes of the current tag keyed by name.
func attrs(tok html.Token) map[string]string {
	m := make(map[string]string, len(tok.Attr))
	for _, a := range tok.Attr {
		m[a.Key] = a.Val
	}
	return m
}
