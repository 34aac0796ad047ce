// Package htmltomarkdown renders digest emails as Markdown for the archive.
package htmltomarkdown

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/wikidigest"
)

var _ wikidigest.Converter = (*Converter)(nil)

// Converter turns digest HTML into Markdown.
type Converter struct {
	conv   *converter.Converter
	domain string
}

// Option configures a Converter.
type Option func(*Converter)

// WithDomain resolves relative links and image sources against domain,
// normally the wiki base URL.
func WithDomain(domain string) Option {
	return func(c *Converter) {
		c.domain = strings.TrimRight(domain, "/")
	}
}

// NewConverter returns a Converter. Tables in the summary stay tables, and
// list items use "-" like the plain-text digest.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(
					commonmark.WithBulletListMarker("-"),
				),
				table.NewTablePlugin(),
			),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert renders one digest body. The result ends with a single newline.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", wikidigest.Errorf(wikidigest.EINVALID, "empty HTML input")
	}

	var (
		md  string
		err error
	)
	if c.domain != "" {
		md, err = c.conv.ConvertString(html, converter.WithDomain(c.domain))
	} else {
		md, err = c.conv.ConvertString(html)
	}
	if err != nil {
		return "", wikidigest.Errorf(wikidigest.EINTERNAL, "convert digest to markdown: %v", err)
	}
	return strings.TrimSpace(md) + "\n", nil
}
