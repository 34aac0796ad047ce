package html

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/wikidigest"
	"golang.org/x/net/html"
)

// Ensure Parser implements wikidigest.Parser at compile time.
var _ wikidigest.Parser = (*Parser)(nil)

type elementKind int

const (
	kindHeading elementKind = iota
	kindTable
	kindList
	kindImage
)

// element is a structural element located in the markup by byte offsets.
type element struct {
	kind  elementKind
	tag   string
	start int
	end   int
	image *imageRef
}

// imageRef collects the attributes of an ac:image and its resource child.
type imageRef struct {
	attrs    map[string]string
	filename string
	url      string
}

// Parser converts storage markup into ordered content blocks.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse locates headings, tables, lists and images, sorts them by their
// start offset and emits them as blocks, with the plain text between them
// flushed as text blocks.
func (p *Parser) Parse(markup string) (*wikidigest.ParseResult, error) {
	elements, err := locate(markup)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(elements, func(i, j int) bool {
		return elements[i].start < elements[j].start
	})

	result := &wikidigest.ParseResult{}
	emit := func(b wikidigest.ContentBlock) {
		b.Index = len(result.Blocks)
		result.Blocks = append(result.Blocks, b)
	}
	flush := func(from, to int) {
		if from >= to {
			return
		}
		if text := CleanText(markup[from:to]); text != "" {
			emit(wikidigest.ContentBlock{Type: wikidigest.BlockText, Content: text})
		}
	}

	cursor := 0
	external := 0
	for _, el := range elements {
		flush(cursor, el.start)
		raw := markup[el.start:el.end]

		switch el.kind {
		case kindHeading:
			if text := CleanText(raw); text != "" {
				emit(wikidigest.ContentBlock{
					Type:    wikidigest.BlockHeading,
					Level:   int(el.tag[1] - '0'),
					Content: text,
				})
			}
		case kindTable:
			rows, err := tableRows(raw)
			if err != nil {
				return nil, fmt.Errorf("table at offset %d: %w", el.start, err)
			}
			if len(rows) > 0 {
				emit(wikidigest.ContentBlock{Type: wikidigest.BlockTable, Rows: rows})
			}
		case kindList:
			items, err := listItems(raw)
			if err != nil {
				return nil, fmt.Errorf("list at offset %d: %w", el.start, err)
			}
			if len(items) > 0 {
				listType := wikidigest.ListUnordered
				if el.tag == "ol" {
					listType = wikidigest.ListOrdered
				}
				emit(wikidigest.ContentBlock{Type: wikidigest.BlockList, Items: items, ListType: listType})
			}
		case kindImage:
			img, ok := buildImage(el.image, &external)
			if !ok {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("unrecognized image format at offset %d", el.start))
				break
			}
			emit(wikidigest.ContentBlock{Type: wikidigest.BlockImage, Image: img})
		}

		// Images nested in a table or list end before their container.
		cursor = max(cursor, el.end)
	}
	flush(cursor, len(markup))

	result.Total = len(result.Blocks)
	return result, nil
}

// locate scans the markup once and records the byte range of every
// outermost heading, table and list, and of every image.
func locate(markup string) ([]*element, error) {
	z := html.NewTokenizer(strings.NewReader(markup))
	z.AllowCDATA(true)

	var (
		elements []*element
		open     *element
		depth    int
		img      *element
		offset   int
	)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			break
		}
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			name := tok.Data
			switch {
			case name == tagImage:
				if img != nil {
					continue
				}
				img = &element{kind: kindImage, start: start, image: &imageRef{attrs: attrs(tok)}}
				if tt == html.SelfClosingTagToken {
					img.end = offset
					elements = append(elements, img)
					img = nil
				}
			case img != nil && name == tagRiAttachment:
				img.image.filename = attrs(tok)[attrRiFilename]
			case img != nil && name == tagRiURL:
				img.image.url = attrs(tok)[attrRiValue]
			case tt == html.SelfClosingTagToken:
			case open == nil:
				if kind, ok := structuralKind(name); ok {
					open = &element{kind: kind, tag: name, start: start}
					depth = 1
				}
			case name == open.tag:
				depth++
			}
		case html.EndTagToken:
			b, _ := z.TagName()
			name := string(b)
			switch {
			case name == tagImage && img != nil:
				img.end = offset
				elements = append(elements, img)
				img = nil
			case open != nil && name == open.tag:
				depth--
				if depth == 0 {
					open.end = offset
					elements = append(elements, open)
					open = nil
				}
			}
		}
	}

	if img != nil {
		img.end = len(markup)
		elements = append(elements, img)
	}
	if open != nil {
		open.end = len(markup)
		elements = append(elements, open)
	}
	return elements, nil
}

func structuralKind(tag string) (elementKind, bool) {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return kindHeading, true
	case "table":
		return kindTable, true
	case "ul", "ol":
		return kindList, true
	}
	return 0, false
}

// buildImage turns an image reference into a block payload. External images
// without a usable file name are numbered in document order.
func buildImage(ref *imageRef, external *int) (*wikidigest.Image, bool) {
	switch {
	case ref.filename != "":
		alt := ref.attrs[attrAlt]
		if alt == "" {
			alt = ref.filename
		}
		return &wikidigest.Image{
			Source:   wikidigest.ImageAttachment,
			Filename: ref.filename,
			AltText:  alt,
			Width:    ref.attrs[attrWidth],
			Height:   ref.attrs[attrHeight],
		}, true
	case ref.url != "":
		*external++
		return &wikidigest.Image{
			Source:      wikidigest.ImageExternal,
			Filename:    externalFilename(ref.url, *external),
			AltText:     ref.attrs[attrAlt],
			ExternalURL: ref.url,
			Width:       firstNonEmpty(ref.attrs[attrWidth], ref.attrs[attrOriginalWidth]),
			Height:      firstNonEmpty(ref.attrs[attrHeight], ref.attrs[attrOriginalHeight]),
		}, true
	}
	return nil, false
}

func externalFilename(rawURL string, n int) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}
	return fmt.Sprintf("external_image_%d.jpg", n)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// tableRows returns the cell text of every row of the outermost table.
// Header and data cells are treated alike.
func tableRows(raw string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}

	top := doc.Find("table").First()
	var rows [][]string
	top.Find("tr").
		FilterFunction(func(_ int, tr *goquery.Selection) bool {
			return tr.Closest("table").IsSelection(top)
		}).
		Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.ChildrenFiltered("th, td").Each(func(_ int, cell *goquery.Selection) {
				inner, _ := cell.Html()
				cells = append(cells, CleanText(inner))
			})
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		})
	return rows, nil
}

// listItems returns the text of the direct items of the outermost list.
func listItems(raw string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}

	var items []string
	doc.Find("ul, ol").First().ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		inner, _ := li.Html()
		if text := CleanText(inner); text != "" {
			items = append(items, text)
		}
	})
	return items, nil
}
