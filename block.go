package wikidigest

import (
	"strings"
)

// BlockType identifies the payload carried by a ContentBlock.
type BlockType string

// BlockType constants.
const (
	BlockHeading BlockType = "heading"
	BlockText    BlockType = "text"
	BlockList    BlockType = "list"
	BlockTable   BlockType = "table"
	BlockImage   BlockType = "image"
)

// ListType distinguishes ordered from unordered lists.
type ListType string

// ListType constants.
const (
	ListOrdered   ListType = "ordered"
	ListUnordered ListType = "unordered"
)

// ImageSource tells where the bytes of an image come from.
type ImageSource string

// ImageSource constants.
const (
	ImageAttachment ImageSource = "attachment"
	ImageExternal   ImageSource = "external_url"
)

// ContentBlock is one atomic unit of page content, in document order.
// Only the fields that belong to Type are set.
type ContentBlock struct {
	Index int       `json:"index"`
	Type  BlockType `json:"type"`

	// Heading and text.
	Level   int    `json:"level,omitempty"`
	Content string `json:"content,omitempty"`

	// List.
	Items    []string `json:"items,omitempty"`
	ListType ListType `json:"listType,omitempty"`

	// Table.
	Rows [][]string `json:"rows,omitempty"`

	// Image.
	Image *Image `json:"image,omitempty"`
}

// Image is the payload of an image block. Fields after Height are filled in
// by later pipeline stages.
type Image struct {
	Source      ImageSource `json:"source"`
	Filename    string      `json:"filename"`
	AltText     string      `json:"altText,omitempty"`
	ExternalURL string      `json:"externalUrl,omitempty"`
	Width       string      `json:"width,omitempty"`
	Height      string      `json:"height,omitempty"`

	LocalPath       string    `json:"localPath,omitempty"`
	BlobURL         string    `json:"blobUrl,omitempty"`
	ImageHash       string    `json:"imageHash,omitempty"`
	VersionMarker   string    `json:"versionMarker,omitempty"`
	Description     string    `json:"description,omitempty"`
	DescriptionType ImageType `json:"descriptionType,omitempty"`
}

// Validate returns an error if the block mixes payloads or lacks its own.
func (b *ContentBlock) Validate() error {
	hasContent := b.Content != ""
	hasContainer := len(b.Items) > 0 || len(b.Rows) > 0 || b.Image != nil

	if hasContent && hasContainer {
		return Errorf(EINVALID, "block %d carries both content and a container", b.Index)
	}

	switch b.Type {
	case BlockHeading:
		if b.Level < 1 || b.Level > 6 {
			return Errorf(EINVALID, "heading block %d has level %d", b.Index, b.Level)
		}
		if !hasContent {
			return Errorf(EINVALID, "heading block %d has no content", b.Index)
		}
	case BlockText:
		if !hasContent {
			return Errorf(EINVALID, "text block %d has no content", b.Index)
		}
	case BlockList:
		if len(b.Items) == 0 {
			return Errorf(EINVALID, "list block %d has no items", b.Index)
		}
	case BlockTable:
		if len(b.Rows) == 0 {
			return Errorf(EINVALID, "table block %d has no rows", b.Index)
		}
	case BlockImage:
		if b.Image == nil || b.Image.Filename == "" {
			return Errorf(EINVALID, "image block %d has no filename", b.Index)
		}
	default:
		return Errorf(EINVALID, "block %d has unknown type %q", b.Index, b.Type)
	}
	return nil
}

// Text returns the visible text of a block: heading and text content, list
// items joined by newlines, table rows joined by " | ".
func (b *ContentBlock) Text() string {
	switch b.Type {
	case BlockHeading, BlockText:
		return b.Content
	case BlockList:
		return strings.Join(b.Items, "\n")
	case BlockTable:
		rows := make([]string, 0, len(b.Rows))
		for _, row := range b.Rows {
			rows = append(rows, strings.Join(row, " | "))
		}
		return strings.Join(rows, "\n")
	case BlockImage:
		if b.Image != nil {
			return b.Image.AltText
		}
	}
	return ""
}

// Images returns the image payloads of blocks in order.
func Images(blocks []ContentBlock) []*Image {
	var images []*Image
	for i := range blocks {
		if blocks[i].Type == BlockImage && blocks[i].Image != nil {
			images = append(images, blocks[i].Image)
		}
	}
	return images
}

// ParseResult is the block sequence extracted from one page body.
type ParseResult struct {
	Blocks   []ContentBlock `json:"blocks"`
	Total    int            `json:"total"`
	Warnings []string       `json:"warnings,omitempty"`
}

// Parser converts page markup into ordered content blocks.
type Parser interface {
	Parse(markup string) (*ParseResult, error)
}

// Normalizer renders a page as the plain text that change detection hashes.
type Normalizer interface {
	Normalize(page *Page) string
}
