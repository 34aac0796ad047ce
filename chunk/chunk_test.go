package chunk_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/chunk"
	"github.com/fwojciec/wikidigest/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMeta = wikidigest.PageMetadata{
	PageID:       "42",
	Title:        "Onboarding",
	SpaceKey:     "S",
	Version:      3,
	URL:          "https://wiki.example.com/wiki/spaces/S/pages/42",
	LastModified: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
}

var longText = strings.Repeat("This paragraph is long enough to count as body text. ", 5)

func sampleBlocks() []wikidigest.ContentBlock {
	return []wikidigest.ContentBlock{
		{Index: 0, Type: wikidigest.BlockText, Content: longText},
		{Index: 1, Type: wikidigest.BlockHeading, Level: 2, Content: "Accounts"},
		{Index: 2, Type: wikidigest.BlockList, ListType: wikidigest.ListUnordered, Items: []string{"Email", "VPN"}},
		{Index: 3, Type: wikidigest.BlockImage, Image: &wikidigest.Image{
			Filename:        "flow.png",
			BlobURL:         "https://blobs/flow.png",
			Description:     "Approval flow.",
			DescriptionType: wikidigest.ImageFlowchart,
		}},
		{Index: 4, Type: wikidigest.BlockText, Content: "Short note"},
		{Index: 5, Type: wikidigest.BlockTable, Rows: [][]string{{"Role", "Owner"}, {"Admin", "IT"}}},
	}
}

func TestWholePage_Chunk(t *testing.T) {
	t.Parallel()

	t.Run("renders every block into one chunk with an images section", func(t *testing.T) {
		t.Parallel()

		chunks := (&chunk.WholePage{}).Chunk(testMeta, sampleBlocks())

		require.Len(t, chunks, 1)
		c := chunks[0]
		assert.Equal(t, "42_v3_full", c.ID)
		assert.Equal(t, wikidigest.ChunkFullPage, c.Type)
		assert.True(t, strings.HasPrefix(c.Text, "# Onboarding\n\n"))
		assert.Contains(t, c.Text, "## Accounts")
		assert.Contains(t, c.Text, "• Email\n• VPN")
		assert.Contains(t, c.Text, "[IMAGE: flow.png]")
		assert.Contains(t, c.Text, "TABLE:\nRole | Owner\nAdmin | IT")
		assert.Contains(t, c.Text, "## IMAGES IN THIS PAGE:")
		assert.Contains(t, c.Text, "### Image 1: flow.png")
		assert.Contains(t, c.Text, "**URL:** https://blobs/flow.png")
		assert.Contains(t, c.Text, "**Type:** flowchart")
		assert.Contains(t, c.Text, "**Description:** Approval flow.")
		assert.Less(t, strings.Index(c.Text, "## Accounts"), strings.Index(c.Text, "TABLE:"))
	})

	t.Run("oversized page is truncated to the cap", func(t *testing.T) {
		t.Parallel()

		blocks := []wikidigest.ContentBlock{{Type: wikidigest.BlockText, Content: strings.Repeat("x", 500)}}

		chunks := (&chunk.WholePage{Max: 100}).Chunk(testMeta, blocks)

		require.Len(t, chunks, 1)
		assert.Len(t, chunks[0].Text, 100)
	})

	t.Run("empty page has no chunks", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, (&chunk.WholePage{}).Chunk(testMeta, nil))
	})
}

func TestSemantic_Chunk(t *testing.T) {
	t.Parallel()

	t.Run("each heading-like block opens a section", func(t *testing.T) {
		t.Parallel()

		chunks := (&chunk.Semantic{}).Chunk(testMeta, sampleBlocks())

		require.Len(t, chunks, 3)
		assert.Equal(t, "42_v3_section_000", chunks[0].ID)
		assert.Empty(t, chunks[0].Heading)
		assert.Equal(t, "Accounts", chunks[1].Heading)
		assert.Equal(t, 2, chunks[1].HeadingLevel)
		assert.Equal(t, "Short note", chunks[2].Heading)
		assert.Equal(t, 3, chunks[2].HeadingLevel)
		assert.Equal(t, "42_v3_section_002", chunks[2].ID)

		assert.True(t, strings.HasPrefix(chunks[1].Text, "## Accounts\n\n• Email"))
		assert.Contains(t, chunks[1].Text, "📷 IMAGE (flowchart): flow.png\nApproval flow.")
		assert.True(t, chunks[1].HasImage())
		assert.True(t, strings.HasPrefix(chunks[2].Text, "### Short note\n\nTABLE:"))
	})

	t.Run("sections cover every block once in order", func(t *testing.T) {
		t.Parallel()

		blocks := sampleBlocks()
		chunks := (&chunk.Semantic{}).Chunk(testMeta, blocks)

		var got []int
		for _, c := range chunks {
			for _, b := range c.Blocks {
				got = append(got, b.Index)
			}
		}
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, got)
	})

	t.Run("each section is capped independently", func(t *testing.T) {
		t.Parallel()

		blocks := []wikidigest.ContentBlock{
			{Index: 0, Type: wikidigest.BlockHeading, Level: 1, Content: "A"},
			{Index: 1, Type: wikidigest.BlockList, Items: []string{strings.Repeat("y", 200)}},
			{Index: 2, Type: wikidigest.BlockHeading, Level: 1, Content: "B"},
		}

		chunks := (&chunk.Semantic{Max: 50}).Chunk(testMeta, blocks)

		require.Len(t, chunks, 2)
		assert.Len(t, chunks[0].Text, 50)
		assert.Equal(t, "# B", chunks[1].Text)
	})

	t.Run("image without description renders a placeholder", func(t *testing.T) {
		t.Parallel()

		blocks := []wikidigest.ContentBlock{
			{Index: 0, Type: wikidigest.BlockHeading, Level: 2, Content: "Screens"},
			{Index: 1, Type: wikidigest.BlockImage, Image: &wikidigest.Image{Filename: "ui.png"}},
		}

		chunks := (&chunk.Semantic{}).Chunk(testMeta, blocks)

		require.Len(t, chunks, 1)
		assert.Equal(t, "## Screens\n\n[IMAGE: ui.png]", chunks[0].Text)
	})
}

func TestIsHeadingLike(t *testing.T) {
	t.Parallel()

	assert.True(t, chunk.IsHeadingLike(wikidigest.ContentBlock{Type: wikidigest.BlockHeading, Content: longText}))
	assert.True(t, chunk.IsHeadingLike(wikidigest.ContentBlock{Type: wikidigest.BlockText, Content: "Short"}))
	assert.False(t, chunk.IsHeadingLike(wikidigest.ContentBlock{Type: wikidigest.BlockText, Content: longText}))
	assert.False(t, chunk.IsHeadingLike(wikidigest.ContentBlock{Type: wikidigest.BlockList, Items: []string{"a"}}))
}

func TestBuildIndexDocuments(t *testing.T) {
	t.Parallel()

	chunks := (&chunk.Semantic{}).Chunk(testMeta, sampleBlocks())

	docs := chunk.BuildIndexDocuments(testMeta, chunks)

	require.Len(t, docs, 3)
	doc := docs[1]
	assert.Equal(t, "42_v3_section_001", doc.ChunkID)
	assert.Equal(t, "42", doc.PageID)
	assert.Equal(t, "Onboarding", doc.PageTitle)
	assert.Equal(t, "S", doc.SpaceKey)
	assert.Equal(t, 3, doc.Version)
	assert.Equal(t, 1, doc.ChunkIndex)
	assert.Equal(t, wikidigest.ChunkSection, doc.ContentType)
	assert.True(t, doc.HasImage)
	assert.Equal(t, []string{"https://blobs/flow.png"}, doc.ImageURLs)
	assert.Equal(t, []string{"[FLOWCHART] flow.png: Approval flow."}, doc.ImageDescriptions)
	assert.Equal(t, testMeta.URL, doc.PageURL)
	assert.Equal(t, testMeta.LastModified, doc.LastModified)
	assert.False(t, docs[0].HasImage)
}

func TestIndexer_Prepare(t *testing.T) {
	t.Parallel()

	t.Run("embeds capped text and counts tokens", func(t *testing.T) {
		t.Parallel()

		var embedded []int
		x := &chunk.Indexer{
			Embedder: &mock.Embedder{
				EmbedFn: func(ctx context.Context, text string) ([]float32, error) {
					embedded = append(embedded, len(text))
					return []float32{0.1, 0.2}, nil
				},
			},
			Tokens: &mock.TokenCounter{
				CountTokensFn: func(ctx context.Context, text string) (int, error) {
					return 7, nil
				},
			},
		}
		docs := []*wikidigest.IndexDocument{{ChunkID: "a", ContentText: strings.Repeat("z", 9000)}}

		out := x.Prepare(context.Background(), docs)

		require.Len(t, out, 1)
		assert.Equal(t, []int{chunk.EmbeddingInputMax}, embedded)
		assert.Equal(t, []float32{0.1, 0.2}, out[0].ContentVector)
		assert.Equal(t, 7, out[0].TokenCount)
	})

	t.Run("failed embeddings are left out", func(t *testing.T) {
		t.Parallel()

		x := &chunk.Indexer{
			Embedder: &mock.Embedder{
				EmbedFn: func(ctx context.Context, text string) ([]float32, error) {
					if text == "bad" {
						return nil, errors.New("quota")
					}
					return []float32{1}, nil
				},
			},
		}
		docs := []*wikidigest.IndexDocument{{ChunkID: "a", ContentText: "bad"}, {ChunkID: "b", ContentText: "good"}}

		out := x.Prepare(context.Background(), docs)

		require.Len(t, out, 1)
		assert.Equal(t, "b", out[0].ChunkID)
		assert.Zero(t, out[0].TokenCount)
	})
}
