package cache_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/cache"
	"github.com/fwojciec/wikidigest/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type imageFixture struct {
	blobs      *memoryBlobs
	downloads  int
	describes  int
	processor  *cache.ImageProcessor
	attachment []byte
}

func newImageFixture() *imageFixture {
	f := &imageFixture{blobs: newMemoryBlobs(), attachment: []byte("diagram-bytes")}
	store := cache.NewStore(f.blobs.store, nil)
	f.processor = &cache.ImageProcessor{
		Pages: &mock.PageSource{
			DownloadAttachmentFn: func(ctx context.Context, att wikidigest.Attachment) ([]byte, error) {
				f.downloads++
				return f.attachment, nil
			},
		},
		Downloader: &mock.Downloader{
			DownloadFn: func(ctx context.Context, url string) ([]byte, error) {
				f.downloads++
				return []byte("external:" + url), nil
			},
		},
		Store: store,
		Descriptions: &cache.Descriptions{
			Cache: newDescriptionCache(),
			Describer: &mock.Describer{
				DescribeFn: func(ctx context.Context, req wikidigest.DescribeRequest) (*wikidigest.Description, error) {
					f.describes++
					return &wikidigest.Description{Text: "described " + req.Filename}, nil
				},
			},
		},
	}
	return f
}

func imagePage(version int) *wikidigest.Page {
	return &wikidigest.Page{
		ID:       "1",
		Title:    "Process",
		SpaceKey: "S",
		Attachments: []wikidigest.Attachment{
			{Filename: "flow.png", Version: version, Size: 13, DownloadRef: "/download/flow.png"},
		},
	}
}

func imageBlocks() []wikidigest.ContentBlock {
	return []wikidigest.ContentBlock{
		{Index: 0, Type: wikidigest.BlockHeading, Level: 2, Content: "Approval workflow"},
		{Index: 1, Type: wikidigest.BlockImage, Image: &wikidigest.Image{Source: wikidigest.ImageAttachment, Filename: "flow.png", AltText: "flow.png"}},
	}
}

func TestImageProcessor_Process(t *testing.T) {
	t.Parallel()

	t.Run("first sight downloads uploads and describes", func(t *testing.T) {
		t.Parallel()

		f := newImageFixture()
		blocks := imageBlocks()

		stats := f.processor.Process(context.Background(), imagePage(1), "S/Process_1", blocks)

		assert.Equal(t, 1, stats.ImagesDownloaded)
		assert.Equal(t, 1, stats.ArtifactsUploaded)
		assert.Equal(t, 1, stats.DescriptionsGenerated)
		assert.Equal(t, int64(13), stats.BytesDownloaded)
		img := blocks[1].Image
		assert.Equal(t, wikidigest.HashBytes(f.attachment), img.ImageHash)
		assert.Equal(t, "mem://"+cache.ImageKey("S/Process_1", "flow.png", img.ImageHash), img.BlobURL)
		assert.Equal(t, "described flow.png", img.Description)
		assert.Equal(t, wikidigest.ImageFlowchart, img.DescriptionType)
		assert.Equal(t, cache.VersionMarker("flow.png", 1, 13), img.VersionMarker)
	})

	t.Run("unchanged attachment is neither downloaded nor described again", func(t *testing.T) {
		t.Parallel()

		f := newImageFixture()
		first := imageBlocks()
		f.processor.Process(context.Background(), imagePage(1), "S/Process_1", first)

		second := imageBlocks()
		stats := f.processor.Process(context.Background(), imagePage(1), "S/Process_1", second)

		assert.Equal(t, 1, f.downloads)
		assert.Equal(t, 1, f.describes)
		assert.Equal(t, 1, stats.ImagesSkipped)
		assert.Equal(t, int64(13), stats.BytesSaved)
		assert.Equal(t, 1, stats.DescriptionsCached)
		assert.InDelta(t, cache.CostPerImage, stats.EstimatedCostSaved, 1e-9)
		assert.Equal(t, first[1].Image.BlobURL, second[1].Image.BlobURL)
		assert.Equal(t, first[1].Image.Description, second[1].Image.Description)
	})

	t.Run("new attachment version with identical bytes reuses the stored image", func(t *testing.T) {
		t.Parallel()

		f := newImageFixture()
		f.processor.Process(context.Background(), imagePage(1), "S/Process_1", imageBlocks())

		stats := f.processor.Process(context.Background(), imagePage(2), "S/Process_1", imageBlocks())

		assert.Equal(t, 2, f.downloads)
		assert.Equal(t, 1, stats.ArtifactsSkipped)
		assert.Equal(t, 0, stats.ArtifactsUploaded)
		assert.Equal(t, 1, stats.DescriptionsCached)
		assert.Equal(t, 1, f.blobs.putCount())
	})

	t.Run("re-saving a version with identical bytes is found on the next run", func(t *testing.T) {
		t.Parallel()

		f := newImageFixture()
		f.processor.Process(context.Background(), imagePage(1), "S/Process_1", imageBlocks())
		f.processor.Process(context.Background(), imagePage(2), "S/Process_1", imageBlocks())

		stats := f.processor.Process(context.Background(), imagePage(2), "S/Process_1", imageBlocks())

		assert.Equal(t, 2, f.downloads)
		assert.Equal(t, 1, stats.ImagesSkipped)
		assert.Equal(t, 0, stats.ArtifactsUploaded)
		assert.Equal(t, 1, f.blobs.putCount())
	})

	t.Run("missing attachment is counted as a failure", func(t *testing.T) {
		t.Parallel()

		f := newImageFixture()
		page := imagePage(1)
		page.Attachments = nil

		stats := f.processor.Process(context.Background(), page, "S/Process_1", imageBlocks())

		assert.Equal(t, 1, stats.ImagesFailed)
		assert.Equal(t, 0, f.downloads)
	})

	t.Run("external images are downloaded by URL", func(t *testing.T) {
		t.Parallel()

		f := newImageFixture()
		blocks := []wikidigest.ContentBlock{{
			Type:  wikidigest.BlockImage,
			Image: &wikidigest.Image{Source: wikidigest.ImageExternal, Filename: "external_image_1.jpg", ExternalURL: "https://cdn.example.com/x.jpg"},
		}}

		stats := f.processor.Process(context.Background(), imagePage(1), "S/Process_1", blocks)

		assert.Equal(t, 1, stats.ImagesDownloaded)
		assert.Equal(t, cache.URLVersionMarker("https://cdn.example.com/x.jpg"), blocks[0].Image.VersionMarker)
		assert.NotEmpty(t, blocks[0].Image.BlobURL)
	})

	t.Run("download failure leaves the rest of the page intact", func(t *testing.T) {
		t.Parallel()

		f := newImageFixture()
		f.processor.Pages = &mock.PageSource{
			DownloadAttachmentFn: func(ctx context.Context, att wikidigest.Attachment) ([]byte, error) {
				return nil, errors.New("timeout")
			},
		}
		blocks := imageBlocks()

		stats := f.processor.Process(context.Background(), imagePage(1), "S/Process_1", blocks)

		assert.Equal(t, 1, stats.ImagesFailed)
		assert.Empty(t, blocks[1].Image.BlobURL)
		assert.Equal(t, "Approval workflow", blocks[0].Content)
	})

	t.Run("description failure keeps the stored image", func(t *testing.T) {
		t.Parallel()

		f := newImageFixture()
		f.processor.Descriptions.Describer = &mock.Describer{
			DescribeFn: func(ctx context.Context, req wikidigest.DescribeRequest) (*wikidigest.Description, error) {
				return nil, errors.New("rate limited")
			},
		}
		blocks := imageBlocks()

		stats := f.processor.Process(context.Background(), imagePage(1), "S/Process_1", blocks)

		require.Equal(t, 1, stats.DescriptionsFailed)
		assert.NotEmpty(t, blocks[1].Image.BlobURL)
		assert.Empty(t, blocks[1].Image.Description)
	})
}
