package cache

import (
	"context"
	"log/slog"

	"github.com/fwojciec/wikidigest"
)

// ImageProcessor resolves the image blocks of a page: it stores their bytes
// and attaches a description, skipping every step whose input is unchanged.
type ImageProcessor struct {
	Pages        wikidigest.PageSource
	Downloader   wikidigest.Downloader
	Store        *Store
	Descriptions *Descriptions
	Logger       *slog.Logger
}

// Process resolves every image block in place and returns the counters of
// what it did. An image that cannot be downloaded, stored or described is
// logged and counted; the rest of the page carries on.
//
// Before downloading, the version marker of the image is looked up among the
// page's stored images; a match reuses the stored URL and hash without
// fetching any bytes.
func (p *ImageProcessor) Process(ctx context.Context, page *wikidigest.Page, base string, blocks []wikidigest.ContentBlock) wikidigest.RunStats {
	var stats wikidigest.RunStats
	logger := p.logger()

	for i := range blocks {
		img := blocks[i].Image
		if blocks[i].Type != wikidigest.BlockImage || img == nil {
			continue
		}
		log := logger.With("page", page.ID, "image", img.Filename)

		var (
			att     wikidigest.Attachment
			size    int64
			version string
		)
		switch img.Source {
		case wikidigest.ImageAttachment:
			a, ok := page.Attachment(img.Filename)
			if !ok {
				log.Warn("attachment not found")
				stats.ImagesFailed++
				continue
			}
			att, size = a, a.Size
			version = VersionMarker(a.Filename, a.Version, a.Size)
		case wikidigest.ImageExternal:
			version = URLVersionMarker(img.ExternalURL)
		default:
			stats.ImagesFailed++
			continue
		}
		img.VersionMarker = version

		var data []byte
		stored, ok := p.Store.LookupImage(ctx, base, img.Filename, version)
		if ok {
			stats.ImagesSkipped++
			stats.BytesSaved += size
		} else {
			var err error
			data, err = p.download(ctx, img, att)
			if err != nil {
				log.Error("image download failed", "err", err)
				stats.ImagesFailed++
				continue
			}
			stats.ImagesDownloaded++
			stats.BytesDownloaded += int64(len(data))

			stored, err = p.Store.PutImage(ctx, base, img.Filename, data, version)
			if err != nil {
				log.Error("image upload failed", "err", err)
				stats.ImagesFailed++
				continue
			}
			if stored.Reused {
				stats.ArtifactsSkipped++
				stats.BytesSaved += int64(len(data))
			} else {
				stats.ArtifactsUploaded++
			}
		}
		img.BlobURL = stored.URL
		img.ImageHash = stored.Hash

		if p.Descriptions != nil {
			p.describe(ctx, log, blocks, i, stored, data, &stats)
		}
	}

	return stats
}

func (p *ImageProcessor) describe(ctx context.Context, log *slog.Logger, blocks []wikidigest.ContentBlock, pos int, stored *ImageResult, data []byte, stats *wikidigest.RunStats) {
	img := blocks[pos].Image
	surrounding := wikidigest.ImageContext(blocks, pos)
	typ := wikidigest.DetectImageType(img.Filename, surrounding)

	if rec, ok := p.Descriptions.Lookup(ctx, stored.Hash); ok {
		img.Description = rec.Description
		img.DescriptionType = rec.ImageType
		stats.DescriptionsCached++
		stats.EstimatedCostSaved += CostPerImage
		return
	}

	if data == nil {
		var err error
		data, err = p.Store.Blobs.Get(ctx, stored.Key)
		if err != nil {
			log.Error("stored image read failed", "key", stored.Key, "err", err)
			stats.DescriptionsFailed++
			return
		}
	}

	rec, err := p.Descriptions.Generate(ctx, stored.Hash, wikidigest.DescribeRequest{
		Filename:  img.Filename,
		MediaType: wikidigest.ContentType(img.Filename),
		Data:      data,
		URL:       img.ExternalURL,
		ImageType: typ,
		Context:   surrounding,
	})
	if err != nil {
		log.Error("image description failed", "err", err)
		stats.DescriptionsFailed++
		return
	}
	img.Description = rec.Description
	img.DescriptionType = rec.ImageType
	stats.DescriptionsGenerated++
}

func (p *ImageProcessor) download(ctx context.Context, img *wikidigest.Image, att wikidigest.Attachment) ([]byte, error) {
	if img.Source == wikidigest.ImageExternal {
		return p.Downloader.Download(ctx, img.ExternalURL)
	}
	return p.Pages.DownloadAttachment(ctx, att)
}

func (p *ImageProcessor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.New(slog.DiscardHandler)
}
