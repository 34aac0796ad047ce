package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fwojciec/wikidigest"
)

// CostPerImage is the estimated price of one vision-model call, used to
// report what the description cache saved.
const CostPerImage = 0.05

// Descriptions puts a description cache in front of a Describer.
type Descriptions struct {
	Cache     wikidigest.DescriptionCache
	Describer wikidigest.Describer
	Logger    *slog.Logger

	// Now returns the generation timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Lookup returns the cached description of an image hash. It only reads,
// and a failed read is reported as a miss.
func (d *Descriptions) Lookup(ctx context.Context, imageHash string) (*wikidigest.DescriptionRecord, bool) {
	rec, err := d.Cache.FindDescription(ctx, imageHash)
	if err != nil {
		if wikidigest.ErrorCode(err) != wikidigest.ENOTFOUND {
			d.logger().Warn("description cache read failed", "hash", wikidigest.ShortHash(imageHash), "err", err)
		}
		return nil, false
	}
	return rec, rec != nil
}

// Generate calls the describer and caches the answer under imageHash.
// A failed cache write is logged; the description is still returned.
func (d *Descriptions) Generate(ctx context.Context, imageHash string, req wikidigest.DescribeRequest) (*wikidigest.DescriptionRecord, error) {
	desc, err := d.Describer.Describe(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", req.Filename, err)
	}

	rec := &wikidigest.DescriptionRecord{
		ImageHash:   imageHash,
		Filename:    req.Filename,
		Description: desc.Text,
		ImageType:   req.ImageType,
		TokensUsed:  desc.TokenCount,
		GeneratedAt: d.now(),
	}
	if err := d.Cache.PutDescription(ctx, rec); err != nil {
		d.logger().Warn("description cache write failed", "hash", wikidigest.ShortHash(imageHash), "err", err)
	}
	return rec, nil
}

// Describe returns the cached description of an image or generates one.
// The boolean reports a cache hit.
func (d *Descriptions) Describe(ctx context.Context, imageHash string, req wikidigest.DescribeRequest) (*wikidigest.DescriptionRecord, bool, error) {
	if rec, ok := d.Lookup(ctx, imageHash); ok {
		return rec, true, nil
	}
	rec, err := d.Generate(ctx, imageHash, req)
	if err != nil {
		return nil, false, err
	}
	return rec, false, nil
}

func (d *Descriptions) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func (d *Descriptions) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.DiscardHandler)
}
