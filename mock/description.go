package mock

import (
	"context"

	"github.com/fwojciec/wikidigest"
)

var _ wikidigest.DescriptionCache = (*DescriptionCache)(nil)

// DescriptionCache is a mock implementation of wikidigest.DescriptionCache.
type DescriptionCache struct {
	FindDescriptionFn func(ctx context.Context, imageHash string) (*wikidigest.DescriptionRecord, error)
	PutDescriptionFn  func(ctx context.Context, rec *wikidigest.DescriptionRecord) error
}

func (c *DescriptionCache) FindDescription(ctx context.Context, imageHash string) (*wikidigest.DescriptionRecord, error) {
	return c.FindDescriptionFn(ctx, imageHash)
}

func (c *DescriptionCache) PutDescription(ctx context.Context, rec *wikidigest.DescriptionRecord) error {
	return c.PutDescriptionFn(ctx, rec)
}

var _ wikidigest.Describer = (*Describer)(nil)

// Describer is a mock implementation of wikidigest.Describer.
type Describer struct {
	DescribeFn func(ctx context.Context, req wikidigest.DescribeRequest) (*wikidigest.Description, error)
}

func (d *Describer) Describe(ctx context.Context, req wikidigest.DescribeRequest) (*wikidigest.Description, error) {
	return d.DescribeFn(ctx, req)
}
