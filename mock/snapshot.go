package mock

import (
	"context"

	"github.com/fwojciec/wikidigest"
)

var _ wikidigest.SnapshotService = (*SnapshotService)(nil)

// SnapshotService is a mock implementation of wikidigest.SnapshotService.
type SnapshotService struct {
	FindSnapshotFn        func(ctx context.Context, pageID string) (*wikidigest.PageSnapshot, error)
	PutSnapshotFn         func(ctx context.Context, snap *wikidigest.PageSnapshot, expectedHash string) error
	FindSnapshotHistoryFn func(ctx context.Context, pageID string) ([]*wikidigest.PageSnapshot, error)
}

func (s *SnapshotService) FindSnapshot(ctx context.Context, pageID string) (*wikidigest.PageSnapshot, error) {
	return s.FindSnapshotFn(ctx, pageID)
}

func (s *SnapshotService) PutSnapshot(ctx context.Context, snap *wikidigest.PageSnapshot, expectedHash string) error {
	return s.PutSnapshotFn(ctx, snap, expectedHash)
}

func (s *SnapshotService) FindSnapshotHistory(ctx context.Context, pageID string) ([]*wikidigest.PageSnapshot, error) {
	return s.FindSnapshotHistoryFn(ctx, pageID)
}
