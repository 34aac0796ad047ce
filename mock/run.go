package mock

import (
	"context"

	"github.com/fwojciec/wikidigest"
)

var _ wikidigest.RunService = (*RunService)(nil)

// RunService is a mock implementation of wikidigest.RunService.
type RunService struct {
	CreateRunFn   func(ctx context.Context, run *wikidigest.RunSummary) error
	FindRunByIDFn func(ctx context.Context, id string) (*wikidigest.RunSummary, error)
	FindRunsFn    func(ctx context.Context, filter wikidigest.RunFilter) ([]*wikidigest.RunSummary, error)
}

func (s *RunService) CreateRun(ctx context.Context, run *wikidigest.RunSummary) error {
	return s.CreateRunFn(ctx, run)
}

func (s *RunService) FindRunByID(ctx context.Context, id string) (*wikidigest.RunSummary, error) {
	return s.FindRunByIDFn(ctx, id)
}

func (s *RunService) FindRuns(ctx context.Context, filter wikidigest.RunFilter) ([]*wikidigest.RunSummary, error) {
	return s.FindRunsFn(ctx, filter)
}
