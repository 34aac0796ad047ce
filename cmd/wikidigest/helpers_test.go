package main_test

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/fwojciec/wikidigest"
	main "github.com/fwojciec/wikidigest/cmd/wikidigest"
)

// runnerFunc adapts a function to main.Runner.
type runnerFunc func(ctx context.Context, pageIDs []string, force bool) (*wikidigest.RunSummary, error)

func (f runnerFunc) Run(ctx context.Context, pageIDs []string, force bool) (*wikidigest.RunSummary, error) {
	return f(ctx, pageIDs, force)
}

// checkerFunc adapts a function to main.Checker.
type checkerFunc func(ctx context.Context, pageID string, force bool) (*wikidigest.ChangeDetection, *wikidigest.Page, error)

func (f checkerFunc) Detect(ctx context.Context, pageID string, force bool) (*wikidigest.ChangeDetection, *wikidigest.Page, error) {
	return f(ctx, pageID, force)
}

func newDeps() (*main.Dependencies, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &main.Dependencies{
		Ctx:    context.Background(),
		Stdout: stdout,
		Stderr: stderr,
		Logger: slog.New(slog.DiscardHandler),
		Config: &main.Config{SpaceKey: main.DefaultSpaceKey},
	}, stdout, stderr
}

func emptyEnv(string) string { return "" }

func intPtr(n int) *int { return &n }
