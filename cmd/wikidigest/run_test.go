package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/fwojciec/wikidigest"
	main "github.com/fwojciec/wikidigest/cmd/wikidigest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCmd_Run(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("prints results and totals", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		deps.Config.PageIDs = []string{"1", "2"}
		var gotIDs []string
		var gotForce bool
		deps.Runner = runnerFunc(func(_ context.Context, ids []string, force bool) (*wikidigest.RunSummary, error) {
			gotIDs, gotForce = ids, force
			return &wikidigest.RunSummary{
				StartedAt:        started,
				FinishedAt:       started.Add(time.Minute),
				PagesProcessed:   2,
				PagesWithChanges: 1,
				PagesSuccessful:  2,
				Stats:            wikidigest.RunStats{NotificationsSent: 3, ChunksIndexed: 7, BytesSaved: 2048},
				Results: []*wikidigest.PageResult{
					{PageID: "1", Title: "Runbook", Success: true, HasChanges: true, Version: 2, PreviousVersion: intPtr(1),
						StepsCompleted: []wikidigest.Step{wikidigest.StepChangeDetection}},
					{PageID: "2", Title: "Onboarding", Success: true, Version: 4, PreviousVersion: intPtr(4),
						StepsCompleted: []wikidigest.Step{wikidigest.StepChangeDetection}},
				},
			}, nil
		})

		err := (&main.RunCmd{Force: true}).Run(deps)

		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, gotIDs)
		assert.True(t, gotForce)
		out := stdout.String()
		assert.Contains(t, out, "Runbook")
		assert.Contains(t, out, "v1 → v2")
		assert.Contains(t, out, "v4")
		assert.Contains(t, out, "7 chunks indexed")
		assert.Contains(t, out, "Notifications: 3 sent, 0 failed")
		assert.Contains(t, out, "2.0 KB saved")
	})

	t.Run("arguments override configured pages", func(t *testing.T) {
		t.Parallel()

		deps, _, _ := newDeps()
		deps.Config.PageIDs = []string{"1", "2"}
		var gotIDs []string
		deps.Runner = runnerFunc(func(_ context.Context, ids []string, _ bool) (*wikidigest.RunSummary, error) {
			gotIDs = ids
			return &wikidigest.RunSummary{}, nil
		})

		err := (&main.RunCmd{PageIDs: []string{"9"}}).Run(deps)

		require.NoError(t, err)
		assert.Equal(t, []string{"9"}, gotIDs)
	})

	t.Run("failed pages make the command fail", func(t *testing.T) {
		t.Parallel()

		deps, stdout, stderr := newDeps()
		deps.Runner = runnerFunc(func(_ context.Context, _ []string, _ bool) (*wikidigest.RunSummary, error) {
			return &wikidigest.RunSummary{
				PagesProcessed:  2,
				PagesSuccessful: 1,
				Results: []*wikidigest.PageResult{
					{PageID: "1", Success: true},
					{PageID: "2", Error: "change_detection: not found", StepsFailed: []wikidigest.Step{wikidigest.StepChangeDetection}},
				},
			}, nil
		})

		err := (&main.RunCmd{PageIDs: []string{"1", "2"}}).Run(deps)

		require.Error(t, err)
		assert.Equal(t, "1 of 2 pages failed", wikidigest.ErrorMessage(err))
		assert.Contains(t, stdout.String(), "FAILED: change_detection: not found")
		assert.NotContains(t, stderr.String(), "--force")
	})

	t.Run("failed indexing suggests a forced rerun", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := newDeps()
		deps.Runner = runnerFunc(func(_ context.Context, _ []string, _ bool) (*wikidigest.RunSummary, error) {
			return &wikidigest.RunSummary{
				PagesProcessed: 1,
				Results: []*wikidigest.PageResult{
					{PageID: "1", HasChanges: true, Error: "indexing: unavailable", StepsFailed: []wikidigest.Step{wikidigest.StepIndexing}},
				},
			}, nil
		})

		err := (&main.RunCmd{PageIDs: []string{"1"}}).Run(deps)

		require.Error(t, err)
		assert.Contains(t, stderr.String(), "rerun with --force")
	})

	t.Run("interrupted run still prints partial results", func(t *testing.T) {
		t.Parallel()

		deps, stdout, stderr := newDeps()
		deps.Runner = runnerFunc(func(_ context.Context, _ []string, _ bool) (*wikidigest.RunSummary, error) {
			return &wikidigest.RunSummary{
				PagesProcessed:  1,
				PagesSuccessful: 1,
				Results:         []*wikidigest.PageResult{{PageID: "1", Title: "Runbook", Success: true}},
			}, context.Canceled
		})

		err := (&main.RunCmd{PageIDs: []string{"1", "2"}}).Run(deps)

		require.ErrorIs(t, err, context.Canceled)
		assert.Contains(t, stdout.String(), "Runbook")
		assert.Contains(t, stderr.String(), "run interrupted")
	})

	t.Run("no pages is invalid", func(t *testing.T) {
		t.Parallel()

		deps, _, stderr := newDeps()

		err := (&main.RunCmd{}).Run(deps)

		assert.Equal(t, wikidigest.EINVALID, wikidigest.ErrorCode(err))
		assert.Contains(t, stderr.String(), "PAGE_IDS")
	})
}
