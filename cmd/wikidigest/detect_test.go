package main_test

import (
	"context"
	"testing"

	"github.com/fwojciec/wikidigest"
	main "github.com/fwojciec/wikidigest/cmd/wikidigest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("reports each page", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		deps.Config.PageIDs = []string{"1", "2"}
		deps.Checker = checkerFunc(func(_ context.Context, id string, force bool) (*wikidigest.ChangeDetection, *wikidigest.Page, error) {
			assert.False(t, force)
			if id == "1" {
				return &wikidigest.ChangeDetection{
					PageID:          id,
					HasChanges:      true,
					VersionNumber:   3,
					PreviousVersion: intPtr(2),
					ChangeSummary:   "NEW SECTION: Hotfixes\nCONTENT ADDED: 2 items",
				}, &wikidigest.Page{ID: id, Title: "Runbook"}, nil
			}
			return &wikidigest.ChangeDetection{
				PageID:          id,
				VersionNumber:   1,
				PreviousVersion: intPtr(1),
				ChangeSummary:   "No changes detected",
			}, &wikidigest.Page{ID: id, Title: "Onboarding"}, nil
		})

		err := (&main.DetectCmd{}).Run(deps)

		require.NoError(t, err)
		out := stdout.String()
		assert.Contains(t, out, "Runbook")
		assert.Contains(t, out, "v2 → v3")
		assert.Contains(t, out, "NEW SECTION: Hotfixes")
		assert.NotContains(t, out, "CONTENT ADDED")
		assert.Contains(t, out, "Onboarding")
		assert.Contains(t, out, "Preview only")
	})

	t.Run("saved detection omits the preview note", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		deps.Checker = checkerFunc(func(_ context.Context, id string, _ bool) (*wikidigest.ChangeDetection, *wikidigest.Page, error) {
			return &wikidigest.ChangeDetection{PageID: id, HasChanges: true, VersionNumber: 1}, &wikidigest.Page{ID: id}, nil
		})

		err := (&main.DetectCmd{PageIDs: []string{"7"}, Save: true}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "v1 (new)")
		assert.NotContains(t, stdout.String(), "Preview only")
	})

	t.Run("failed page is reported and the rest continue", func(t *testing.T) {
		t.Parallel()

		deps, stdout, _ := newDeps()
		var checked []string
		deps.Checker = checkerFunc(func(_ context.Context, id string, _ bool) (*wikidigest.ChangeDetection, *wikidigest.Page, error) {
			checked = append(checked, id)
			if id == "1" {
				return nil, nil, wikidigest.Errorf(wikidigest.ENOTFOUND, "page 1 not found")
			}
			return &wikidigest.ChangeDetection{PageID: id, VersionNumber: 1}, &wikidigest.Page{ID: id}, nil
		})

		err := (&main.DetectCmd{PageIDs: []string{"1", "2"}}).Run(deps)

		require.Error(t, err)
		assert.Equal(t, []string{"1", "2"}, checked)
		assert.Contains(t, stdout.String(), "error: page 1 not found")
		assert.Equal(t, "1 of 2 pages could not be checked", wikidigest.ErrorMessage(err))
	})

	t.Run("no pages is invalid", func(t *testing.T) {
		t.Parallel()

		deps, _, _ := newDeps()

		err := (&main.DetectCmd{}).Run(deps)

		assert.Equal(t, wikidigest.EINVALID, wikidigest.ErrorCode(err))
	})
}
