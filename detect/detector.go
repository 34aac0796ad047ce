// Package detect decides whether a wiki page changed since it was last
// checked. It hashes the normalized page text, keeps a monotonic version
// number per page and summarizes what changed from a line-set diff.
package detect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fwojciec/wikidigest"
)

// Summaries reported when there is no diff to describe.
const (
	SummaryInitial   = "Initial extraction"
	SummaryUnchanged = "No changes detected"
)

// Ensure Detector implements wikidigest.ChangeDetector at compile time.
var _ wikidigest.ChangeDetector = (*Detector)(nil)

// Detector compares pages against their stored snapshots.
type Detector struct {
	Pages      wikidigest.PageSource
	Normalizer wikidigest.Normalizer
	Snapshots  wikidigest.SnapshotService
	Logger     *slog.Logger

	// Now returns the snapshot timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Detect fetches a page and checks it. A fetch failure fails the check;
// there is no fallback to the stored snapshot.
func (d *Detector) Detect(ctx context.Context, pageID string, force bool) (*wikidigest.ChangeDetection, *wikidigest.Page, error) {
	page, err := d.Pages.FetchPage(ctx, pageID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch page %s: %w", pageID, err)
	}
	det, err := d.DetectPage(ctx, page, force)
	if err != nil {
		return nil, nil, err
	}
	return det, page, nil
}

// DetectPage checks an already fetched page and stores its new snapshot.
// With force set, an unchanged page still asks for reprocessing but keeps
// its version.
func (d *Detector) DetectPage(ctx context.Context, page *wikidigest.Page, force bool) (*wikidigest.ChangeDetection, error) {
	raw := d.Normalizer.Normalize(page)
	hash := wikidigest.HashString(raw)

	prev, err := d.Snapshots.FindSnapshot(ctx, page.ID)
	if wikidigest.ErrorCode(err) == wikidigest.ENOTFOUND {
		prev, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find snapshot %s: %w", page.ID, err)
	}

	det := &wikidigest.ChangeDetection{PageID: page.ID}
	switch {
	case prev == nil:
		det.HasChanges = true
		det.VersionNumber = 1
		det.ChangeSummary = SummaryInitial
		det.NeedsReprocessing = true
	case prev.ContentHash == hash:
		previous := prev.VersionNumber
		det.VersionNumber = prev.VersionNumber
		det.PreviousVersion = &previous
		det.ChangeSummary = SummaryUnchanged
		det.NeedsReprocessing = force
	default:
		previous := prev.VersionNumber
		det.HasChanges = true
		det.VersionNumber = prev.VersionNumber + 1
		det.PreviousVersion = &previous
		det.ChangeSummary = Diff(prev.RawText, raw).Summary()
		det.NeedsReprocessing = true
	}

	det.Snapshot = &wikidigest.PageSnapshot{
		PageID:        page.ID,
		VersionNumber: det.VersionNumber,
		ContentHash:   hash,
		RawText:       raw,
		SourceVersion: page.Version,
		ExtractedAt:   d.now(),
	}

	var expected string
	if prev != nil {
		expected = prev.ContentHash
	}
	if err := d.Snapshots.PutSnapshot(ctx, det.Snapshot, expected); err != nil {
		d.logger().Error("save snapshot", "page", page.ID, "version", det.VersionNumber, "err", err)
		det.SaveErr = err
	}

	return det, nil
}

func (d *Detector) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func (d *Detector) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.DiscardHandler)
}
