package wikidigest

import (
	"context"
	"time"
)

// PageSnapshot is the normalized text of a page at its last check.
// VersionNumber is owned by this system and only grows when ContentHash
// changes.
type PageSnapshot struct {
	PageID        string    `json:"pageId"`
	VersionNumber int       `json:"versionNumber"`
	ContentHash   string    `json:"contentHash"`
	RawText       string    `json:"rawText"`
	SourceVersion int       `json:"sourceVersion"`
	ExtractedAt   time.Time `json:"extractedAt"`
}

// Validate returns an error if the snapshot contains invalid fields.
func (s *PageSnapshot) Validate() error {
	if s.PageID == "" {
		return Errorf(EINVALID, "snapshot page ID required")
	}
	if s.VersionNumber < 1 {
		return Errorf(EINVALID, "snapshot version number must be positive")
	}
	if s.ContentHash == "" {
		return Errorf(EINVALID, "snapshot content hash required")
	}
	return nil
}

// SnapshotService stores the latest snapshot per page.
type SnapshotService interface {
	// FindSnapshot returns the stored snapshot for a page.
	// Returns ENOTFOUND if the page was never checked.
	FindSnapshot(ctx context.Context, pageID string) (*PageSnapshot, error)

	// PutSnapshot replaces the stored snapshot if its content hash still
	// equals expectedHash. An empty expectedHash requires that no snapshot
	// exists yet. Returns ECONFLICT when the precondition fails.
	PutSnapshot(ctx context.Context, snap *PageSnapshot, expectedHash string) error

	// FindSnapshotHistory returns every stored version of a page, newest first.
	FindSnapshotHistory(ctx context.Context, pageID string) ([]*PageSnapshot, error)
}

// ChangeDetection is the outcome of checking one page.
type ChangeDetection struct {
	PageID            string        `json:"pageId"`
	HasChanges        bool          `json:"hasChanges"`
	VersionNumber     int           `json:"versionNumber"`
	PreviousVersion   *int          `json:"previousVersion"`
	ChangeSummary     string        `json:"changeSummary"`
	NeedsReprocessing bool          `json:"needsReprocessing"`
	Snapshot          *PageSnapshot `json:"snapshot,omitempty"`

	// SaveErr is set when the new snapshot could not be persisted. The rest
	// of the result is still valid.
	SaveErr error `json:"-"`
}

// ChangeDetector decides whether a page needs reprocessing.
type ChangeDetector interface {
	DetectPage(ctx context.Context, page *Page, force bool) (*ChangeDetection, error)
}
