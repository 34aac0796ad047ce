package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fwojciec/wikidigest"
)

// Compile-time interface verification.
var _ wikidigest.SnapshotService = (*SnapshotService)(nil)

// SnapshotService implements wikidigest.SnapshotService using SQLite.
// The latest snapshot of each page lives in snapshots; every version ever
// stored is kept in snapshot_history.
type SnapshotService struct {
	db *DB
}

// NewSnapshotService creates a new SnapshotService.
func NewSnapshotService(db *DB) *SnapshotService {
	return &SnapshotService{db: db}
}

// FindSnapshot retrieves the latest snapshot of a page.
func (s *SnapshotService) FindSnapshot(ctx context.Context, pageID string) (*wikidigest.PageSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT page_id, version_number, content_hash, raw_text, source_version, extracted_at
		FROM snapshots
		WHERE page_id = ?
	`, pageID)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wikidigest.Errorf(wikidigest.ENOTFOUND, "snapshot not found")
	}
	return snap, err
}

// PutSnapshot replaces the latest snapshot when the stored content hash
// still equals expectedHash, and records the version in the history.
func (s *SnapshotService) PutSnapshot(ctx context.Context, snap *wikidigest.PageSnapshot, expectedHash string) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT content_hash FROM snapshots WHERE page_id = ?", snap.PageID).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if expectedHash != "" {
			return wikidigest.Errorf(wikidigest.ECONFLICT, "snapshot of page %s was removed", snap.PageID)
		}
	case err != nil:
		return err
	case current != expectedHash:
		return wikidigest.Errorf(wikidigest.ECONFLICT, "snapshot of page %s changed concurrently", snap.PageID)
	}

	extractedAt := formatTime(snap.ExtractedAt)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (page_id, version_number, content_hash, raw_text, source_version, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(page_id) DO UPDATE SET
			version_number = excluded.version_number,
			content_hash = excluded.content_hash,
			raw_text = excluded.raw_text,
			source_version = excluded.source_version,
			extracted_at = excluded.extracted_at
	`, snap.PageID, snap.VersionNumber, snap.ContentHash, snap.RawText, snap.SourceVersion, extractedAt); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_history (page_id, version_number, content_hash, raw_text, source_version, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(page_id, version_number) DO UPDATE SET
			content_hash = excluded.content_hash,
			raw_text = excluded.raw_text,
			source_version = excluded.source_version,
			extracted_at = excluded.extracted_at
	`, snap.PageID, snap.VersionNumber, snap.ContentHash, snap.RawText, snap.SourceVersion, extractedAt); err != nil {
		return err
	}

	return tx.Commit()
}

// FindSnapshotHistory retrieves every stored version of a page, newest first.
func (s *SnapshotService) FindSnapshotHistory(ctx context.Context, pageID string) ([]*wikidigest.PageSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT page_id, version_number, content_hash, raw_text, source_version, extracted_at
		FROM snapshot_history
		WHERE page_id = ?
		ORDER BY version_number DESC
	`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*wikidigest.PageSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*wikidigest.PageSnapshot, error) {
	var snap wikidigest.PageSnapshot
	var extractedAt string

	if err := row.Scan(&snap.PageID, &snap.VersionNumber, &snap.ContentHash, &snap.RawText,
		&snap.SourceVersion, &extractedAt); err != nil {
		return nil, err
	}

	var err error
	snap.ExtractedAt, err = parseTime(extractedAt, "extracted_at")
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
