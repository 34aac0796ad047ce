package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/wikidigest"
)

// VersionEntry is one processed version in a page manifest.
type VersionEntry struct {
	Version           int       `json:"version"`
	ProcessedAt       time.Time `json:"processedAt"`
	ImagesCount       int       `json:"imagesCount"`
	DescriptionsCount int       `json:"descriptionsCount"`
	ChangeSummary     string    `json:"changeSummary"`
}

// PageManifest lists the processed versions of a page.
type PageManifest struct {
	PageID        string         `json:"pageId"`
	Title         string         `json:"title"`
	LatestVersion int            `json:"latestVersion"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Versions      []VersionEntry `json:"versions"`
}

// ManifestKey returns the key of a page manifest.
func ManifestKey(base string) string {
	return base + "/metadata.json"
}

// VersionKey returns the key of a stored page document version.
func VersionKey(base string, version int) string {
	return fmt.Sprintf("%s/versions/v%d.json", base, version)
}

// RecordVersion adds entry to the page manifest, replacing an entry for the
// same version. An unreadable manifest is started over.
func (s *Store) RecordVersion(ctx context.Context, base, pageID, title string, entry VersionEntry) (*wikidigest.UploadResult, error) {
	key := ManifestKey(base)

	var m PageManifest
	data, err := s.Blobs.Get(ctx, key)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &m); err != nil {
			s.Logger.Warn("manifest unreadable, starting over", "key", key, "err", err)
			m = PageManifest{}
		}
	case wikidigest.ErrorCode(err) != wikidigest.ENOTFOUND:
		s.Logger.Warn("manifest read failed, starting over", "key", key, "err", err)
	}

	m.PageID = pageID
	m.Title = title
	m.UpdatedAt = entry.ProcessedAt

	replaced := false
	for i := range m.Versions {
		if m.Versions[i].Version == entry.Version {
			m.Versions[i] = entry
			replaced = true
		}
	}
	if !replaced {
		m.Versions = append(m.Versions, entry)
	}
	m.LatestVersion = max(m.LatestVersion, entry.Version)

	return s.UploadJSON(ctx, key, m)
}
