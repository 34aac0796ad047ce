// Package cache avoids repeating expensive work for content that has not
// changed. Every decision is keyed by a hash of the bytes involved: uploads
// are skipped when the stored artifact already carries the same hash, images
// are stored under a key derived from their hash, and vision descriptions
// are cached per image hash.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/fwojciec/wikidigest"
)

// Store writes artifacts to a blob store only when their bytes changed.
type Store struct {
	Blobs  wikidigest.BlobStore
	Logger *slog.Logger
}

// NewStore creates a new Store.
func NewStore(blobs wikidigest.BlobStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{Blobs: blobs, Logger: logger}
}

// UploadIfChanged uploads data to key unless the artifact already stored
// there records the same content hash. A failed metadata read is treated as
// a miss and the upload goes ahead.
func (s *Store) UploadIfChanged(ctx context.Context, key string, data []byte, meta wikidigest.ArtifactMetadata) (*wikidigest.UploadResult, error) {
	hash := wikidigest.HashBytes(data)

	existing, err := s.Blobs.Metadata(ctx, key)
	switch {
	case err == nil && existing.ContentHash == hash:
		return &wikidigest.UploadResult{
			URL:    s.Blobs.URL(key),
			Hash:   hash,
			Reason: fmt.Sprintf("SKIPPED (unchanged, hash=%s)", wikidigest.ShortHash(hash)),
		}, nil
	case err != nil && wikidigest.ErrorCode(err) != wikidigest.ENOTFOUND:
		s.Logger.Warn("metadata lookup failed, uploading", "key", key, "err", err)
	}

	meta.ContentHash = hash
	url, err := s.Blobs.Put(ctx, key, data, meta)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	return &wikidigest.UploadResult{
		Uploaded: true,
		URL:      url,
		Hash:     hash,
		Reason:   fmt.Sprintf("UPLOADED (hash=%s)", wikidigest.ShortHash(hash)),
	}, nil
}

// UploadJSON encodes v as indented JSON and uploads it if it changed.
func (s *Store) UploadJSON(ctx context.Context, key string, v any) (*wikidigest.UploadResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	return s.UploadIfChanged(ctx, key, data, wikidigest.ArtifactMetadata{OriginalFilename: path.Base(key)})
}

// ImageKey returns the storage key of an image: the first 8 hex characters
// of its content hash and its sanitized name, under the page's images/ prefix.
func ImageKey(base, filename, hash string) string {
	ext := path.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	return fmt.Sprintf("%s/images/%s_%s%s", base, wikidigest.ShortHash(hash), wikidigest.SanitizeName(stem), ext)
}

// ImageResult locates a stored image.
type ImageResult struct {
	Key    string
	URL    string
	Hash   string
	Reused bool
}

// PutImage stores image bytes under their content-derived key. When an
// artifact already exists at that key the upload is skipped and its URL is
// reused. A reused image whose recorded version marker differs gets the new
// marker, so the next LookupImage for this version hits without a download.
func (s *Store) PutImage(ctx context.Context, base, filename string, data []byte, versionMarker string) (*ImageResult, error) {
	hash := wikidigest.HashBytes(data)
	key := ImageKey(base, filename, hash)
	meta := wikidigest.ArtifactMetadata{
		ContentHash:      hash,
		OriginalFilename: filename,
		VersionMarker:    versionMarker,
	}

	existing, err := s.Blobs.Metadata(ctx, key)
	switch {
	case err == nil:
		if *existing != meta {
			if err := s.Blobs.SetMetadata(ctx, key, meta); err != nil {
				s.Logger.Warn("version marker update failed", "key", key, "err", err)
			}
		}
		return &ImageResult{Key: key, URL: s.Blobs.URL(key), Hash: hash, Reused: true}, nil
	case wikidigest.ErrorCode(err) != wikidigest.ENOTFOUND:
		s.Logger.Warn("image metadata lookup failed, uploading", "key", key, "err", err)
	}

	url, err := s.Blobs.Put(ctx, key, data, meta)
	if err != nil {
		return nil, fmt.Errorf("upload image %s: %w", key, err)
	}
	return &ImageResult{Key: key, URL: url, Hash: hash}, nil
}

// LookupImage finds a stored image for filename whose recorded version
// marker equals versionMarker. It only reads. Any read error is a miss.
func (s *Store) LookupImage(ctx context.Context, base, filename, versionMarker string) (*ImageResult, bool) {
	keys, err := s.Blobs.List(ctx, base+"/images/")
	if err != nil {
		s.Logger.Warn("image listing failed", "base", base, "err", err)
		return nil, false
	}

	for _, key := range keys {
		meta, err := s.Blobs.Metadata(ctx, key)
		if err != nil {
			continue
		}
		if meta.OriginalFilename == filename && meta.VersionMarker == versionMarker {
			return &ImageResult{Key: key, URL: s.Blobs.URL(key), Hash: meta.ContentHash, Reused: true}, true
		}
	}
	return nil, false
}
