package wikidigest

import (
	"context"
	"mime"
	"path"
	"strings"
)

// ArtifactMetadata is recorded next to every stored artifact.
type ArtifactMetadata struct {
	ContentHash      string `json:"contentHash"`
	OriginalFilename string `json:"originalFilename,omitempty"`
	VersionMarker    string `json:"versionMarker,omitempty"`
}

// BlobStore is a keyed binary store.
type BlobStore interface {
	// Exists reports whether an artifact is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Metadata returns the metadata recorded for key.
	// Returns ENOTFOUND if nothing is stored under key.
	Metadata(ctx context.Context, key string) (*ArtifactMetadata, error)

	// Put stores data under key and returns its URL.
	Put(ctx context.Context, key string, data []byte, meta ArtifactMetadata) (string, error)

	// SetMetadata replaces the metadata recorded for key without rewriting
	// its bytes. Returns ENOTFOUND if nothing is stored under key.
	SetMetadata(ctx context.Context, key string, meta ArtifactMetadata) error

	// Get returns the bytes stored under key.
	// Returns ENOTFOUND if nothing is stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns the keys that start with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// URL returns the URL an artifact stored under key is reachable at.
	URL(key string) string
}

// UploadResult reports what an upload-if-changed call did.
type UploadResult struct {
	Uploaded bool   `json:"uploaded"`
	URL      string `json:"url"`
	Hash     string `json:"hash"`
	Reason   string `json:"reason"`
}

var contentTypes = map[string]string{
	".json": "application/json",
	".html": "text/html; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",
	".txt":  "text/plain; charset=utf-8",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// ContentType returns the media type stored artifacts with key's extension get.
func ContentType(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
