// Package fs provides a file-based blob store.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fwojciec/wikidigest"
)

// metaSuffix names the JSON sidecar holding an artifact's metadata.
const metaSuffix = ".meta.json"

// Ensure BlobStore implements wikidigest.BlobStore at compile time.
var _ wikidigest.BlobStore = (*BlobStore)(nil)

// BlobStore implements wikidigest.BlobStore on a directory tree. Keys are
// slash-separated paths below the root. Every write goes to a temporary file
// that is renamed into place, so readers never see partial artifacts.
type BlobStore struct {
	root    string
	baseURL string
}

// NewBlobStore creates a new BlobStore rooted at dir. URLs are baseURL plus
// the key, or file URLs when baseURL is empty.
func NewBlobStore(dir, baseURL string) *BlobStore {
	return &BlobStore{root: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *BlobStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", wikidigest.Errorf(wikidigest.EINVALID, "invalid key %q", key)
	}
	if strings.HasSuffix(clean, metaSuffix) {
		return "", wikidigest.Errorf(wikidigest.EINVALID, "key %q uses a reserved suffix", key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *BlobStore) Metadata(ctx context.Context, key string) (*wikidigest.ArtifactMetadata, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p + metaSuffix)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, wikidigest.Errorf(wikidigest.ENOTFOUND, "artifact %q not found", key)
	}
	if err != nil {
		return nil, err
	}

	var meta wikidigest.ArtifactMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Put writes the artifact first and its metadata second. A crash between
// the two leaves an artifact without metadata, which reads as not stored.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte, meta wikidigest.ArtifactMetadata) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return "", err
	}

	metaData, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	if err := writeAtomic(p, data); err != nil {
		return "", err
	}
	if err := writeAtomic(p+metaSuffix, metaData); err != nil {
		return "", err
	}
	return s.URL(key), nil
}

// SetMetadata rewrites the metadata sidecar of a stored artifact.
func (s *BlobStore) SetMetadata(ctx context.Context, key string, meta wikidigest.ArtifactMetadata) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return wikidigest.Errorf(wikidigest.ENOTFOUND, "artifact %q not found", key)
	} else if err != nil {
		return err
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return writeAtomic(p+metaSuffix, data)
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, wikidigest.Errorf(wikidigest.ENOTFOUND, "artifact %q not found", key)
	}
	return data, err
}

func (s *BlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, metaSuffix) || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		if key := filepath.ToSlash(rel); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *BlobStore) URL(key string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + key
	}
	abs, err := filepath.Abs(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		abs = filepath.Join(s.root, filepath.FromSlash(key))
	}
	return "file://" + filepath.ToSlash(abs)
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
