package cache_test

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/mock"
)

// memoryBlobs is an in-memory blob store built on the mock, recording how
// many times each operation was called.
type memoryBlobs struct {
	mu    sync.Mutex
	data  map[string][]byte
	meta  map[string]wikidigest.ArtifactMetadata
	puts  []string
	gets  int
	sets  int
	store *mock.BlobStore
}

func newMemoryBlobs() *memoryBlobs {
	m := &memoryBlobs{
		data: make(map[string][]byte),
		meta: make(map[string]wikidigest.ArtifactMetadata),
	}
	m.store = &mock.BlobStore{
		ExistsFn: func(ctx context.Context, key string) (bool, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			_, ok := m.data[key]
			return ok, nil
		},
		MetadataFn: func(ctx context.Context, key string) (*wikidigest.ArtifactMetadata, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			meta, ok := m.meta[key]
			if !ok {
				return nil, wikidigest.Errorf(wikidigest.ENOTFOUND, "not found")
			}
			return &meta, nil
		},
		PutFn: func(ctx context.Context, key string, data []byte, meta wikidigest.ArtifactMetadata) (string, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.data[key] = data
			m.meta[key] = meta
			m.puts = append(m.puts, key)
			return "mem://" + key, nil
		},
		SetMetadataFn: func(ctx context.Context, key string, meta wikidigest.ArtifactMetadata) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.data[key]; !ok {
				return wikidigest.Errorf(wikidigest.ENOTFOUND, "not found")
			}
			m.meta[key] = meta
			m.sets++
			return nil
		},
		GetFn: func(ctx context.Context, key string) ([]byte, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.gets++
			data, ok := m.data[key]
			if !ok {
				return nil, wikidigest.Errorf(wikidigest.ENOTFOUND, "not found")
			}
			return data, nil
		},
		ListFn: func(ctx context.Context, prefix string) ([]string, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			var keys []string
			for key := range m.data {
				if strings.HasPrefix(key, prefix) {
					keys = append(keys, key)
				}
			}
			sort.Strings(keys)
			return keys, nil
		},
		URLFn: func(key string) string {
			return "mem://" + key
		},
	}
	return m
}

func (m *memoryBlobs) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.puts)
}
