package cache_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/cache"
	"github.com/fwojciec/wikidigest/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_UploadIfChanged(t *testing.T) {
	t.Parallel()

	t.Run("identical content is skipped and keeps its hash", func(t *testing.T) {
		t.Parallel()

		blobs := newMemoryBlobs()
		store := cache.NewStore(blobs.store, nil)
		ctx := context.Background()

		first, err := store.UploadIfChanged(ctx, "S/P_1/versions/v1.json", []byte(`{"a":1}`), wikidigest.ArtifactMetadata{})
		require.NoError(t, err)
		second, err := store.UploadIfChanged(ctx, "S/P_1/versions/v1.json", []byte(`{"a":1}`), wikidigest.ArtifactMetadata{})
		require.NoError(t, err)

		assert.True(t, first.Uploaded)
		assert.False(t, second.Uploaded)
		assert.Equal(t, first.Hash, second.Hash)
		assert.Equal(t, "SKIPPED (unchanged, hash="+first.Hash[:8]+")", second.Reason)
		assert.Equal(t, "mem://S/P_1/versions/v1.json", second.URL)
		assert.Equal(t, 1, blobs.putCount())
	})

	t.Run("different content is uploaded and records the new hash", func(t *testing.T) {
		t.Parallel()

		blobs := newMemoryBlobs()
		store := cache.NewStore(blobs.store, nil)
		ctx := context.Background()

		first, err := store.UploadIfChanged(ctx, "k.json", []byte("one"), wikidigest.ArtifactMetadata{})
		require.NoError(t, err)
		second, err := store.UploadIfChanged(ctx, "k.json", []byte("two"), wikidigest.ArtifactMetadata{})
		require.NoError(t, err)

		assert.True(t, second.Uploaded)
		assert.NotEqual(t, first.Hash, second.Hash)
		assert.Equal(t, wikidigest.HashString("two"), second.Hash)
		assert.Equal(t, "UPLOADED (hash="+second.Hash[:8]+")", second.Reason)

		meta, err := blobs.store.Metadata(ctx, "k.json")
		require.NoError(t, err)
		assert.Equal(t, second.Hash, meta.ContentHash)
	})

	t.Run("metadata read failure is treated as a miss", func(t *testing.T) {
		t.Parallel()

		var put bool
		store := cache.NewStore(&mock.BlobStore{
			MetadataFn: func(ctx context.Context, key string) (*wikidigest.ArtifactMetadata, error) {
				return nil, errors.New("boom")
			},
			PutFn: func(ctx context.Context, key string, data []byte, meta wikidigest.ArtifactMetadata) (string, error) {
				put = true
				return "u", nil
			},
		}, nil)

		res, err := store.UploadIfChanged(context.Background(), "k", []byte("x"), wikidigest.ArtifactMetadata{})

		require.NoError(t, err)
		assert.True(t, put)
		assert.True(t, res.Uploaded)
	})

	t.Run("upload failure is returned", func(t *testing.T) {
		t.Parallel()

		store := cache.NewStore(&mock.BlobStore{
			MetadataFn: func(ctx context.Context, key string) (*wikidigest.ArtifactMetadata, error) {
				return nil, wikidigest.Errorf(wikidigest.ENOTFOUND, "missing")
			},
			PutFn: func(ctx context.Context, key string, data []byte, meta wikidigest.ArtifactMetadata) (string, error) {
				return "", errors.New("denied")
			},
		}, nil)

		_, err := store.UploadIfChanged(context.Background(), "k", []byte("x"), wikidigest.ArtifactMetadata{})

		assert.ErrorContains(t, err, "denied")
	})
}

func TestImageKey(t *testing.T) {
	t.Parallel()

	hash := wikidigest.HashString("image")

	assert.Equal(t, "S/P_1/images/"+hash[:8]+"_My_Diagram.png", cache.ImageKey("S/P_1", "My Diagram!.png", hash))
}

func TestStore_PutImage(t *testing.T) {
	t.Parallel()

	t.Run("identical bytes for a new version reuse the stored image", func(t *testing.T) {
		t.Parallel()

		blobs := newMemoryBlobs()
		store := cache.NewStore(blobs.store, nil)
		ctx := context.Background()

		first, err := store.PutImage(ctx, "S/P_1", "a.png", []byte("pixels"), "m1")
		require.NoError(t, err)
		second, err := store.PutImage(ctx, "S/P_1", "a.png", []byte("pixels"), "m2")
		require.NoError(t, err)

		assert.False(t, first.Reused)
		assert.True(t, second.Reused)
		assert.Equal(t, first.Key, second.Key)
		assert.Equal(t, first.Hash, second.Hash)
		assert.Equal(t, 1, blobs.putCount())

		meta, err := blobs.store.Metadata(ctx, second.Key)
		require.NoError(t, err)
		assert.Equal(t, "m2", meta.VersionMarker)
		got, ok := store.LookupImage(ctx, "S/P_1", "a.png", "m2")
		require.True(t, ok)
		assert.Equal(t, second.Key, got.Key)
	})

	t.Run("reuse with an unchanged marker leaves the metadata alone", func(t *testing.T) {
		t.Parallel()

		blobs := newMemoryBlobs()
		store := cache.NewStore(blobs.store, nil)
		ctx := context.Background()

		_, err := store.PutImage(ctx, "S/P_1", "a.png", []byte("pixels"), "m1")
		require.NoError(t, err)
		second, err := store.PutImage(ctx, "S/P_1", "a.png", []byte("pixels"), "m1")
		require.NoError(t, err)

		assert.True(t, second.Reused)
		assert.Equal(t, 0, blobs.sets)
	})

	t.Run("failed metadata update still reuses the stored image", func(t *testing.T) {
		t.Parallel()

		blobs := newMemoryBlobs()
		blobs.store.SetMetadataFn = func(ctx context.Context, key string, meta wikidigest.ArtifactMetadata) error {
			return wikidigest.Errorf(wikidigest.EUNAVAILABLE, "throttled")
		}
		store := cache.NewStore(blobs.store, nil)
		ctx := context.Background()

		_, err := store.PutImage(ctx, "S/P_1", "a.png", []byte("pixels"), "m1")
		require.NoError(t, err)
		second, err := store.PutImage(ctx, "S/P_1", "a.png", []byte("pixels"), "m2")
		require.NoError(t, err)

		assert.True(t, second.Reused)
		assert.Equal(t, 1, blobs.putCount())
	})

	t.Run("new bytes get a new key", func(t *testing.T) {
		t.Parallel()

		blobs := newMemoryBlobs()
		store := cache.NewStore(blobs.store, nil)
		ctx := context.Background()

		first, err := store.PutImage(ctx, "S/P_1", "a.png", []byte("v1"), "m1")
		require.NoError(t, err)
		second, err := store.PutImage(ctx, "S/P_1", "a.png", []byte("v2"), "m2")
		require.NoError(t, err)

		assert.NotEqual(t, first.Key, second.Key)
		assert.Equal(t, 2, blobs.putCount())
	})
}

func TestStore_LookupImage(t *testing.T) {
	t.Parallel()

	blobs := newMemoryBlobs()
	store := cache.NewStore(blobs.store, nil)
	ctx := context.Background()

	stored, err := store.PutImage(ctx, "S/P_1", "chart.png", []byte("bytes"), "marker-1")
	require.NoError(t, err)

	t.Run("matching name and marker is a hit", func(t *testing.T) {
		t.Parallel()

		got, ok := store.LookupImage(ctx, "S/P_1", "chart.png", "marker-1")

		require.True(t, ok)
		assert.Equal(t, stored.Key, got.Key)
		assert.Equal(t, stored.Hash, got.Hash)
		assert.Equal(t, stored.URL, got.URL)
	})

	t.Run("changed marker is a miss", func(t *testing.T) {
		t.Parallel()

		_, ok := store.LookupImage(ctx, "S/P_1", "chart.png", "marker-2")

		assert.False(t, ok)
	})

	t.Run("listing failure is a miss", func(t *testing.T) {
		t.Parallel()

		failing := cache.NewStore(&mock.BlobStore{
			ListFn: func(ctx context.Context, prefix string) ([]string, error) {
				return nil, errors.New("unavailable")
			},
		}, nil)

		_, ok := failing.LookupImage(ctx, "S/P_1", "chart.png", "marker-1")

		assert.False(t, ok)
	})
}

func TestVersionMarker(t *testing.T) {
	t.Parallel()

	base := cache.VersionMarker("a.png", 1, 100)

	assert.Len(t, base, 16)
	assert.Equal(t, base, cache.VersionMarker("a.png", 1, 100))
	assert.NotEqual(t, base, cache.VersionMarker("a.png", 2, 100))
	assert.NotEqual(t, base, cache.VersionMarker("a.png", 1, 101))
	assert.NotEqual(t, base, cache.VersionMarker("b.png", 1, 100))
	assert.NotEqual(t, cache.URLVersionMarker("https://x/a.png"), cache.URLVersionMarker("https://x/b.png"))
}
