package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T, ttl time.Duration) (*redis.DescriptionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := redis.Open(mr.Addr(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestDescriptionCache(t *testing.T) {
	t.Parallel()

	t.Run("miss is not found", func(t *testing.T) {
		t.Parallel()

		c, _ := setupCache(t, 0)

		_, err := c.FindDescription(context.Background(), "abc")

		assert.Equal(t, wikidigest.ENOTFOUND, wikidigest.ErrorCode(err))
	})

	t.Run("stored record reads back", func(t *testing.T) {
		t.Parallel()

		c, mr := setupCache(t, 0)
		ctx := context.Background()
		rec := &wikidigest.DescriptionRecord{
			ImageHash:   "abc",
			Filename:    "flow.png",
			Description: "A flowchart.",
			ImageType:   wikidigest.ImageFlowchart,
			TokensUsed:  120,
			GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		require.NoError(t, c.PutDescription(ctx, rec))
		found, err := c.FindDescription(ctx, "abc")

		require.NoError(t, err)
		assert.Equal(t, rec, found)
		assert.True(t, mr.Exists("wikidigest:description:abc"))
		assert.Zero(t, mr.TTL("wikidigest:description:abc"))
	})

	t.Run("ttl is applied when set", func(t *testing.T) {
		t.Parallel()

		c, mr := setupCache(t, time.Hour)

		require.NoError(t, c.PutDescription(context.Background(), &wikidigest.DescriptionRecord{ImageHash: "h"}))

		assert.Equal(t, time.Hour, mr.TTL("wikidigest:description:h"))
	})

	t.Run("record without hash is invalid", func(t *testing.T) {
		t.Parallel()

		c, _ := setupCache(t, 0)

		err := c.PutDescription(context.Background(), &wikidigest.DescriptionRecord{})

		assert.Equal(t, wikidigest.EINVALID, wikidigest.ErrorCode(err))
	})
}

func TestOpen(t *testing.T) {
	t.Parallel()

	_, err := redis.Open("", 0)
	assert.Equal(t, wikidigest.EINVALID, wikidigest.ErrorCode(err))

	_, err = redis.Open("redis://%%bad", 0)
	assert.Equal(t, wikidigest.EINVALID, wikidigest.ErrorCode(err))
}
