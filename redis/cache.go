// Package redis implements wikidigest.DescriptionCache on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fwojciec/wikidigest"
)

// keyPrefix is the Redis key prefix for cached descriptions.
const keyPrefix = "wikidigest:description:"

// Ensure DescriptionCache implements wikidigest.DescriptionCache at compile time.
var _ wikidigest.DescriptionCache = (*DescriptionCache)(nil)

// DescriptionCache stores one JSON record per image hash. Records do not
// expire unless a TTL is set: a hash always describes the same bytes.
type DescriptionCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// Open connects to addr, either host:port or a redis:// URL.
func Open(addr string, ttl time.Duration) (*DescriptionCache, error) {
	if addr == "" {
		return nil, wikidigest.Errorf(wikidigest.EINVALID, "redis address required")
	}

	opts := &goredis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		var err error
		opts, err = goredis.ParseURL(addr)
		if err != nil {
			return nil, wikidigest.Errorf(wikidigest.EINVALID, "invalid redis URL: %v", err)
		}
	}
	return NewDescriptionCache(goredis.NewClient(opts), ttl), nil
}

// NewDescriptionCache creates a new DescriptionCache on an existing client.
func NewDescriptionCache(client *goredis.Client, ttl time.Duration) *DescriptionCache {
	return &DescriptionCache{client: client, ttl: ttl}
}

// FindDescription returns the record cached for imageHash.
func (c *DescriptionCache) FindDescription(ctx context.Context, imageHash string) (*wikidigest.DescriptionRecord, error) {
	data, err := c.client.Get(ctx, keyPrefix+imageHash).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, wikidigest.Errorf(wikidigest.ENOTFOUND, "description not cached")
	}
	if err != nil {
		return nil, fmt.Errorf("get description: %w", err)
	}

	var rec wikidigest.DescriptionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode description: %w", err)
	}
	return &rec, nil
}

// PutDescription caches rec under its image hash.
func (c *DescriptionCache) PutDescription(ctx context.Context, rec *wikidigest.DescriptionRecord) error {
	if rec.ImageHash == "" {
		return wikidigest.Errorf(wikidigest.EINVALID, "image hash required")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode description: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+rec.ImageHash, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set description: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *DescriptionCache) Close() error {
	return c.client.Close()
}
