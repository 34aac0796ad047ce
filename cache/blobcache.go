package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fwojciec/wikidigest"
)

// Ensure BlobDescriptionCache implements wikidigest.DescriptionCache at compile time.
var _ wikidigest.DescriptionCache = (*BlobDescriptionCache)(nil)

// BlobDescriptionCache keeps descriptions as JSON documents in the blob
// store, one per image hash. It serves deployments without a key-value
// store.
type BlobDescriptionCache struct {
	Store *Store
}

// DescriptionKey returns the storage key of a cached description.
func DescriptionKey(imageHash string) string {
	return "descriptions/" + imageHash + ".json"
}

// FindDescription reads the description stored for imageHash.
func (c *BlobDescriptionCache) FindDescription(ctx context.Context, imageHash string) (*wikidigest.DescriptionRecord, error) {
	data, err := c.Store.Blobs.Get(ctx, DescriptionKey(imageHash))
	if err != nil {
		return nil, err
	}
	var rec wikidigest.DescriptionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, wikidigest.Errorf(wikidigest.EINTERNAL, "decode description %s: %v", wikidigest.ShortHash(imageHash), err)
	}
	return &rec, nil
}

// PutDescription stores rec under its image hash.
func (c *BlobDescriptionCache) PutDescription(ctx context.Context, rec *wikidigest.DescriptionRecord) error {
	if rec.ImageHash == "" {
		return wikidigest.Errorf(wikidigest.EINVALID, "image hash required")
	}
	if _, err := c.Store.UploadJSON(ctx, DescriptionKey(rec.ImageHash), rec); err != nil {
		return fmt.Errorf("cache description: %w", err)
	}
	return nil
}
