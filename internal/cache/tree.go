// Package cache provides a Redis read-through cache for the assembled
// activity tree, the hot and rarely-invalidated read of the service.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/k1nque/org-directory/internal/domain"
)

const treeKey = "directory:activity-tree"

// TreeCache caches the activity forest as a JSON blob with a TTL.
// A taxonomy insert invalidates it; until then every request for the
// tree is served from Redis.
type TreeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTreeCache constructs a TreeCache.
func NewTreeCache(client *redis.Client, ttl time.Duration) *TreeCache {
	return &TreeCache{client: client, ttl: ttl}
}

// Get returns the cached forest, or (nil, nil) on a miss.
func (c *TreeCache) Get(ctx context.Context) ([]*domain.ActivityNode, error) {
	raw, err := c.client.Get(ctx, treeKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var forest []*domain.ActivityNode
	if err := json.Unmarshal(raw, &forest); err != nil {
		// A corrupt entry behaves like a miss; the next Set overwrites it.
		return nil, nil
	}
	return forest, nil
}

// Set stores the forest with the configured TTL.
func (c *TreeCache) Set(ctx context.Context, forest []*domain.ActivityNode) error {
	raw, err := json.Marshal(forest)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, treeKey, raw, c.ttl).Err()
}

// Invalidate drops the cached forest.
func (c *TreeCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, treeKey).Err()
}
