package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
)

const tagCacheKey = "community:tags"

// TagCache keeps the distinct tag list in memcached. A nil client disables it.
type TagCache struct {
	mc  *memcache.Client
	ttl time.Duration
}

func NewTagCache(mc *memcache.Client, ttl time.Duration) *TagCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TagCache{mc: mc, ttl: ttl}
}

func (c *TagCache) Get(ctx context.Context) ([]string, bool) {
	if c.mc == nil {
		return nil, false
	}

	item, err := c.mc.Get(tagCacheKey)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			slog.WarnContext(ctx, "tag cache get failed", slog.String("error", err.Error()), slog.String("module", "tagcache"))
		}
		return nil, false
	}

	var tags []string
	if err := json.Unmarshal(item.Value, &tags); err != nil {
		return nil, false
	}
	return tags, true
}

func (c *TagCache) Set(ctx context.Context, tags []string) {
	if c.mc == nil {
		return
	}

	value, err := json.Marshal(tags)
	if err != nil {
		return
	}
	err = c.mc.Set(&memcache.Item{
		Key:        tagCacheKey,
		Value:      value,
		Expiration: int32(c.ttl / time.Second),
	})
	if err != nil {
		slog.WarnContext(ctx, "tag cache set failed", slog.String("error", err.Error()), slog.String("module", "tagcache"))
	}
}

func (c *TagCache) Invalidate(ctx context.Context) {
	if c.mc == nil {
		return
	}
	err := c.mc.Delete(tagCacheKey)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		slog.WarnContext(ctx, "tag cache invalidate failed", slog.String("error", err.Error()), slog.String("module", "tagcache"))
	}
}
