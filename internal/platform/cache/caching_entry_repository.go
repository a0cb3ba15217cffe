// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"lumina_backend/internal/feature/journal/domain/entity"
	"lumina_backend/internal/feature/journal/usecase"
	"lumina_backend/internal/platform/metrics"
)

// CachingEntryRepository decorates an EntryRepository with a Redis read-through
// cache of each owner's entry list. Writes go to the inner repository first and
// then invalidate the owner's cached list.
type CachingEntryRepository struct {
	inner     usecase.EntryRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.EntryRepository = (*CachingEntryRepository)(nil)

// NewCachingEntryRepository decorates an EntryRepository with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "entries".
// A nil rdb disables caching entirely.
func NewCachingEntryRepository(rdb *redis.Client, ttl time.Duration, inner usecase.EntryRepository, namespace string) *CachingEntryRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "entries"
	}
	return &CachingEntryRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// ListByOwner returns the owner's entries, checking the cache first.
func (c *CachingEntryRepository) ListByOwner(ctx context.Context, ownerID string) ([]entity.Entry, error) {
	if c.rdb == nil {
		return c.inner.ListByOwner(ctx, ownerID)
	}

	key := c.ownerKey(ownerID)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.Entry
		if err := json.Unmarshal(b, &out); err == nil {
			metrics.CacheHits.WithLabelValues(c.namespace).Inc()
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}
	metrics.CacheMisses.WithLabelValues(c.namespace).Inc()

	// 2) Fallback to database
	out, err := c.inner.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	return out, nil
}

// FindByID is not cached; saves re-read the authoritative row.
func (c *CachingEntryRepository) FindByID(ctx context.Context, id string) (entity.Entry, error) {
	return c.inner.FindByID(ctx, id)
}

// Upsert writes the entry and invalidates its owner's cached list.
func (c *CachingEntryRepository) Upsert(ctx context.Context, e entity.Entry) error {
	if err := c.inner.Upsert(ctx, e); err != nil {
		return err
	}
	c.invalidateOwner(ctx, e.UserID)
	return nil
}

// Delete removes the entry and invalidates its owner's cached list.
// When the owner cannot be determined beforehand every list in the namespace is dropped.
func (c *CachingEntryRepository) Delete(ctx context.Context, id string) error {
	var ownerID string
	if c.rdb != nil {
		if e, err := c.inner.FindByID(ctx, id); err == nil {
			ownerID = e.UserID
		}
	}

	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	if c.rdb == nil {
		return nil
	}

	if ownerID != "" {
		c.invalidateOwner(ctx, ownerID)
		return nil
	}
	if err := c.deleteByPattern(ctx, c.namespace+":owner:*"); err != nil {
		slog.Warn("cache invalidation failed", "namespace", c.namespace, "error", err)
	}
	return nil
}

func (c *CachingEntryRepository) invalidateOwner(ctx context.Context, ownerID string) {
	if c.rdb == nil {
		return
	}
	// Best effort: the TTL bounds staleness if deletion fails
	if err := c.rdb.Del(ctx, c.ownerKey(ownerID)).Err(); err != nil {
		slog.Warn("cache invalidation failed", "namespace", c.namespace, "user_id", ownerID, "error", err)
	}
}

// ownerKey generates the cache key of an owner's entry list.
func (c *CachingEntryRepository) ownerKey(ownerID string) string {
	return fmt.Sprintf("%s:owner:%s", c.namespace, safe(ownerID))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingEntryRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, "*", "_")
	return s
}
