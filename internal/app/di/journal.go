package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	journaladapters "lumina_backend/internal/feature/journal/adapters"
	journalusecase "lumina_backend/internal/feature/journal/usecase"
	"lumina_backend/internal/platform/cache"
)

// NewEntryRepository creates the entry store, wrapped with a Redis read-through
// cache when Redis is available.
func NewEntryRepository(db *gorm.DB, rdb *redis.Client, ttl time.Duration) journalusecase.EntryRepository {
	repo := journaladapters.NewEntryRepository(db)
	if rdb == nil {
		return repo
	}
	return cache.NewCachingEntryRepository(rdb, ttl, repo, "entries")
}
