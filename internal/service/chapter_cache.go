package service

import (
	"context"
	"errors"

	"voltage-backend/internal/models"
	"voltage-backend/pkg/cache"
	"voltage-backend/pkg/logger"
)

// RedisChapterCache adapts the shared cache to ChapterCache. Failures are
// logged and treated as misses.
type RedisChapterCache struct {
	cache *cache.Cache
}

func NewRedisChapterCache(c *cache.Cache) *RedisChapterCache {
	return &RedisChapterCache{cache: c}
}

func (r *RedisChapterCache) GetChapters(ctx context.Context, grade int) ([]models.Chapter, bool) {
	if !r.cache.Enabled() {
		return nil, false
	}

	var chapters []models.Chapter
	if err := r.cache.GetCachedChapters(ctx, grade, &chapters); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("Failed to read chapter cache", map[string]interface{}{"grade": grade, "error": err.Error()})
		}
		return nil, false
	}
	return chapters, true
}

func (r *RedisChapterCache) SetChapters(ctx context.Context, grade int, chapters []models.Chapter) {
	if err := r.cache.CacheChapters(ctx, grade, chapters); err != nil {
		logger.Warn("Failed to populate chapter cache", map[string]interface{}{"grade": grade, "error": err.Error()})
	}
}

func (r *RedisChapterCache) InvalidateChapters(ctx context.Context) {
	if err := r.cache.InvalidateChaptersCache(ctx); err != nil {
		logger.Warn("Failed to invalidate chapter cache", map[string]interface{}{"error": err.Error()})
	}
}
