// Package attempts tracks when a student opened a quiz so the submission can
// be stamped with the elapsed time.
package attempts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voltage-backend/pkg/cache"
)

const defaultTTL = 24 * time.Hour

func attemptKey(studentID, quizID uint) string {
	return fmt.Sprintf("quiz_attempt:%d:%d", studentID, quizID)
}

// RedisClock keeps start times in Redis so every API replica sees them.
type RedisClock struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewRedisClock(c *cache.Cache, ttl time.Duration) *RedisClock {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisClock{cache: c, ttl: ttl}
}

func (r *RedisClock) Start(ctx context.Context, studentID, quizID uint, at time.Time) error {
	return r.cache.Set(ctx, attemptKey(studentID, quizID), at.UTC(), r.ttl)
}

func (r *RedisClock) StartedAt(ctx context.Context, studentID, quizID uint) (time.Time, bool, error) {
	var startedAt time.Time
	err := r.cache.Get(ctx, attemptKey(studentID, quizID), &startedAt)
	switch {
	case err == nil:
		return startedAt, true, nil
	case errors.Is(err, cache.ErrCacheMiss), errors.Is(err, cache.ErrCacheDisabled):
		return time.Time{}, false, nil
	default:
		return time.Time{}, false, err
	}
}

func (r *RedisClock) Clear(ctx context.Context, studentID, quizID uint) error {
	return r.cache.Delete(ctx, attemptKey(studentID, quizID))
}

type memoryEntry struct {
	startedAt time.Time
	expiresAt time.Time
}

// MemoryClock is the single-process fallback used when Redis is disabled.
type MemoryClock struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryClock(ttl time.Duration) *MemoryClock {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryClock{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryClock) Start(_ context.Context, studentID, quizID uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
		}
	}
	m.entries[attemptKey(studentID, quizID)] = memoryEntry{startedAt: at, expiresAt: now.Add(m.ttl)}
	return nil
}

func (m *MemoryClock) StartedAt(_ context.Context, studentID, quizID uint) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := attemptKey(studentID, quizID)
	entry, ok := m.entries[key]
	if !ok {
		return time.Time{}, false, nil
	}
	if m.now().After(entry.expiresAt) {
		delete(m.entries, key)
		return time.Time{}, false, nil
	}
	return entry.startedAt, true, nil
}

func (m *MemoryClock) Clear(_ context.Context, studentID, quizID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, attemptKey(studentID, quizID))
	return nil
}
