package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const cacheCleanupInterval = 5 * time.Minute

// CacheService кэш в памяти с TTL. Ошибки загрузки не кэшируются.
type CacheService struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// NewCacheService создаёт кэш и запускает периодическую очистку до вызова Close.
func NewCacheService() *CacheService {
	cs := &CacheService{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go cs.cleanupLoop()
	return cs
}

func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mu.RLock()
	entry, ok := cs.entries[key]
	cs.mu.RUnlock()

	if !ok || !cs.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.mu.Lock()
	cs.entries[key] = cacheEntry{data: value, expiresAt: cs.now().Add(ttl)}
	cs.mu.Unlock()
}

func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	delete(cs.entries, key)
	cs.mu.Unlock()
}

// InvalidateByPrefix удаляет все ключи с префиксом.
func (cs *CacheService) InvalidateByPrefix(prefix string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for key := range cs.entries {
		if strings.HasPrefix(key, prefix) {
			delete(cs.entries, key)
		}
	}
}

// GetOrSet возвращает значение из кэша или загружает его через load.
// Результат не сохраняется, если load вернул ошибку или ctx уже отменён.
func (cs *CacheService) GetOrSet(ctx context.Context, key string, ttl time.Duration, load func() (interface{}, error)) (interface{}, error) {
	if value, ok := cs.Get(key); ok {
		return value, nil
	}

	value, err := load()
	if err != nil {
		return nil, err
	}
	if ctx.Err() == nil {
		cs.Set(key, value, ttl)
	}
	return value, nil
}

// Close останавливает фоновую очистку.
func (cs *CacheService) Close() {
	cs.once.Do(func() { close(cs.stop) })
}

func (cs *CacheService) cleanupLoop() {
	ticker := time.NewTicker(cacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cs.stop:
			return
		case <-ticker.C:
			cs.evictExpired()
		}
	}
}

func (cs *CacheService) evictExpired() {
	now := cs.now()
	cs.mu.Lock()
	defer cs.mu.Unlock()
	for key, entry := range cs.entries {
		if !now.Before(entry.expiresAt) {
			delete(cs.entries, key)
		}
	}
}

func UserCacheKey(userID uuid.UUID) string {
	return "user:" + userID.String()
}

func SubjectCacheKey(kind string, subjectID uuid.UUID) string {
	return "subject:" + kind + ":" + subjectID.String()
}
