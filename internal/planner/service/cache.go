package service

import (
	"encoding/json"
	"sync"
	"time"

	"plan-service/internal/planner/models"

	"github.com/cespare/xxhash/v2"
)

// ============================================================
// Generation Result Cache
// ============================================================

// resultCache кэширует результаты генерации по отпечатку (prompt, meta).
// Записи живут TTL; при вставке сверх capacity выметаются только
// просроченные записи, поэтому кэш может временно превышать лимит.
type resultCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[uint64]cachedResult
	now      func() time.Time
}

type cachedResult struct {
	result     Result
	insertedAt time.Time
}

func newResultCache(capacity int, ttl time.Duration) *resultCache {
	return &resultCache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[uint64]cachedResult),
		now:      time.Now,
	}
}

// generationKey — отпечаток запроса генерации.
func generationKey(prompt string, meta models.Meta) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(prompt)
	_, _ = h.WriteString("|")
	metaJSON, _ := json.Marshal(meta)
	_, _ = h.Write(metaJSON)
	return h.Sum64()
}

func (c *resultCache) get(key uint64) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.insertedAt) > c.ttl {
		return Result{}, false
	}
	return entry.result, true
}

func (c *resultCache) put(key uint64, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cachedResult{result: result, insertedAt: c.now()}
	if len(c.entries) > c.capacity {
		c.sweepExpired()
	}
}

// sweepExpired удаляет только просроченные записи. Вызывается под mu.
func (c *resultCache) sweepExpired() {
	cutoff := c.now().Add(-c.ttl)
	for key, entry := range c.entries {
		if entry.insertedAt.Before(cutoff) {
			delete(c.entries, key)
		}
	}
}
