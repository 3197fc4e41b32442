package service

import (
	"encoding/json"
	"sync"
	"time"

	"plan-service/internal/planner/models"

	"github.com/cespare/xxhash/v2"
)

// ============================================================
// Export Result Cache
// ============================================================

// exportCache — ограниченный кэш экспортов. Вытеснение FIFO по порядку
// вставки (не LRU): при заполнении уходит самая старая запись.
// Чтение дополнительно проверяет TTL.
type exportCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[uint64]exportEntry
	order    []uint64 // порядок вставки для FIFO-вытеснения
	now      func() time.Time
}

type exportEntry struct {
	result     ExportResult
	insertedAt time.Time
}

func newExportCache(capacity int, ttl time.Duration) *exportCache {
	return &exportCache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[uint64]exportEntry),
		now:      time.Now,
	}
}

// exportKey — сокращенный отпечаток: тип здания, габариты, сам этаж
// и масштаб. Планы, различающиеся только другими этажами, делят запись.
func exportKey(plan *models.Plan, floorIndex int, scale float64) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(plan.BuildingType)

	dims, _ := json.Marshal(plan.BuildingDimensions)
	_, _ = h.Write(dims)

	if floorIndex >= 0 && floorIndex < len(plan.Floors) {
		floorJSON, _ := json.Marshal(plan.Floors[floorIndex])
		_, _ = h.Write(floorJSON)
	}

	scaleJSON, _ := json.Marshal(scale)
	_, _ = h.Write(scaleJSON)
	return h.Sum64()
}

func (c *exportCache) get(key uint64) (ExportResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.insertedAt) > c.ttl {
		return ExportResult{}, false
	}
	return entry.result, true
}

func (c *exportCache) put(key uint64, result ExportResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.capacity && len(c.order) > 0 {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = exportEntry{result: result, insertedAt: c.now()}
}
