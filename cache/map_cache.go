package cache

import (
	"sync"
	"time"

	"github.com/hatlonely/minidb/engine"
)

type mapCacheEntry struct {
	rows     []engine.Row
	expireAt time.Time
}

// MapCache 进程内 map 缓存，默认实现
type MapCache struct {
	mu      sync.Mutex
	entries map[string]mapCacheEntry
	ttl     time.Duration
}

func NewMapCache(ttl time.Duration) *MapCache {
	return &MapCache{
		entries: map[string]mapCacheEntry{},
		ttl:     ttl,
	}
}

func (c *MapCache) Get(key string) ([]engine.Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !entry.expireAt.IsZero() && time.Now().After(entry.expireAt) {
		delete(c.entries, key)
		return nil, false
	}

	// 返回副本，缓存内容不受调用方修改影响
	return engine.CloneRows(entry.rows), true
}

func (c *MapCache) Set(key string, rows []engine.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := mapCacheEntry{rows: engine.CloneRows(rows)}
	if c.ttl > 0 {
		entry.expireAt = time.Now().Add(c.ttl)
	}
	c.entries[key] = entry
}

func (c *MapCache) Del(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

func (c *MapCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = map[string]mapCacheEntry{}
	return nil
}

var _ Cache = (*MapCache)(nil)
