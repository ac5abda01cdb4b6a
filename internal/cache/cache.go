// Package cache holds recently served payloads (weekly ad documents) so
// repeated API reads skip the disk.
package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTTL is used when Set is given a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// Cache stores byte payloads under string keys.
type Cache interface {
	// Get returns the payload for key and whether it was found and unexpired.
	Get(key string) ([]byte, bool)

	// Set stores value for ttl, replacing any previous entry.
	Set(key string, value []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(key string) error

	// Clear removes every entry.
	Clear() error

	// Close releases background resources.
	Close()
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a size-bounded in-process cache with LRU eviction.
type MemoryCache struct {
	items   map[string]*list.Element
	lru     *list.List
	mu      sync.Mutex
	maxSize int64
	size    int64
	cancel  context.CancelFunc
	hits    uint64
	misses  uint64
	now     func() time.Time
}

// NewMemoryCache creates a cache holding at most maxSizeBytes of payload
// (100MB when non-positive) and starts its expiry sweeper.
func NewMemoryCache(maxSizeBytes int64) *MemoryCache {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 100 * 1024 * 1024
	}

	ctx, cancel := context.WithCancel(context.Background())
	mc := &MemoryCache{
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSizeBytes,
		cancel:  cancel,
		now:     time.Now,
	}
	go mc.sweep(ctx, time.Minute)
	return mc
}

// Get moves a live entry to the front; an expired one is dropped.
func (mc *MemoryCache) Get(key string) ([]byte, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	el, ok := mc.items[key]
	if !ok {
		mc.misses++
		return nil, false
	}
	e := el.Value.(*entry)
	if mc.now().After(e.expiresAt) {
		mc.misses++
		mc.remove(el)
		return nil, false
	}

	mc.lru.MoveToFront(el)
	mc.hits++
	log.Debug().Str("key", key).Msg("Cache hit")
	return e.value, true
}

// Set stores value. Payloads larger than the whole cache are not stored.
func (mc *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	size := int64(len(value))
	if size > mc.maxSize {
		return fmt.Errorf("cache: %d byte value exceeds capacity %d", size, mc.maxSize)
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if el, ok := mc.items[key]; ok {
		mc.remove(el)
	}
	for mc.size+size > mc.maxSize && mc.lru.Len() > 0 {
		back := mc.lru.Back()
		log.Debug().Str("key", back.Value.(*entry).key).Msg("Evicted from cache (LRU)")
		mc.remove(back)
	}

	mc.items[key] = mc.lru.PushFront(&entry{
		key:       key,
		value:     value,
		expiresAt: mc.now().Add(ttl),
	})
	mc.size += size

	log.Debug().
		Str("key", key).
		Dur("ttl", ttl).
		Int64("size_bytes", size).
		Msg("Cached payload")
	return nil
}

func (mc *MemoryCache) Delete(key string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if el, ok := mc.items[key]; ok {
		mc.remove(el)
	}
	return nil
}

func (mc *MemoryCache) Clear() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.items = make(map[string]*list.Element)
	mc.lru.Init()
	mc.size = 0
	mc.hits, mc.misses = 0, 0
	return nil
}

// Close stops the sweeper.
func (mc *MemoryCache) Close() {
	mc.cancel()
}

// remove drops el; the lock must be held.
func (mc *MemoryCache) remove(el *list.Element) {
	e := el.Value.(*entry)
	mc.lru.Remove(el)
	delete(mc.items, e.key)
	mc.size -= int64(len(e.value))
}

func (mc *MemoryCache) sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.mu.Lock()
			now := mc.now()
			var next *list.Element
			for el := mc.lru.Front(); el != nil; el = next {
				next = el.Next()
				if now.After(el.Value.(*entry).expiresAt) {
					mc.remove(el)
				}
			}
			mc.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// Stats reports entry count, size and hit rate.
func (mc *MemoryCache) Stats() map[string]interface{} {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	hitRate := 0.0
	if total := mc.hits + mc.misses; total > 0 {
		hitRate = float64(mc.hits) / float64(total) * 100
	}
	return map[string]interface{}{
		"entries":    mc.lru.Len(),
		"size_bytes": mc.size,
		"max_size":   mc.maxSize,
		"hits":       mc.hits,
		"misses":     mc.misses,
		"hit_rate":   hitRate,
	}
}

// DocumentKey identifies one version of a file: a rewrite changes its
// modification time or size and so its key.
func DocumentKey(path string, modTime time.Time, size int64) string {
	return fmt.Sprintf("%s::%d::%d", path, modTime.UnixNano(), size)
}
