package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/rs/zerolog/log"
)

// MemcacheCache shares cached payloads between API replicas through memcached.
type MemcacheCache struct {
	client *memcache.Client
	prefix string
}

// NewMemcacheCache connects lazily to the given servers.
func NewMemcacheCache(servers ...string) *MemcacheCache {
	return &MemcacheCache{
		client: memcache.New(servers...),
		prefix: "weeklyad:",
	}
}

// Ping checks that every server answers.
func (m *MemcacheCache) Ping() error {
	return m.client.Ping()
}

// key maps arbitrary keys (file paths may hold spaces) onto memcached's
// 250-byte printable key space.
func (m *MemcacheCache) key(k string) string {
	sum := sha1.Sum([]byte(k))
	return m.prefix + hex.EncodeToString(sum[:])
}

func (m *MemcacheCache) Get(key string) ([]byte, bool) {
	item, err := m.client.Get(m.key(key))
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			log.Warn().Err(err).Msg("Memcache get failed")
		}
		return nil, false
	}
	return item.Value, true
}

func (m *MemcacheCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return m.client.Set(&memcache.Item{
		Key:        m.key(key),
		Value:      value,
		Expiration: int32(ttl.Seconds()),
	})
}

func (m *MemcacheCache) Delete(key string) error {
	err := m.client.Delete(m.key(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}

// Clear flushes the whole server, including entries of other users.
func (m *MemcacheCache) Clear() error {
	return m.client.DeleteAll()
}

func (m *MemcacheCache) Close() {}
