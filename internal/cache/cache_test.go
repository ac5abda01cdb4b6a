package cache

import (
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_GetSet(t *testing.T) {
	mc := NewMemoryCache(1024)
	defer mc.Close()

	require.NoError(t, mc.Set("doc", []byte("[]"), time.Minute))
	v, ok := mc.Get("doc")
	assert.True(t, ok)
	assert.Equal(t, "[]", string(v))

	_, ok = mc.Get("missing")
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc := NewMemoryCache(1024)
	defer mc.Close()

	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	require.NoError(t, mc.Set("doc", []byte("x"), time.Second))
	now = now.Add(2 * time.Second)

	_, ok := mc.Get("doc")
	assert.False(t, ok)
	assert.Equal(t, 0, mc.Stats()["entries"])
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(10)
	defer mc.Close()

	require.NoError(t, mc.Set("a", []byte("aaaa"), time.Minute))
	require.NoError(t, mc.Set("b", []byte("bbbb"), time.Minute))
	_, _ = mc.Get("a")
	require.NoError(t, mc.Set("c", []byte("cccc"), time.Minute))

	_, okA := mc.Get("a")
	_, okB := mc.Get("b")
	_, okC := mc.Get("c")
	assert.True(t, okA)
	assert.False(t, okB, "b was least recently used")
	assert.True(t, okC)
}

func TestMemoryCache_ReplaceKeepsSizeAccurate(t *testing.T) {
	mc := NewMemoryCache(10)
	defer mc.Close()

	require.NoError(t, mc.Set("a", []byte("12345678"), time.Minute))
	require.NoError(t, mc.Set("a", []byte("12"), time.Minute))
	require.NoError(t, mc.Set("b", []byte("12345678"), time.Minute))

	_, ok := mc.Get("a")
	assert.True(t, ok)
	assert.Equal(t, int64(10), mc.Stats()["size_bytes"])
}

func TestMemoryCache_RejectsOversizedValue(t *testing.T) {
	mc := NewMemoryCache(4)
	defer mc.Close()
	assert.Error(t, mc.Set("big", []byte("12345"), time.Minute))
}

func TestDocumentKey_ChangesWithFile(t *testing.T) {
	at := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	k1 := DocumentKey("data/heb/2025-W10/weekly_ad.json", at, 100)
	assert.NotEqual(t, k1, DocumentKey("data/heb/2025-W10/weekly_ad.json", at.Add(time.Second), 100))
	assert.NotEqual(t, k1, DocumentKey("data/heb/2025-W10/weekly_ad.json", at, 101))
}

// Requires a running memcached; skipped otherwise.
func TestMemcacheCache(t *testing.T) {
	mc := NewMemcacheCache("localhost:11211")
	if _, err := mc.client.Get("probe"); err != nil && err != memcache.ErrCacheMiss {
		t.Skip("Memcached is not available, skipping test")
	}

	key := "data/heb/2025-W10/weekly_ad.json with spaces"
	require.NoError(t, mc.Set(key, []byte("[]"), time.Minute))

	v, ok := mc.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "[]", string(v))

	require.NoError(t, mc.Delete(key))
	require.NoError(t, mc.Delete(key))
	_, ok = mc.Get(key)
	assert.False(t, ok)
}
