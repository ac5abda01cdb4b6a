package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/weeklyad/internal/cache"
	"github.com/law-makers/weeklyad/internal/mirror"
	"github.com/law-makers/weeklyad/internal/reqctx"
	"github.com/law-makers/weeklyad/internal/store"
	"github.com/law-makers/weeklyad/pkg/models"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fixture struct {
	router *gin.Engine
	store  *store.Store
	mirror *mirror.Mirror
	cache  *cache.MemoryCache
}

func setup(t *testing.T) *fixture {
	t.Helper()
	st := store.New(t.TempDir())
	m := mirror.New(":memory:")
	t.Cleanup(func() { m.Close() })
	mc := cache.NewMemoryCache(1 << 20)
	t.Cleanup(mc.Close)

	h := &Handler{
		Store:    st,
		Mirror:   m,
		Cache:    mc,
		CacheTTL: time.Minute,
		Stores:   func() []string { return []string{"heb", "kroger", "tomthumb"} },
		Version:  "test",
	}
	return &fixture{router: NewRouter(h, []string{"*"}), store: st, mirror: m, cache: mc}
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Detail
}

func TestHealthAndStores(t *testing.T) {
	f := setup(t)

	w := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get(reqctx.Header))

	w = f.get(t, "/stores")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"stores":["heb","kroger","tomthumb"]}`, w.Body.String())
}

func TestWeeklyAd_FromMirror(t *testing.T) {
	f := setup(t)
	_, err := f.mirror.InsertResult(context.Background(), models.CrawlerResultRow{
		StoreName:            "heb",
		WeeklyAdStartingDate: "2025-03-03",
		Product:              "Bananas",
		Image:                []byte{0xff, 0xd8},
		Price:                "$0.59",
	})
	require.NoError(t, err)

	for _, target := range []string{
		"/weekly-ad?storename=heb&week=2025-03-03",
		"/weeklyad/?storename=HEB&week=2025-W10",
	} {
		w := f.get(t, target)
		require.Equal(t, http.StatusOK, w.Code, target)

		var items []AdItem
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		require.Len(t, items, 1)
		assert.Equal(t, "Bananas", items[0].Product)
		assert.Equal(t, "$0.59", items[0].Price)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8}), items[0].ImageBase64)
	}
}

func TestWeeklyAd_NotFound(t *testing.T) {
	f := setup(t)
	w := f.get(t, "/weekly-ad?storename=heb&week=2025-03-03")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No weekly ad found for this store and week.", detail(t, w))
}

func TestWeeklyAd_Validation(t *testing.T) {
	f := setup(t)

	w := f.get(t, "/weekly-ad?storename=heb")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, detail(t, w), "week")

	w = f.get(t, "/weekly-ad?storename=heb&week=soon")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestWeeklyAdFromFile(t *testing.T) {
	f := setup(t)
	_, err := f.store.AppendItems([]models.GroceryItem{{Name: "Milk", Price: "$3.49", Image: "Milk.jpg"}}, "heb", "2025-W10")
	require.NoError(t, err)
	raw, err := f.store.ReadDocument("heb", "2025-W10")
	require.NoError(t, err)

	w := f.get(t, "/weekly-ad-from-file?storename=heb&week=2025-W10")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, string(raw), w.Body.String())

	// a date resolves to its ISO week; the second read comes from the cache
	w = f.get(t, "/weeklyadfromfile/?storename=heb&week=2025-03-05")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(raw), w.Body.String())
	assert.Equal(t, uint64(1), f.cache.Stats()["hits"])
}

func TestWeeklyAdFromFile_ServesRewrittenDocument(t *testing.T) {
	f := setup(t)
	_, err := f.store.AppendItems([]models.GroceryItem{{Name: "Milk", Price: "$3.49", Image: "Milk.jpg"}}, "heb", "2025-W10")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, f.get(t, "/weekly-ad-from-file?storename=heb&week=2025-W10").Code)

	_, err = f.store.AppendItems([]models.GroceryItem{{Name: "Eggs", Price: "$2.50", Image: "Eggs.jpg"}}, "heb", "2025-W10")
	require.NoError(t, err)

	w := f.get(t, "/weekly-ad-from-file?storename=heb&week=2025-W10")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Eggs")
}

func TestWeeklyAdFromFile_NotFound(t *testing.T) {
	f := setup(t)
	for _, target := range []string{
		"/weekly-ad-from-file?storename=heb&week=2025-W10",
		"/weekly-ad-from-file?storename=..&week=2025-W10",
	} {
		w := f.get(t, target)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
		assert.Equal(t, "No weekly ad file found for this store and week.", detail(t, w))
	}
}

func TestImageBytes(t *testing.T) {
	f := setup(t)
	dir, err := f.store.Folder("kroger", "2025-W10", true)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Strawberries.jpg"), []byte("jpeg"), 0644))

	w := f.get(t, "/image-bytes?storename=kroger&week=2025-W10&image_filename=Strawberries.jpg")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"image_bytes":"`+base64.StdEncoding.EncodeToString([]byte("jpeg"))+`"}`, w.Body.String())

	w = f.get(t, "/getimagebytes/?storename=kroger&week=2025-W10&image_filename=Missing.jpg")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Image file not found.", detail(t, w))

	w = f.get(t, "/image-bytes?storename=kroger&week=2025-W10&image_filename=../../../etc/passwd")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.get(t, "/image-bytes?storename=kroger&week=2025-W10")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

type failingReader struct{}

func (failingReader) Results(context.Context, string, string) ([]models.CrawlerResultRow, error) {
	return nil, errors.New("disk I/O error")
}

func TestWeeklyAd_MirrorFailureIs500(t *testing.T) {
	router := NewRouter(&Handler{Store: store.New(t.TempDir()), Mirror: failingReader{}}, nil)
	req := httptest.NewRequest(http.MethodGet, "/weekly-ad?storename=heb&week=2025-03-03", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCORS(t *testing.T) {
	f := setup(t)
	req := httptest.NewRequest(http.MethodOptions, "/weekly-ad", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		name     string
		origin   string
		allowed  []string
		want     bool
		wildcard bool
	}{
		{"any", "http://x", []string{"*"}, true, true},
		{"exact", "http://localhost:3000", []string{"http://localhost:3000"}, true, false},
		{"prefix", "chrome-extension://abc", []string{"chrome-extension://*"}, true, false},
		{"no match", "http://evil.com", []string{"http://localhost:3000"}, false, false},
		{"empty origin", "", []string{"http://localhost:3000"}, false, false},
		{"empty list", "http://x", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, wildcard := isAllowedOrigin(tt.origin, tt.allowed)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wildcard, wildcard)
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := setup(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(reqctx.Header, "abc123")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, "abc123", w.Header().Get(reqctx.Header))
}
