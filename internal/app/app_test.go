package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/weeklyad/internal/api"
	"github.com/law-makers/weeklyad/internal/cache"
	"github.com/law-makers/weeklyad/internal/config"
	"github.com/law-makers/weeklyad/internal/notify"
	"github.com/law-makers/weeklyad/internal/pipeline"
)

const savedHEB = `<html><body>
<div data-component="product-card">
	<img src="data:image/png;base64,aGVsbG8=" alt="Bananas">
	<span>$0.59</span>
	<button>Add to cart</button>
</div>
<div data-component="product-card">
	<img src="data:image/png;base64,aGVsbG8=" alt="">
	<span>$1.00</span>
</div>
</body></html>`

func newTestApp(t *testing.T) *Application {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("CI", "1")

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	cfg.DataRoot = filepath.Join(dir, "data")
	cfg.DBPath = filepath.Join(dir, "db", "results.db")
	cfg.DelayMin, cfg.DelayMax = 0, 0
	cfg.LogLevel = "error"

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func TestNew_LocalFallbacks(t *testing.T) {
	a := newTestApp(t)
	assert.IsType(t, notify.Nop{}, a.Publisher)
	assert.IsType(t, &cache.MemoryCache{}, a.Cache)
	assert.Equal(t, 0, a.Proxies.Len())
	assert.Contains(t, a.Registry.Stores(), "heb")
}

func TestCrawl_FromSavedPage(t *testing.T) {
	a := newTestApp(t)
	page := filepath.Join(t.TempDir(), "heb.html")
	require.NoError(t, os.WriteFile(page, []byte(savedHEB), 0644))

	var events []pipeline.Progress
	rep, err := a.Crawl(context.Background(), "HEB", CrawlOptions{
		Week:     "2025-W10",
		FromHTML: page,
		Mirror:   true,
		Progress: func(p pipeline.Progress) { events = append(events, p) },
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Cards)
	assert.Equal(t, 1, rep.Kept)
	assert.Equal(t, 1, rep.Mirrored)
	assert.NotEmpty(t, events)

	items, err := a.Store.ReadItems("heb", "2025-W10")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Bananas", items[0].Name)
	assert.Equal(t, "Bananas.png", items[0].Image)

	rows, err := a.Mirror.Results(context.Background(), "heb", "2025-03-03")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []byte("hello"), rows[0].Image)
}

func TestCrawl_MissingSavedPage(t *testing.T) {
	a := newTestApp(t)
	_, err := a.Crawl(context.Background(), "heb", CrawlOptions{FromHTML: "/nonexistent/page.html"})
	assert.Error(t, err)
}

func TestMirrorWeek_ThenServe(t *testing.T) {
	a := newTestApp(t)
	page := filepath.Join(t.TempDir(), "heb.html")
	require.NoError(t, os.WriteFile(page, []byte(savedHEB), 0644))

	_, err := a.Crawl(context.Background(), "heb", CrawlOptions{Week: "2025-W10", FromHTML: page})
	require.NoError(t, err)

	n, err := a.MirrorWeek(context.Background(), "heb", "2025-03-05")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	router := api.NewRouter(a.Handler(), a.Config.AllowedOrigins)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/weekly-ad?storename=HEB&week=2025-03-05", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"product":"Bananas"`))

	_, err = a.MirrorWeek(context.Background(), "safeway", "2025-W10")
	assert.Error(t, err)
}
