// Package api serves stored weekly ads over HTTP.
package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/weeklyad/internal/cache"
	"github.com/law-makers/weeklyad/internal/reqctx"
	"github.com/law-makers/weeklyad/internal/store"
	"github.com/law-makers/weeklyad/pkg/models"
)

const (
	detailNoAd    = "No weekly ad found for this store and week."
	detailNoFile  = "No weekly ad file found for this store and week."
	detailNoImage = "Image file not found."
)

// ResultReader reads mirrored rows for a store and starting date.
type ResultReader interface {
	Results(ctx context.Context, storeName, startDate string) ([]models.CrawlerResultRow, error)
}

// AdItem is one row of the /weekly-ad response.
type AdItem struct {
	Product     string `json:"product"`
	Price       string `json:"price"`
	ImageBase64 string `json:"image_base64"`
}

// Handler holds the read-side dependencies. Mirror and Cache are optional.
type Handler struct {
	Store    *store.Store
	Mirror   ResultReader
	Cache    cache.Cache
	CacheTTL time.Duration
	// Stores lists the registered store names.
	Stores  func() []string
	Version string
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "weeklyad",
		"version": h.Version,
	})
}

func (h *Handler) ListStores(c *gin.Context) {
	stores := []string{}
	if h.Stores != nil {
		stores = h.Stores()
	}
	c.JSON(http.StatusOK, gin.H{"stores": stores})
}

// WeeklyAd returns mirrored rows for a store and starting date.
func (h *Handler) WeeklyAd(c *gin.Context) {
	params, ok := requireQuery(c, "storename", "week")
	if !ok {
		return
	}
	startDate, err := store.StartDate(params[1])
	if err != nil {
		unprocessable(c, "week must be YYYY-MM-DD or YYYY-Www")
		return
	}
	if h.Mirror == nil {
		notFound(c, detailNoAd)
		return
	}

	rows, err := h.Mirror.Results(c.Request.Context(), storeKey(params[0]), startDate)
	if err != nil {
		h.internal(c, err)
		return
	}
	if len(rows) == 0 {
		notFound(c, detailNoAd)
		return
	}

	items := make([]AdItem, len(rows))
	for i, r := range rows {
		items[i] = AdItem{
			Product:     r.Product,
			Price:       r.Price,
			ImageBase64: base64.StdEncoding.EncodeToString(r.Image),
		}
	}
	c.JSON(http.StatusOK, items)
}

// WeeklyAdFromFile returns the stored document bytes as they are on disk.
func (h *Handler) WeeklyAdFromFile(c *gin.Context) {
	params, ok := requireQuery(c, "storename", "week")
	if !ok {
		return
	}
	week, err := store.WeekKey(params[1])
	if err != nil {
		unprocessable(c, "week must be YYYY-Www or YYYY-MM-DD")
		return
	}

	data, err := h.document(storeKey(params[0]), week)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidName):
		notFound(c, detailNoFile)
	case err != nil:
		h.internal(c, err)
	default:
		c.Data(http.StatusOK, "application/json", data)
	}
}

// document reads a store/week document through the cache. Keys include the
// file's mtime and size, so a rewritten document is never served stale.
func (h *Handler) document(storeName, week string) ([]byte, error) {
	path, info, err := h.Store.StatDocument(storeName, week)
	if err != nil {
		return nil, err
	}
	read := func() ([]byte, error) {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return data, err
	}
	if h.Cache == nil {
		return read()
	}

	key := cache.DocumentKey(path, info.ModTime(), info.Size())
	if data, ok := h.Cache.Get(key); ok {
		return data, nil
	}
	data, err := read()
	if err != nil {
		return nil, err
	}
	if err := h.Cache.Set(key, data, h.CacheTTL); err != nil {
		log.Debug().Err(err).Str("file", path).Msg("Document not cached")
	}
	return data, nil
}

// ImageBytes returns one stored image, base64 encoded.
func (h *Handler) ImageBytes(c *gin.Context) {
	params, ok := requireQuery(c, "storename", "week", "image_filename")
	if !ok {
		return
	}
	week, err := store.WeekKey(params[1])
	if err != nil {
		unprocessable(c, "week must be YYYY-Www or YYYY-MM-DD")
		return
	}

	path, err := h.Store.ImagePath(storeKey(params[0]), week, params[2])
	if err != nil {
		notFound(c, detailNoImage)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			notFound(c, detailNoImage)
			return
		}
		h.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_bytes": base64.StdEncoding.EncodeToString(data)})
}

func (h *Handler) internal(c *gin.Context, err error) {
	c.Error(reqctx.NewRequestError(c.Request.Context(), err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
}

// requireQuery returns the named query values, answering 422 when any is
// missing or blank.
func requireQuery(c *gin.Context, names ...string) ([]string, bool) {
	values := make([]string, len(names))
	var missing []string
	for i, n := range names {
		values[i] = strings.TrimSpace(c.Query(n))
		if values[i] == "" {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		unprocessable(c, "missing query parameter: "+strings.Join(missing, ", "))
		return nil, false
	}
	return values, true
}

func storeKey(s string) string {
	return strings.ToLower(s)
}

func notFound(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": detail})
}

func unprocessable(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": detail})
}
