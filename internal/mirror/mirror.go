// Package mirror keeps a relational copy of crawled items in sqlite, one row
// per product with its image bytes.
package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/law-makers/weeklyad/internal/retry"
	"github.com/law-makers/weeklyad/pkg/models"
)

// DefaultPath is used when no database path is configured.
var DefaultPath = filepath.Join("db_store", "crawler_results.db")

// ErrMissingField is returned when a row lacks a required column value.
var ErrMissingField = errors.New("missing required field")

const schema = `
CREATE TABLE IF NOT EXISTS crawler_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    storename TEXT NOT NULL CHECK(storename <> ''),
    weekly_ad_starting_date TEXT NOT NULL CHECK(weekly_ad_starting_date <> ''),
    product TEXT NOT NULL CHECK(product <> ''),
    image_url TEXT,
    image BLOB,
    price TEXT NOT NULL CHECK(price <> '')
);
CREATE INDEX IF NOT EXISTS idx_crawler_results_store_date
    ON crawler_results (storename, weekly_ad_starting_date);
`

// Mirror is the crawler_results table. The database is opened and the table
// created on first use.
type Mirror struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

// New returns a Mirror backed by the sqlite file at path (DefaultPath if empty).
// ":memory:" keeps the table in memory for the life of the Mirror.
func New(path string) *Mirror {
	if path == "" {
		path = DefaultPath
	}
	return &Mirror{path: path}
}

// Path is the database location.
func (m *Mirror) Path() string {
	return m.path
}

func (m *Mirror) conn(ctx context.Context) (*sql.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		return m.db, nil
	}

	dsn := m.path
	if m.path != ":memory:" {
		if dir := filepath.Dir(m.path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = "file:" + m.path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", m.path, err)
	}
	// one writer at a time; an in-memory database must also stay on one connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create crawler_results: %w", err)
	}

	log.Debug().Str("db", m.path).Msg("Mirror database ready")
	m.db = db
	return db, nil
}

// InsertResult stores one row and returns its id. Empty storename,
// weekly_ad_starting_date, product or price is rejected with ErrMissingField.
func (m *Mirror) InsertResult(ctx context.Context, row models.CrawlerResultRow) (int64, error) {
	for _, f := range []struct{ name, value string }{
		{"storename", row.StoreName},
		{"weekly_ad_starting_date", row.WeeklyAdStartingDate},
		{"product", row.Product},
		{"price", row.Price},
	} {
		if strings.TrimSpace(f.value) == "" {
			return 0, fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}

	db, err := m.conn(ctx)
	if err != nil {
		return 0, err
	}

	var imageURL sql.NullString
	if row.ImageURL != "" {
		imageURL = sql.NullString{String: row.ImageURL, Valid: true}
	}
	var image []byte
	if len(row.Image) > 0 {
		image = row.Image
	}

	var id int64
	err = retry.WithRetry(ctx, retry.Busy(isBusy), func() error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO crawler_results (storename, weekly_ad_starting_date, product, image_url, image, price)
             VALUES (?, ?, ?, ?, ?, ?)`,
			row.StoreName, row.WeeklyAdStartingDate, row.Product, imageURL, image, row.Price)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert %s/%s %q: %w", row.StoreName, row.WeeklyAdStartingDate, row.Product, err)
	}
	return id, nil
}

// Results returns the rows of one store and starting date in insertion order.
func (m *Mirror) Results(ctx context.Context, storeName, startDate string) ([]models.CrawlerResultRow, error) {
	db, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, storename, weekly_ad_starting_date, product, image_url, image, price
         FROM crawler_results
         WHERE storename = ? AND weekly_ad_starting_date = ?
         ORDER BY id`,
		storeName, startDate)
	if err != nil {
		return nil, fmt.Errorf("query crawler_results: %w", err)
	}
	defer rows.Close()

	var out []models.CrawlerResultRow
	for rows.Next() {
		var r models.CrawlerResultRow
		var imageURL sql.NullString
		if err := rows.Scan(&r.ID, &r.StoreName, &r.WeeklyAdStartingDate, &r.Product, &imageURL, &r.Image, &r.Price); err != nil {
			return nil, err
		}
		r.ImageURL = imageURL.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database if it was opened.
func (m *Mirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
