// Package store persists weekly ad documents and their images under a data root,
// one folder per store and week.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"github.com/law-makers/weeklyad/pkg/models"
	"github.com/rs/zerolog/log"
)

// DocumentName is the file holding a store/week's item list.
const DocumentName = "weekly_ad.json"

var (
	// ErrNotFound is returned when a document, folder or image does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidBatch is returned by AppendItems for batches that must never be written.
	ErrInvalidBatch = errors.New("invalid item batch")
	// ErrInvalidName is returned for store, week or file names that are not a single path segment.
	ErrInvalidName = errors.New("invalid path segment")
)

// Store maps (store, week) pairs to folders below Root.
type Store struct {
	Root string
}

// New returns a Store rooted at root.
func New(root string) *Store {
	return &Store{Root: root}
}

// Folder returns <root>/<store>/<week>, creating it when create is set.
func (s *Store) Folder(storeName, week string, create bool) (string, error) {
	if err := checkSegment(storeName); err != nil {
		return "", fmt.Errorf("store %q: %w", storeName, err)
	}
	if err := checkSegment(week); err != nil {
		return "", fmt.Errorf("week %q: %w", week, err)
	}

	dir := filepath.Join(s.Root, storeName, week)
	if create {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create folder: %w", err)
		}
	}
	return dir, nil
}

// DocumentPath returns the path of the week's document without touching disk.
func (s *Store) DocumentPath(storeName, week string) (string, error) {
	dir, err := s.Folder(storeName, week, false)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DocumentName), nil
}

// AppendItems appends items to the store/week document, creating it if needed.
//
// An unreadable or non-array document is replaced rather than reported. The
// whole file is rewritten under an exclusive lock, existing entries first.
func (s *Store) AppendItems(items []models.GroceryItem, storeName, week string) (string, error) {
	if items == nil {
		return "", fmt.Errorf("%w: batch is nil", ErrInvalidBatch)
	}
	for i, it := range items {
		if err := it.Validate(); err != nil {
			return "", fmt.Errorf("%w: item %d: %v", ErrInvalidBatch, i, err)
		}
	}

	dir, err := s.Folder(storeName, week, true)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, DocumentName)

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("failed to lock %s: %w", path, err)
	}
	defer lock.Unlock()

	existing, err := readElements(path)
	if err != nil {
		return "", err
	}
	if existing == nil {
		existing = []json.RawMessage{}
	}

	for _, it := range items {
		raw, err := json.Marshal(it)
		if err != nil {
			return "", fmt.Errorf("failed to encode item %q: %w", it.Name, err)
		}
		existing = append(existing, raw)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(existing); err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}

	log.Debug().
		Str("store", storeName).
		Str("week", week).
		Int("appended", len(items)).
		Int("total", len(existing)).
		Str("file", path).
		Msg("Weekly ad document written")

	return path, nil
}

// ReadDocument returns the raw document bytes.
func (s *Store) ReadDocument(storeName, week string) ([]byte, error) {
	path, err := s.DocumentPath(storeName, week)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s/%s: %w", storeName, week, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

// StatDocument returns the document's file info, or ErrNotFound.
func (s *Store) StatDocument(storeName, week string) (string, fs.FileInfo, error) {
	path, err := s.DocumentPath(storeName, week)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return path, nil, fmt.Errorf("%s/%s: %w", storeName, week, ErrNotFound)
	}
	if err != nil {
		return path, nil, err
	}
	return path, info, nil
}

// ReadItems decodes the document into items.
func (s *Store) ReadItems(storeName, week string) ([]models.GroceryItem, error) {
	data, err := s.ReadDocument(storeName, week)
	if err != nil {
		return nil, err
	}
	var items []models.GroceryItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("document %s/%s is not an item list: %w", storeName, week, err)
	}
	return items, nil
}

// ImagePath resolves a file name inside the store/week folder. The file must exist.
func (s *Store) ImagePath(storeName, week, filename string) (string, error) {
	if err := checkSegment(filename); err != nil {
		return "", fmt.Errorf("image %q: %w", filename, err)
	}
	dir, err := s.Folder(storeName, week, false)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%s: %w", filename, ErrNotFound)
	}
	return path, nil
}

// Weeks lists the week folders recorded for a store, oldest first.
func (s *Store) Weeks(storeName string) ([]string, error) {
	if err := checkSegment(storeName); err != nil {
		return nil, fmt.Errorf("store %q: %w", storeName, err)
	}
	entries, err := os.ReadDir(filepath.Join(s.Root, storeName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", storeName, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var weeks []string
	for _, e := range entries {
		if e.IsDir() {
			weeks = append(weeks, e.Name())
		}
	}
	sort.Strings(weeks)
	return weeks, nil
}

// readElements loads the existing array. Missing, corrupt or non-array files yield nil.
func readElements(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		log.Debug().Err(err).Str("file", path).Msg("Existing document unreadable, starting fresh")
		return nil, nil
	}
	return elems, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".weekly_ad-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}

func checkSegment(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
