package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/law-makers/weeklyad/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(name, price string) models.GroceryItem {
	return models.GroceryItem{Name: name, Price: price, Image: strings.ToLower(name) + ".jpg"}
}

func TestAppendItems_CreatesDocument(t *testing.T) {
	s := New(t.TempDir())

	path, err := s.AppendItems([]models.GroceryItem{item("Bananas", "$0.59")}, "heb", "2025-W10")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root, "heb", "2025-W10", DocumentName), path)

	got, err := s.ReadItems("heb", "2025-W10")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "$0.59", got[0].Price)
}

func TestAppendItems_OrderAcrossCalls(t *testing.T) {
	root := t.TempDir()
	b1 := []models.GroceryItem{item("Milk", "$3.49"), item("Eggs", "$2.99")}
	b2 := []models.GroceryItem{item("Bread", "2 for $5"), item("Milk", "$3.49")}

	_, err := New(root).AppendItems(b1, "kroger", "2025-W11")
	require.NoError(t, err)
	// a second Store value stands in for a separate process invocation
	_, err = New(root).AppendItems(b2, "kroger", "2025-W11")
	require.NoError(t, err)

	got, err := New(root).ReadItems("kroger", "2025-W11")
	require.NoError(t, err)

	want := append(append([]models.GroceryItem{}, b1...), b2...)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendItems_CorruptDocumentStartsFresh(t *testing.T) {
	s := New(t.TempDir())
	dir, err := s.Folder("heb", "2025-W10", true)
	require.NoError(t, err)

	for _, content := range []string{"{not json", `{"name":"x"}`, `"text"`, "null", ""} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, DocumentName), []byte(content), 0644))

		_, err := s.AppendItems([]models.GroceryItem{item("Apples", "$1.29/lb")}, "heb", "2025-W10")
		require.NoError(t, err, "content %q", content)

		got, err := s.ReadItems("heb", "2025-W10")
		require.NoError(t, err)
		assert.Equal(t, []models.GroceryItem{item("Apples", "$1.29/lb")}, got, "content %q", content)
	}
}

func TestAppendItems_KeepsUnknownFieldsOfExistingEntries(t *testing.T) {
	s := New(t.TempDir())
	dir, err := s.Folder("tomthumb", "2025-W10", true)
	require.NoError(t, err)
	legacy := `[{"name": "Chips", "price": "$2.50", "image": "chips.jpg", "alt": "bag of chips"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, DocumentName), []byte(legacy), 0644))

	_, err = s.AppendItems([]models.GroceryItem{item("Salsa", "$3.00")}, "tomthumb", "2025-W10")
	require.NoError(t, err)

	raw, err := s.ReadDocument("tomthumb", "2025-W10")
	require.NoError(t, err)

	var doc []map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc, 2)
	assert.Equal(t, "bag of chips", doc[0]["alt"])
	assert.Equal(t, "Salsa", doc[1]["name"])
	assert.Contains(t, string(raw), "\n    {", "document should be indented")
}

func TestAppendItems_RejectsInvalidBatch(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.AppendItems(nil, "heb", "2025-W10")
	assert.ErrorIs(t, err, ErrInvalidBatch)

	_, err = s.AppendItems([]models.GroceryItem{item("Milk", "")}, "heb", "2025-W10")
	assert.ErrorIs(t, err, ErrInvalidBatch)

	_, err = s.ReadDocument("heb", "2025-W10")
	assert.ErrorIs(t, err, ErrNotFound, "rejected batches must not create a document")
}

func TestAppendItems_EmptyBatchWritesEmptyList(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.AppendItems([]models.GroceryItem{}, "heb", "2025-W12")
	require.NoError(t, err)

	raw, err := s.ReadDocument("heb", "2025-W12")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))
}

func TestAppendItems_ConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	s := New(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := New(s.Root).AppendItems([]models.GroceryItem{item("Soda", "$1.00")}, "kroger", "2025-W01")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.ReadItems("kroger", "2025-W01")
	require.NoError(t, err)
	assert.Len(t, got, 8)
}

func TestFolder_RejectsTraversal(t *testing.T) {
	s := New(t.TempDir())
	for _, name := range []string{"", "..", "a/b", `a\b`, "."} {
		_, err := s.Folder(name, "2025-W10", false)
		assert.ErrorIs(t, err, ErrInvalidName, "store %q", name)
	}
	_, err := s.Folder("heb", "../../etc", false)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestImagePath(t *testing.T) {
	s := New(t.TempDir())
	dir, err := s.Folder("heb", "2025-W10", true)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Bananas.jpg"), []byte("img"), 0644))

	path, err := s.ImagePath("heb", "2025-W10", "Bananas.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Bananas.jpg"), path)

	_, err = s.ImagePath("heb", "2025-W10", "missing.jpg")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.ImagePath("heb", "2025-W10", "../2025-W10/Bananas.jpg")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestWeeks(t *testing.T) {
	s := New(t.TempDir())
	for _, w := range []string{"2025-W11", "2025-W02", "2024-W52"} {
		_, err := s.Folder("heb", w, true)
		require.NoError(t, err)
	}

	weeks, err := s.Weeks("heb")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-W52", "2025-W02", "2025-W11"}, weeks)

	_, err = s.Weeks("aldi")
	assert.ErrorIs(t, err, ErrNotFound)
}
