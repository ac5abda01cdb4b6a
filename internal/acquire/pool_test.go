package acquire

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"
)

type recordingFetcher struct {
	mu    sync.Mutex
	order []string
}

func (f *recordingFetcher) Acquire(ctx context.Context, rawURL, itemName, storeName, week string) *Result {
	// later jobs finish first unless they are serialized
	if rawURL == "https://x/first.jpg" {
		time.Sleep(20 * time.Millisecond)
	}
	f.mu.Lock()
	f.order = append(f.order, rawURL)
	f.mu.Unlock()
	return &Result{URL: rawURL, Filename: Filename(itemName, rawURL, ""), Success: true}
}

func TestPool_PreservesJobOrder(t *testing.T) {
	f := &recordingFetcher{}
	pool := NewPool(f, 4)

	var jobs []Job
	for i := 0; i < 20; i++ {
		jobs = append(jobs, Job{URL: fmt.Sprintf("https://x/%d.jpg", i), Item: fmt.Sprintf("Item %d", i), Store: "heb", Week: "2025-W10"})
	}
	results := pool.AcquireBatch(context.Background(), jobs)
	if len(results) != len(jobs) {
		t.Fatalf("expected %d results, got %d", len(jobs), len(results))
	}
	for i, r := range results {
		if r.URL != jobs[i].URL {
			t.Errorf("result %d is for %s, want %s", i, r.URL, jobs[i].URL)
		}
	}
}

func TestPool_SerializesCollidingFiles(t *testing.T) {
	f := &recordingFetcher{}
	pool := NewPool(f, 4)

	jobs := []Job{
		{URL: "https://x/first.jpg", Item: "Bread Loaf", Store: "heb", Week: "2025-W10"},
		{URL: "https://x/second.jpg", Item: "BreadLoaf", Store: "heb", Week: "2025-W10"},
	}
	pool.AcquireBatch(context.Background(), jobs)

	if len(f.order) != 2 || f.order[0] != jobs[0].URL || f.order[1] != jobs[1].URL {
		t.Errorf("colliding jobs ran out of order: %v", f.order)
	}
}

func TestPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewPool(&recordingFetcher{}, 2).AcquireBatch(ctx, []Job{{URL: "https://x/a.jpg", Item: "A"}})
	if results[0] == nil || results[0].Success || results[0].Err == nil {
		t.Errorf("expected cancelled result, got %+v", results[0])
	}
}

func TestPool_DataURLAndHTTPShareFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte("HTTP"))
	}))
	defer server.Close()

	a, _ := newAcquirer(t)
	jobs := []Job{
		{URL: server.URL + "/x.png", Item: "Milk", Store: "heb", Week: "2025-W10"},
		{URL: "data:image/png;base64,REFUQQ==", Item: "Milk", Store: "heb", Week: "2025-W10"},
	}
	results := NewPool(a, 4).AcquireBatch(context.Background(), jobs)

	for i, r := range results {
		if !r.Success {
			t.Fatalf("job %d failed: %v", i, r.Err)
		}
		if r.Filename != "Milk.png" {
			t.Errorf("job %d filename = %q, want Milk.png", i, r.Filename)
		}
	}
	data, err := os.ReadFile(results[1].Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "DATA" {
		t.Errorf("later job did not win the collision: got %q", data)
	}
}
