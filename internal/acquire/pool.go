package acquire

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Job is one image to acquire.
type Job struct {
	URL   string
	Item  string
	Store string
	Week  string
}

// Fetcher is the single-image operation a Pool fans out.
type Fetcher interface {
	Acquire(ctx context.Context, rawURL, itemName, storeName, week string) *Result
}

// Pool acquires images with a fixed number of workers.
type Pool struct {
	fetcher     Fetcher
	concurrency int
}

// NewPool creates a pool of concurrency workers over f.
func NewPool(f Fetcher, concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = 4
	}
	if concurrency > 32 {
		concurrency = 32
	}
	return &Pool{fetcher: f, concurrency: concurrency}
}

// AcquireBatch runs every job and returns results in job order. Jobs whose
// item names share a file stem may write the same file, whatever extension
// their URL or data-URL mime type yields, so they run on one worker in job
// order and the later job wins the collision. Jobs not started before ctx is
// done report its error.
func (p *Pool) AcquireBatch(ctx context.Context, jobs []Job) []*Result {
	results := make([]*Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	var groups [][]int
	byFile := make(map[string]int)
	for i, j := range jobs {
		key := j.Store + "/" + j.Week + "/" + Stem(j.Item)
		g, ok := byFile[key]
		if !ok {
			g = len(groups)
			byFile[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}

	queue := make(chan []int, len(groups))
	for _, g := range groups {
		queue <- g
	}
	close(queue)

	workers := min(p.concurrency, len(groups))
	var wg sync.WaitGroup
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id, jobs, queue, results)
		}(w)
	}
	wg.Wait()

	for i, r := range results {
		if r == nil {
			results[i] = &Result{URL: jobs[i].URL, Err: ctx.Err()}
		}
	}
	return results
}

func (p *Pool) worker(ctx context.Context, id int, jobs []Job, queue <-chan []int, results []*Result) {
	log.Debug().Int("worker_id", id).Msg("Image worker started")

	for group := range queue {
		for _, i := range group {
			if ctx.Err() != nil {
				log.Debug().Int("worker_id", id).Msg("Image worker cancelled")
				return
			}
			j := jobs[i]
			results[i] = p.fetcher.Acquire(ctx, j.URL, j.Item, j.Store, j.Week)
		}
	}
}
