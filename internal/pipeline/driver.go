// Package pipeline runs one store's weekly-ad crawl end to end: navigate,
// extract cards, fetch images, then persist the batch.
package pipeline

import (
	"context"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/weeklyad/internal/acquire"
	"github.com/law-makers/weeklyad/internal/dom"
	"github.com/law-makers/weeklyad/internal/extract"
	"github.com/law-makers/weeklyad/internal/normalize"
	"github.com/law-makers/weeklyad/internal/notify"
	"github.com/law-makers/weeklyad/internal/ratelimit"
	"github.com/law-makers/weeklyad/internal/store"
	urlutil "github.com/law-makers/weeklyad/internal/utils/url"
	"github.com/law-makers/weeklyad/pkg/models"
)

// DefaultPanelTimeout bounds the wait for a revealed detail panel.
const DefaultPanelTimeout = 3 * time.Second

// Mirror receives each persisted record.
type Mirror interface {
	InsertResult(ctx context.Context, row models.CrawlerResultRow) (int64, error)
}

// Stage names the phase a Progress event belongs to.
type Stage string

const (
	StageCards  Stage = "cards"
	StageImages Stage = "images"
)

// Progress reports advancement within a stage. Total is -1 while unknown.
type Progress struct {
	Store string
	Stage Stage
	Done  int
	Total int
}

// Report summarizes one run.
type Report struct {
	Store    string
	Week     string
	Cards    int
	Kept     int
	Skipped  map[extract.SkipReason]int
	Items    []models.GroceryItem
	Document string
	Mirrored int
	Duration time.Duration
}

func (r *Report) skip(reason extract.SkipReason) {
	if r.Skipped == nil {
		r.Skipped = make(map[extract.SkipReason]int)
	}
	r.Skipped[reason]++
}

// Driver wires extractors, image acquisition and persistence together. Only
// Store and Acquirer are required.
type Driver struct {
	Registry   *extract.Registry
	Store      *store.Store
	Acquirer   acquire.Fetcher
	Normalizer *normalize.Normalizer
	Mirror     Mirror
	Publisher  notify.Publisher

	// Sessions returns stored cookies for a store.
	Sessions func(store string) []dom.Cookie
	// Limiter paces page navigations per host.
	Limiter ratelimit.RateLimiter
	// Delay is slept between page actions.
	Delay        ratelimit.Jitter
	PanelTimeout time.Duration
	// MaxPages caps paginated walks; zero means no cap.
	MaxPages    int
	Concurrency int
	Progress    func(Progress)
	// Shuffle randomizes click order; nil uses math/rand.
	Shuffle func(n int, swap func(i, j int))
}

// Run crawls storeName's ad for week (empty means the current ISO week) on
// page, and appends the kept items to the store/week document in one write.
func (d *Driver) Run(ctx context.Context, page dom.Page, storeName, week string) (*Report, error) {
	start := time.Now()

	registry := d.Registry
	if registry == nil {
		registry = extract.Default()
	}
	ex, err := registry.Lookup(storeName)
	if err != nil {
		return nil, newRunError(ErrCodeConfig, storeName, week, "lookup extractor", err)
	}
	site := ex.Site()

	if week == "" {
		week = store.CurrentWeek()
	} else if week, err = store.WeekKey(week); err != nil {
		return nil, newRunError(ErrCodeConfig, site.Store, "", "parse week", err)
	}

	r := &run{
		d:      d,
		page:   page,
		ex:     ex,
		site:   site,
		report: &Report{Store: site.Store, Week: week},
	}

	log.Info().
		Str("store", site.Store).
		Str("week", week).
		Str("flow", string(site.Flow)).
		Msg("Crawl started")

	d.installCookies(ctx, page, site)

	walk, ok := r.navigator()
	if !ok {
		return r.report, newRunError(ErrCodeConfig, site.Store, week, string(site.Flow), ErrNoNavigator)
	}
	if err := walk(ctx); err != nil {
		return r.report, newRunError(ErrCodeNavigation, site.Store, week, "walk ad", err)
	}
	if r.report.Cards == 0 {
		return r.report, newRunError(ErrCodeNoCards, site.Store, week, "nothing to extract", ErrNoCards)
	}

	if err := d.persist(ctx, r); err != nil {
		return r.report, err
	}

	r.report.Duration = time.Since(start)
	log.Info().
		Str("store", site.Store).
		Str("week", week).
		Int("cards", r.report.Cards).
		Int("kept", r.report.Kept).
		Interface("skipped", r.report.Skipped).
		Dur("duration", r.report.Duration).
		Msg("Crawl finished")

	return r.report, nil
}

// installCookies puts the site's fixed cookies and any stored session on the
// page, and hands them to the image client too.
func (d *Driver) installCookies(ctx context.Context, page dom.Page, site extract.Site) {
	cookies := append([]dom.Cookie(nil), site.Cookies...)
	if d.Sessions != nil {
		cookies = append(cookies, d.Sessions(site.Store)...)
	}
	if len(cookies) == 0 {
		return
	}

	if err := page.SetCookies(ctx, cookies); err != nil {
		log.Warn().Err(err).Str("store", site.Store).Msg("Failed to install cookies")
	}

	type cookieSetter interface {
		SetCookies(rawURL string, cookies []*http.Cookie)
	}
	if cs, ok := d.Acquirer.(cookieSetter); ok {
		byHost := make(map[string][]*http.Cookie)
		for _, c := range cookies {
			host := strings.TrimPrefix(c.Domain, ".")
			if host == "" {
				continue
			}
			byHost[host] = append(byHost[host], &http.Cookie{
				Name:   c.Name,
				Value:  c.Value,
				Domain: c.Domain,
				Path:   c.Path,
				Secure: c.Secure,
			})
		}
		for host, hc := range byHost {
			cs.SetCookies("https://"+host+"/", hc)
		}
	}
}

// persist fetches every kept listing's image, writes the document once and
// feeds the optional mirror and publisher.
func (d *Driver) persist(ctx context.Context, r *run) error {
	site, rep := r.site, r.report

	norm := d.Normalizer
	if norm == nil {
		norm = normalize.New(normalize.DefaultRules...)
	}

	jobs := make([]acquire.Job, len(r.listings))
	for i, l := range r.listings {
		u := urlutil.ResolveURL(site.BaseURL, l.ImageURL)
		if !strings.HasPrefix(u, "data:") {
			u = norm.URL(u)
		}
		jobs[i] = acquire.Job{URL: u, Item: l.Name, Store: site.Store, Week: rep.Week}
	}

	d.progress(Progress{Store: site.Store, Stage: StageImages, Done: 0, Total: len(jobs)})
	results := acquire.NewPool(d.Acquirer, d.Concurrency).AcquireBatch(ctx, jobs)
	if err := ctx.Err(); err != nil {
		return err
	}
	d.progress(Progress{Store: site.Store, Stage: StageImages, Done: len(jobs), Total: len(jobs)})

	items := make([]models.GroceryItem, 0, len(results))
	kept := make([]*acquire.Result, 0, len(results))
	for i, res := range results {
		if !res.Success {
			rep.skip(extract.SkipImageFailed)
			continue
		}
		l := r.listings[i]
		item := models.GroceryItem{
			Name:    l.Name,
			Price:   l.Price,
			Image:   res.Filename,
			InStock: l.InStock,
		}
		if site.RecordImageURL {
			item.ImageURL = jobs[i].URL
		}
		items = append(items, item)
		kept = append(kept, res)
	}
	rep.Items = items
	rep.Kept = len(items)

	if len(items) == 0 {
		log.Warn().Str("store", site.Store).Str("week", rep.Week).Msg("No complete items, document not written")
		return nil
	}

	path, err := d.Store.AppendItems(items, site.Store, rep.Week)
	if err != nil {
		return newRunError(ErrCodePersist, site.Store, rep.Week, "append items", err)
	}
	rep.Document = path

	if d.Mirror != nil {
		rep.Mirrored = d.mirror(ctx, site.Store, rep.Week, items, kept)
	}

	if d.Publisher != nil {
		startDate, _ := store.StartDate(rep.Week)
		err := d.Publisher.Publish(ctx, notify.Event{
			Store:     site.Store,
			Week:      rep.Week,
			StartDate: startDate,
			Items:     len(items),
			Document:  path,
			Mirrored:  rep.Mirrored,
		})
		if err != nil {
			log.Warn().Err(err).Str("store", site.Store).Msg("Failed to publish crawl event")
		}
	}
	return nil
}

// mirror inserts each item with its image bytes. Failures are logged and do
// not undo the document write.
func (d *Driver) mirror(ctx context.Context, storeName, week string, items []models.GroceryItem, results []*acquire.Result) int {
	startDate, err := store.StartDate(week)
	if err != nil {
		log.Warn().Err(err).Str("week", week).Msg("Mirror skipped")
		return 0
	}

	n := 0
	for i, it := range items {
		image, err := os.ReadFile(results[i].Path)
		if err != nil {
			log.Warn().Err(err).Str("file", results[i].Path).Msg("Mirror row stored without image")
		}
		_, err = d.Mirror.InsertResult(ctx, models.CrawlerResultRow{
			StoreName:            storeName,
			WeeklyAdStartingDate: startDate,
			Product:              it.Name,
			ImageURL:             it.ImageURL,
			Image:                image,
			Price:                it.Price,
		})
		if err != nil {
			log.Warn().Err(err).Str("store", storeName).Str("item", it.Name).Msg("Mirror insert failed")
			continue
		}
		n++
	}
	return n
}

func (d *Driver) progress(p Progress) {
	if d.Progress != nil {
		d.Progress(p)
	}
}

func (d *Driver) shuffle(n int, swap func(i, j int)) {
	if d.Shuffle != nil {
		d.Shuffle(n, swap)
		return
	}
	rand.Shuffle(n, swap)
}

func (d *Driver) panelTimeout() time.Duration {
	if d.PanelTimeout > 0 {
		return d.PanelTimeout
	}
	return DefaultPanelTimeout
}

// run is the state of one Driver.Run.
type run struct {
	d        *Driver
	page     dom.Page
	ex       extract.Extractor
	site     extract.Site
	report   *Report
	listings []models.Listing
}

// visit extracts one card and records the outcome.
func (r *run) visit(card extract.Card) {
	r.report.Cards++
	res := extract.Run(r.ex, card)
	if res.OK() {
		r.listings = append(r.listings, res.Listing)
	} else {
		r.report.skip(res.Skip)
		ev := log.Debug().Str("store", r.site.Store).Int("card", card.Index).Str("reason", string(res.Skip))
		if res.Err != nil {
			ev = ev.Err(res.Err)
		}
		ev.Msg("Card skipped")
	}
	r.d.progress(Progress{Store: r.site.Store, Stage: StageCards, Done: r.report.Cards, Total: -1})
}

// miss records a card that could not be opened for extraction.
func (r *run) miss(reason extract.SkipReason, index int) {
	r.report.Cards++
	r.report.skip(reason)
	log.Debug().Str("store", r.site.Store).Int("card", index).Str("reason", string(reason)).Msg("Card skipped")
	r.d.progress(Progress{Store: r.site.Store, Stage: StageCards, Done: r.report.Cards, Total: -1})
}
