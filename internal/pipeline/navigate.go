package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/weeklyad/internal/dom"
	"github.com/law-makers/weeklyad/internal/extract"
	urlutil "github.com/law-makers/weeklyad/internal/utils/url"
)

const (
	clickTimeout   = 2 * time.Second
	dismissTimeout = 2 * time.Second
	adLinkWait     = 5 * time.Second
	otherAdsWait   = 8 * time.Second
	viewAdWait     = 10 * time.Second
)

func (r *run) navigator() (func(context.Context) error, bool) {
	switch r.site.Flow {
	case extract.FlowPaginated:
		return r.walkPaginated, true
	case extract.FlowViewAds:
		return r.walkViewAds, true
	case extract.FlowPanels:
		return r.walkPanels, true
	default:
		return nil, false
	}
}

// navigate loads url once the host's rate limit allows it.
func (r *run) navigate(ctx context.Context, url string) error {
	if r.d.Limiter != nil {
		if err := r.d.Limiter.Wait(ctx, url); err != nil {
			return err
		}
	}
	return r.page.Navigate(ctx, url)
}

func (r *run) pause(ctx context.Context) {
	r.d.Delay.Sleep(ctx)
}

// extractCards snapshots page and visits every card on it.
func (r *run) extractCards(ctx context.Context, page dom.Page) (dom.Document, error) {
	doc, err := page.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	cards := doc.Find(r.site.Selectors.Card)
	log.Debug().Str("store", r.site.Store).Int("cards", len(cards)).Msg("Cards found")
	for _, el := range cards {
		r.visit(extract.Card{Node: el, Index: r.report.Cards})
	}
	return doc, nil
}

// walkPaginated reads the entry page, then follows the next-page link until it
// disappears, repeats, leaves the site, fails to load or MaxPages is reached.
func (r *run) walkPaginated(ctx context.Context) error {
	sel := r.site.Selectors
	url := r.site.EntryURL
	seen := map[string]bool{url: true}

	for n := 1; r.d.MaxPages <= 0 || n <= r.d.MaxPages; n++ {
		if err := r.navigate(ctx, url); err != nil {
			if n == 1 {
				return err
			}
			log.Warn().Err(err).Str("url", url).Msg("Next page failed to load, stopping")
			return nil
		}
		if err := r.page.WaitVisible(ctx, sel.Card, r.site.ReadyTimeout); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Str("url", url).Int("page", n).Msg("No cards on page, stopping")
			return nil
		}

		doc, err := r.extractCards(ctx, r.page)
		if err != nil {
			return fmt.Errorf("page %d: %w", n, err)
		}

		next := ""
		if links := doc.Find(sel.Next); len(links) > 0 {
			href, _ := links[0].Attr("href")
			next = urlutil.ResolveURL(r.site.BaseURL, href)
		}
		if next == "" || seen[next] || !urlutil.SameSite(next, r.site.EntryURL) {
			log.Debug().Str("store", r.site.Store).Int("pages", n).Msg("Last page reached")
			return nil
		}
		seen[next] = true
		url = next
		r.pause(ctx)
	}
	return nil
}

// walkViewAds lands on the site, clears modals and opens an ad through the
// weekly-ad link, "view other ads" and "view ad" controls. Every step is best
// effort; only landing on the site at all is required.
func (r *run) walkViewAds(ctx context.Context) error {
	sel := r.site.Selectors

	if err := r.navigate(ctx, r.site.BaseURL); err != nil {
		return err
	}
	r.pause(ctx)
	r.dismissModals(ctx)

	if !r.tryClick(ctx, sel.AdLinks, adLinkWait) {
		log.Debug().Str("store", r.site.Store).Msg("No weekly ad link, opening entry page directly")
		if err := r.navigate(ctx, r.site.EntryURL); err != nil {
			return err
		}
	}
	r.pause(ctx)
	r.dismissModals(ctx)

	if !r.tryClick(ctx, sel.OtherAds, otherAdsWait) {
		log.Debug().Str("store", r.site.Store).Msg("View other ads control not found")
	}
	r.pause(ctx)

	if !r.tryClick(ctx, sel.ViewAd, viewAdWait) {
		log.Debug().Str("store", r.site.Store).Msg("View ad control not found")
	}
	r.pause(ctx)
	r.dismissModals(ctx)

	if err := r.page.WaitVisible(ctx, sel.Card, r.site.ReadyTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Str("store", r.site.Store).Msg("Ad cards never appeared")
		return nil
	}
	_, err := r.extractCards(ctx, r.page)
	return err
}

// tryClick clicks the first selector that is present. Only the first selector
// is waited for, up to wait; the rest are fallbacks checked as they are.
func (r *run) tryClick(ctx context.Context, selectors []string, wait time.Duration) bool {
	for i, s := range selectors {
		if i == 0 && wait > 0 {
			if err := r.page.WaitVisible(ctx, s, wait); err != nil {
				continue
			}
		} else if ok, _ := r.page.Exists(ctx, s); !ok {
			continue
		}
		if err := r.page.Click(ctx, s, clickTimeout); err != nil {
			log.Debug().Err(err).Str("selector", s).Msg("Click failed")
			continue
		}
		log.Debug().Str("store", r.site.Store).Str("selector", s).Msg("Clicked")
		return true
	}
	return false
}

// dismissModals closes whatever dialogs are open: close buttons, Escape, then
// removal of leftover overlays.
func (r *run) dismissModals(ctx context.Context) {
	sel := r.site.Selectors
	for _, s := range sel.Dismiss {
		if ok, _ := r.page.Exists(ctx, s); ok {
			if err := r.page.Click(ctx, s, dismissTimeout); err == nil {
				log.Debug().Str("selector", s).Msg("Modal dismissed")
			}
		}
	}
	if len(sel.Dismiss) > 0 || len(sel.Overlays) > 0 {
		r.page.PressEscape(ctx)
	}
	for _, s := range sel.Overlays {
		r.page.Remove(ctx, s)
	}
}

// walkPanels clicks every trigger inside the main frame, flyer by flyer in
// random order, and extracts each with the detail panel it reveals.
func (r *run) walkPanels(ctx context.Context) error {
	sel := r.site.Selectors

	if err := r.navigate(ctx, r.site.EntryURL); err != nil {
		return err
	}
	if err := r.page.WaitVisible(ctx, sel.Frame, r.site.ReadyTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Str("store", r.site.Store).Msg("Main frame never appeared")
		return nil
	}
	frame, err := r.page.Frame(ctx, sel.Frame)
	if err != nil {
		log.Warn().Err(err).Str("store", r.site.Store).Msg("Main frame not accessible")
		return nil
	}
	if err := frame.WaitVisible(ctx, sel.Trigger, r.site.ReadyTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Str("store", r.site.Store).Msg("No items in flyer")
		return nil
	}

	doc, err := frame.Snapshot(ctx)
	if err != nil {
		return err
	}
	groups := groupTriggers(doc, sel)
	log.Info().Str("store", r.site.Store).Int("flyers", len(groups)).Msg("Flyers found")

	r.d.shuffle(len(groups), func(i, j int) { groups[i], groups[j] = groups[j], groups[i] })
	for _, g := range groups {
		r.d.shuffle(len(g), func(i, j int) { g[i], g[j] = g[j], g[i] })
		for _, trigger := range g {
			if err := ctx.Err(); err != nil {
				return err
			}
			index := r.report.Cards
			key, _ := trigger.Attr(sel.TriggerKey)
			if key == "" {
				r.miss(extract.SkipNoPanel, index)
				continue
			}

			detail := r.openPanel(ctx, frame, fmt.Sprintf(`%s[%s="%s"]`, sel.Trigger, sel.TriggerKey, cssEscape(key)))
			if detail == nil {
				r.miss(extract.SkipNoPanel, index)
			} else {
				r.visit(extract.Card{Node: trigger, Detail: detail, Index: index})
			}
			r.pause(ctx)
		}
	}
	return nil
}

// openPanel clicks trigger inside frame and returns the panel document root,
// or nil when no panel showed up within the panel timeout.
func (r *run) openPanel(ctx context.Context, frame dom.Page, trigger string) dom.Element {
	sel := r.site.Selectors
	timeout := r.d.panelTimeout()

	if err := frame.Click(ctx, trigger, clickTimeout); err != nil {
		log.Debug().Err(err).Str("selector", trigger).Msg("Trigger click failed")
		return nil
	}
	if err := r.page.WaitVisible(ctx, sel.Panel, timeout); err != nil {
		return nil
	}
	panel, err := r.page.Frame(ctx, sel.Panel)
	if err != nil {
		return nil
	}
	if sel.PanelImage != "" {
		// the image may still be loading; extraction decides if it is missing
		panel.WaitVisible(ctx, sel.PanelImage, timeout)
	}
	doc, err := panel.Snapshot(ctx)
	if err != nil {
		return nil
	}
	return doc.Root()
}

// groupTriggers collects triggers per flyer group, in document order, with
// triggers outside any group in a final group. A trigger key seen twice is
// kept once.
func groupTriggers(doc dom.Document, sel extract.Selectors) [][]dom.Element {
	seen := make(map[string]bool)
	id := func(el dom.Element) string {
		if sel.TriggerKey != "" {
			if v, _ := el.Attr(sel.TriggerKey); v != "" {
				return v
			}
		}
		return el.HTML()
	}

	var groups [][]dom.Element
	if sel.Group != "" {
		for _, g := range doc.Find(sel.Group) {
			var triggers []dom.Element
			for _, t := range g.Find(sel.Trigger) {
				if k := id(t); !seen[k] {
					seen[k] = true
					triggers = append(triggers, t)
				}
			}
			if len(triggers) > 0 {
				groups = append(groups, triggers)
			}
		}
	}

	var loose []dom.Element
	for _, t := range doc.Find(sel.Trigger) {
		if k := id(t); !seen[k] {
			seen[k] = true
			loose = append(loose, t)
		}
	}
	if len(loose) > 0 {
		groups = append(groups, loose)
	}
	return groups
}

func cssEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
