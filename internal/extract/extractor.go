// Package extract turns weekly-ad cards into raw listings, one Extractor per
// retailer.
package extract

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/law-makers/weeklyad/internal/dom"
	"github.com/law-makers/weeklyad/pkg/models"
)

// Flow selects how the pipeline reaches a store's cards.
type Flow string

const (
	// FlowPaginated follows a "next page" link until it disappears.
	FlowPaginated Flow = "paginated"
	// FlowViewAds opens the ad through modal "view ad" controls.
	FlowViewAds Flow = "view-ads"
	// FlowPanels clicks each item to reveal a detail panel.
	FlowPanels Flow = "panels"
)

// Selectors holds the CSS selectors a Site is navigated and read with.
// Unused fields are left empty.
type Selectors struct {
	Card    string
	Next    string
	Frame   string
	Trigger string
	// TriggerKey is the attribute that tells triggers apart.
	TriggerKey string
	Group      string
	Panel      string
	PanelImage string

	Dismiss  []string
	Overlays []string
	AdLinks  []string
	OtherAds []string
	ViewAd   []string
}

// Site describes where a store's ad lives and how to walk it.
type Site struct {
	Store    string
	BaseURL  string
	EntryURL string
	Flow     Flow

	Selectors Selectors
	Cookies   []dom.Cookie

	// ReadyTimeout bounds the wait for the first cards (or main frame).
	ReadyTimeout time.Duration
	// RecordImageURL keeps the normalized remote URL on persisted items.
	RecordImageURL bool
}

// Card is one deal element handed to an Extractor.
type Card struct {
	Node dom.Element
	// Detail is the revealed panel for click-to-reveal stores, nil otherwise.
	Detail dom.Element
	Index  int
}

// SkipReason says why a card produced no listing.
type SkipReason string

const (
	SkipNone          SkipReason = ""
	SkipNoName        SkipReason = "no_name"
	SkipNoPrice       SkipReason = "no_price"
	SkipNoImage       SkipReason = "no_image"
	SkipUnknownLayout SkipReason = "unknown_layout"
	SkipError         SkipReason = "error"
	SkipImageFailed   SkipReason = "image_failed"
	SkipNoPanel       SkipReason = "no_panel"
)

// Result is the outcome for a single card.
type Result struct {
	Listing models.Listing
	Skip    SkipReason
	Err     error
}

// OK reports whether the card yielded a complete listing.
func (r Result) OK() bool {
	return r.Skip == SkipNone && r.Err == nil
}

// Skipped builds a Result for a card that yields nothing.
func Skipped(reason SkipReason) Result {
	return Result{Skip: reason}
}

// Extractor reads listings out of one retailer's cards.
type Extractor interface {
	Site() Site
	Extract(card Card) Result
}

// Run extracts a single card. It is the only place the per-card skip policy
// is applied: panics become SkipError and listings missing a required field
// are rejected.
func Run(ex Extractor, card Card) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Skip: SkipError, Err: fmt.Errorf("card %d: %v", card.Index, r)}
		}
	}()

	if card.Node == nil {
		return Result{Skip: SkipError, Err: errors.New("card has no node")}
	}

	res = ex.Extract(card)
	if res.Err != nil && res.Skip == SkipNone {
		res.Skip = SkipError
	}
	if res.Skip != SkipNone {
		return res
	}

	l := &res.Listing
	l.Name = strings.TrimSpace(l.Name)
	l.Price = strings.TrimSpace(l.Price)
	l.ImageURL = strings.TrimSpace(l.ImageURL)

	switch {
	case l.Name == "":
		res.Skip = SkipNoName
	case l.Price == "":
		res.Skip = SkipNoPrice
	case l.ImageURL == "":
		res.Skip = SkipNoImage
	}
	return res
}

// text returns the trimmed text of el, or "" when el is nil.
func text(el dom.Element) string {
	if el == nil {
		return ""
	}
	return el.Text()
}

// attr returns the trimmed attribute value, or "" when el is nil.
func attr(el dom.Element, name string) string {
	if el == nil {
		return ""
	}
	v, _ := el.Attr(name)
	return strings.TrimSpace(v)
}

// labelOrText prefers the accessible label of el over its visible text.
func labelOrText(el dom.Element) string {
	if v := attr(el, "aria-label"); v != "" {
		return v
	}
	return text(el)
}

// cardID picks the first present id attribute, else a positional id.
func cardID(card Card, prefix string, attrs ...string) string {
	for _, a := range attrs {
		if v := attr(card.Node, a); v != "" {
			return v
		}
	}
	return fmt.Sprintf("%s-%d", prefix, card.Index)
}
