package extract

import (
	"strings"
	"time"

	"github.com/law-makers/weeklyad/internal/dom"
	"github.com/law-makers/weeklyad/pkg/models"
)

type krogerExtractor struct{}

// NewKroger returns the Kroger extractor. Kroger mixes two card layouts in the
// same grid, told apart by their class tokens.
func NewKroger() Extractor {
	return krogerExtractor{}
}

func init() {
	Register(NewKroger())
}

func (krogerExtractor) Site() Site {
	return Site{
		Store:    "kroger",
		BaseURL:  "https://www.kroger.com",
		EntryURL: "https://www.kroger.com/weeklyad",
		Flow:     FlowViewAds,
		Selectors: Selectors{
			Card: ".kds-Card",
			Dismiss: []string{
				`button[aria-label="Close"]`,
				`button[aria-label="close"]`,
				".kds-Modal-closeButton",
				`[data-testid="ModalCloseButton"]`,
			},
			Overlays: []string{".kds-Modal-overlay", ".ReactModal__Overlay"},
			AdLinks:  []string{`a[href^="/weeklyad"]`},
			OtherAds: []string{`[data-testid="ViewOtherAdsButton"]`},
			ViewAd:   []string{`[data-testid^="ViewAd-"]`, `button[aria-label^="View Ad"]`},
		},
		ReadyTimeout:   20 * time.Second,
		RecordImageURL: true,
	}
}

func (krogerExtractor) Extract(card Card) Result {
	class := attr(card.Node, "class")
	switch {
	case strings.Contains(class, "SWA-Omni"):
		return krogerOmni(card)
	case strings.Contains(class, "SWA-Feature"):
		return krogerFeature(card)
	default:
		return Skipped(SkipUnknownLayout)
	}
}

func krogerOmni(card Card) Result {
	node := card.Node
	img := node.First("img")

	name := attr(img, "alt")
	if t := dom.FirstNonEmpty(node.Find(".SWA-OmniDescriptionBlock .kds-Text--m")); t != "" {
		name = t
	}

	promo := text(node.First(".SWA-OmniPricePrefix"))
	price := labelOrText(node.First(".SWA-OmniPriceHeading"))

	return Result{Listing: models.Listing{
		ID:       cardID(card, "kroger"),
		Name:     name,
		ImageURL: ImageSource(img),
		Price:    strings.TrimSpace(promo + " " + price),
	}}
}

func krogerFeature(card Card) Result {
	node := card.Node
	img := node.First("img")

	name := attr(img, "alt")
	if t := dom.FirstNonEmpty(node.Find(".SWA-FeatureDealDescription")); t != "" {
		name = t
	}

	return Result{Listing: models.Listing{
		ID:       cardID(card, "kroger"),
		Name:     name,
		ImageURL: ImageSource(img),
		Price:    labelOrText(node.First(".SWA-FeaturePriceHeading")),
	}}
}
