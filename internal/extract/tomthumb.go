package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/law-makers/weeklyad/pkg/models"
)

var tomThumbPrice = regexp.MustCompile(`\$\s*\d{1,3}(?:[\,\d]*)(?:\.\d{1,2})?`)

const tomThumbPanelImage = ".single-media-container img"

type tomThumbExtractor struct{}

// NewTomThumb returns the Tom Thumb extractor. Its flyer hides item images
// behind a side panel, so cards carry the panel as Detail.
func NewTomThumb() Extractor {
	return tomThumbExtractor{}
}

func init() {
	Register(NewTomThumb())
}

func (tomThumbExtractor) Site() Site {
	return Site{
		Store:    "tomthumb",
		BaseURL:  "https://www.tomthumb.com",
		EntryURL: "https://www.tomthumb.com/weeklyad",
		Flow:     FlowPanels,
		Selectors: Selectors{
			Frame:      "iframe.mainframe",
			Trigger:    "button[data-product-id]",
			TriggerKey: "data-product-id",
			Group:      "sfml-flyer-image",
			Panel:      "iframe.asideframe",
			PanelImage: tomThumbPanelImage,
		},
		ReadyTimeout: 20 * time.Second,
	}
}

func (tomThumbExtractor) Extract(card Card) Result {
	label := attr(card.Node, "aria-label")
	if label == "" {
		label = attr(card.Node, "label")
	}

	var imageURL, alt string
	if card.Detail != nil {
		img := card.Detail.First(tomThumbPanelImage)
		imageURL = ImageSource(img, "src", "data-src", "data-srcset")
		alt = attr(img, "alt")
	}

	name := labelName(label)
	if name == "" {
		name = alt
	}

	return Result{Listing: models.Listing{
		ID:       cardID(card, "btn", "data-product-id", "data-global-id"),
		Name:     name,
		ImageURL: imageURL,
		Price:    ParsePrice(label),
	}}
}

// ParsePrice returns the first dollar amount in s with inner spaces removed.
func ParsePrice(s string) string {
	return strings.ReplaceAll(tomThumbPrice.FindString(s), " ", "")
}

// labelName takes the product name out of a label shaped like
// "Product Name, , $1.99 . Select for details."
func labelName(label string) string {
	if i := strings.Index(label, "$"); i >= 0 {
		label = label[:i]
	}
	if i := strings.Index(label, ", ,"); i >= 0 {
		label = label[:i]
	}
	return strings.TrimRight(strings.TrimSpace(label), " ,")
}
