package extract

import (
	"strings"
	"time"

	"github.com/law-makers/weeklyad/internal/dom"
	"github.com/law-makers/weeklyad/pkg/models"
)

type hebExtractor struct{}

// NewHEB returns the H-E-B extractor.
func NewHEB() Extractor {
	return hebExtractor{}
}

func init() {
	Register(NewHEB())
}

func (hebExtractor) Site() Site {
	return Site{
		Store:    "heb",
		BaseURL:  "https://www.heb.com",
		EntryURL: "https://www.heb.com/weekly-ad/deals",
		Flow:     FlowPaginated,
		Selectors: Selectors{
			Card: `[data-component="product-card"]`,
			Next: `[data-qe-id="paginationNext"]`,
		},
		Cookies: []dom.Cookie{{
			Name:   "SHOPPING_STORE_ID",
			Value:  "796",
			Domain: "www.heb.com",
			Path:   "/",
			Secure: true,
		}},
		ReadyTimeout: 20 * time.Second,
	}
}

func (hebExtractor) Extract(card Card) Result {
	node := card.Node

	img := node.First("img")
	name := attr(img, "alt")
	if t := dom.FirstNonEmpty(node.Find(`[data-qe-id="productTitle"] span`)); t != "" {
		name = t
	}

	var price, unit string
	var coupon bool
	for _, el := range node.All() {
		own := el.OwnText()
		if own == "" {
			continue
		}
		full := el.Text()
		if price == "" && strings.Contains(own, "$") && strings.Contains(full, "$") && !strings.Contains(full, "/") {
			price = full
		}
		if unit == "" && strings.Contains(own, " / ") && strings.Contains(full, "$") {
			unit = full
		}
		if strings.Contains(strings.ToLower(own), "coupon") {
			coupon = true
		}
	}

	inStock := false
	for _, btn := range node.Find("button") {
		if strings.Contains(btn.Text(), "Add to") {
			inStock = true
			break
		}
	}

	// Decorations only make sense around an actual price.
	if price != "" {
		if unit != "" {
			price += " (" + unit + ")"
		}
		if coupon {
			price += " [Coupon]"
		}
	}

	return Result{Listing: models.Listing{
		ID:       cardID(card, "heb", "data-product-id", "data-qe-id"),
		Name:     name,
		ImageURL: ImageSource(img),
		Price:    strings.TrimSpace(price),
		InStock:  models.Bool(inStock),
	}}
}
