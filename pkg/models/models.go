package models

import (
	"errors"
	"strings"
)

// ErrIncompleteItem is returned by GroceryItem.Validate when a required field is blank.
var ErrIncompleteItem = errors.New("grocery item is missing a required field")

// GroceryItem is the normalized record persisted in a weekly ad document.
//
// Image holds the file name of the downloaded image inside the store/week
// folder; ImageURL is the normalized remote location it was fetched from.
type GroceryItem struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Image    string `json:"image"`
	ImageURL string `json:"image_url,omitempty"`
	InStock  *bool  `json:"in_stock,omitempty"`
}

// Validate reports whether the item carries every field a persisted record needs.
func (g GroceryItem) Validate() error {
	switch {
	case strings.TrimSpace(g.Name) == "":
		return errors.Join(ErrIncompleteItem, errors.New("name"))
	case strings.TrimSpace(g.Price) == "":
		return errors.Join(ErrIncompleteItem, errors.New("price"))
	case strings.TrimSpace(g.Image) == "":
		return errors.Join(ErrIncompleteItem, errors.New("image"))
	}
	return nil
}

// Listing is what an extractor reads off a single card, before the image is
// normalized and downloaded.
type Listing struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
	Price    string `json:"price"`
	InStock  *bool  `json:"in_stock,omitempty"`
}

// CrawlerResultRow is one row of the relational mirror table.
type CrawlerResultRow struct {
	ID                   int64  `json:"id"`
	StoreName            string `json:"storename"`
	WeeklyAdStartingDate string `json:"weekly_ad_starting_date"`
	Product              string `json:"product"`
	ImageURL             string `json:"image_url,omitempty"`
	Image                []byte `json:"-"`
	Price                string `json:"price"`
}

// Bool returns a pointer to b, for the optional in_stock field.
func Bool(b bool) *bool {
	return &b
}
