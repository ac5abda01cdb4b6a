// Package dom defines the narrow browser capability the crawl pipeline drives,
// and a goquery-backed implementation of it.
//
// Extraction only ever reads Elements taken from a Snapshot, so extractors can
// be exercised against plain HTML. Interaction (navigation, clicks, waits)
// goes through Page, which a real browser adapter or Static satisfies.
package dom

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a selector matches nothing within its wait bound.
var ErrNotFound = errors.New("element not found")

// Element is a read-only view of one node.
type Element interface {
	// Find returns all descendants matching the CSS selector.
	Find(selector string) []Element
	// First returns the first match or nil.
	First(selector string) Element
	// All returns every descendant element in document order.
	All() []Element
	// Text is the trimmed text content of the node and its descendants.
	Text() string
	// OwnText is the trimmed text of the node's direct text children only.
	OwnText() string
	// Attr returns an attribute value.
	Attr(name string) (string, bool)
	// Tag is the lower-case element name.
	Tag() string
	// HTML is the node's outer HTML.
	HTML() string
}

// Document is a parsed page snapshot.
type Document interface {
	Root() Element
	Find(selector string) []Element
}

// Cookie is a cookie to install before navigating.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite string
	Expires  float64
}

// Page is a live page (or iframe inside one) that can be navigated and clicked.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	// WaitVisible blocks until selector matches a visible node or timeout passes.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Exists(ctx context.Context, selector string) (bool, error)
	// Click clicks the first node matching selector, waiting at most timeout for it.
	Click(ctx context.Context, selector string, timeout time.Duration) error
	PressEscape(ctx context.Context) error
	// Remove deletes every node matching selector from the live DOM.
	Remove(ctx context.Context, selector string) error
	Snapshot(ctx context.Context) (Document, error)
	// Frame returns a Page scoped to the document of the iframe matching selector.
	Frame(ctx context.Context, selector string) (Page, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
}

// FirstNonEmpty returns the first non-empty trimmed text among elements.
func FirstNonEmpty(elems []Element) string {
	for _, e := range elems {
		if t := e.Text(); t != "" {
			return t
		}
	}
	return ""
}
