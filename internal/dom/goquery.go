package dom

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Parse parses an HTML string into a Document.
func Parse(htmlContent string) (Document, error) {
	return ParseReader(strings.NewReader(htmlContent))
}

// ParseReader parses HTML from r into a Document.
func ParseReader(r io.Reader) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &gqDocument{doc: doc}, nil
}

// FromSelection wraps the first node of a goquery selection. It returns nil for
// an empty selection.
func FromSelection(sel *goquery.Selection) Element {
	if sel == nil || sel.Length() == 0 {
		return nil
	}
	return gqElement{sel: sel.First()}
}

type gqDocument struct {
	doc *goquery.Document
}

func (d *gqDocument) Root() Element {
	return gqElement{sel: d.doc.Selection}
}

func (d *gqDocument) Find(selector string) []Element {
	return wrapAll(d.doc.Find(selector))
}

type gqElement struct {
	sel *goquery.Selection
}

func (e gqElement) Find(selector string) []Element {
	return wrapAll(e.sel.Find(selector))
}

func (e gqElement) First(selector string) Element {
	return FromSelection(e.sel.Find(selector))
}

func (e gqElement) All() []Element {
	return wrapAll(e.sel.Find("*"))
}

func (e gqElement) Text() string {
	return collapse(e.sel.Text())
}

func (e gqElement) OwnText() string {
	if len(e.sel.Nodes) == 0 {
		return ""
	}
	var sb strings.Builder
	for c := e.sel.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			sb.WriteByte(' ')
		}
	}
	return collapse(sb.String())
}

func (e gqElement) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e gqElement) Tag() string {
	return goquery.NodeName(e.sel)
}

func (e gqElement) HTML() string {
	s, _ := goquery.OuterHtml(e.sel)
	return s
}

func wrapAll(sel *goquery.Selection) []Element {
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, gqElement{sel: s})
	})
	return out
}

// collapse trims and folds runs of whitespace the way rendered inner text does.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
