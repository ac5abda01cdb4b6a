package output

import (
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// WriteHTML renders a standalone page with one table row per item.
func WriteHTML(w io.Writer, e *Export) error {
	if _, err := io.WriteString(w, "<!DOCTYPE html>\n"); err != nil {
		return err
	}
	return html.Render(w, buildPage(e))
}

func buildPage(e *Export) *html.Node {
	title := e.title()

	head := elem(atom.Head,
		elem(atom.Meta).withAttr("charset", "utf-8"),
		elem(atom.Title, text(title)),
	)

	header := elem(atom.Tr)
	for _, h := range []string{"Product", "Price", "Image", "In stock"} {
		header.appendChild(elem(atom.Th, text(h)))
	}
	table := elem(atom.Table, elem(atom.Thead, header))

	tbody := elem(atom.Tbody)
	for _, it := range e.Items {
		img := elem(atom.Img).withAttr("src", e.imageRef(it.Image)).withAttr("alt", it.Name)
		tbody.appendChild(elem(atom.Tr,
			elem(atom.Td, text(it.Name)),
			elem(atom.Td, text(it.Price)),
			elem(atom.Td, img),
			elem(atom.Td, text(inStock(it))),
		))
	}
	table.appendChild(tbody)

	body := elem(atom.Body, elem(atom.H1, text(title)), table)
	return elem(atom.Html, head, body).withAttr("lang", "en").Node
}

type node struct{ *html.Node }

func elem(a atom.Atom, children ...*node) *node {
	n := &node{&html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}}
	for _, c := range children {
		if c != nil {
			n.appendChild(c)
		}
	}
	return n
}

func text(s string) *node {
	return &node{&html.Node{Type: html.TextNode, Data: s}}
}

func (n *node) appendChild(c *node) {
	n.AppendChild(c.Node)
}

func (n *node) withAttr(key, val string) *node {
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	return n
}
