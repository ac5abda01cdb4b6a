// Package output renders a stored weekly ad in export formats.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/law-makers/weeklyad/pkg/models"
)

// Format names an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatCSV, FormatHTML, FormatMarkdown}

// ParseFormat accepts a format name or common alias ("md").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "html", "htm":
		return FormatHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unsupported format %q (use json, csv, html or markdown)", s)
}

// Ext is the file extension for f.
func (f Format) Ext() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return "." + string(f)
}

// Export is one store/week document prepared for rendering.
type Export struct {
	Store     string
	Week      string
	StartDate string
	Items     []models.GroceryItem
	// ImageBase prefixes image file names in html and markdown output.
	ImageBase string
}

func (e *Export) imageRef(name string) string {
	if e.ImageBase == "" || name == "" {
		return name
	}
	return strings.TrimSuffix(e.ImageBase, "/") + "/" + name
}

func (e *Export) title() string {
	t := e.Store + " weekly ad " + e.Week
	if e.StartDate != "" {
		t += " (from " + e.StartDate + ")"
	}
	return t
}

// Write renders e to w in format f.
func Write(w io.Writer, f Format, e *Export) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, e)
	case FormatCSV:
		return WriteCSV(w, e)
	case FormatHTML:
		return WriteHTML(w, e)
	case FormatMarkdown:
		return WriteMarkdown(w, e)
	}
	return fmt.Errorf("unsupported format %q", f)
}

func inStock(it models.GroceryItem) string {
	if it.InStock == nil {
		return ""
	}
	if *it.InStock {
		return "yes"
	}
	return "no"
}
