package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/law-makers/weeklyad/pkg/models"
)

func sampleExport() *Export {
	return &Export{
		Store:     "heb",
		Week:      "2025-W10",
		StartDate: "2025-03-03",
		ImageBase: "data/heb/2025-W10",
		Items: []models.GroceryItem{
			{Name: "Bananas", Price: "$0.59", Image: "Bananas.jpg", InStock: models.Bool(true)},
			{Name: "Ribeye <Steak>", Price: "$9.99", Image: "RibeyeSteak.jpg", ImageURL: "https://cdn.example.com/ribeye.jpg"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": FormatJSON, "CSV": FormatCSV, "htm": FormatHTML, "md": FormatMarkdown}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
	if FormatMarkdown.Ext() != ".md" || FormatCSV.Ext() != ".csv" {
		t.Error("unexpected extensions")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	e := sampleExport()
	if err := Write(&buf, FormatJSON, e); err != nil {
		t.Fatal(err)
	}
	var got []models.GroceryItem
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(e.Items, got); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := WriteJSON(&buf, &Export{}); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty export = %q", buf.String())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleExport()); err != nil {
		t.Fatal(err)
	}
	want := "name,price,image,image_url,in_stock\n" +
		"Bananas,$0.59,Bananas.jpg,,yes\n" +
		"Ribeye <Steak>,$9.99,RibeyeSteak.jpg,https://cdn.example.com/ribeye.jpg,\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, sampleExport()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>heb weekly ad 2025-W10 (from 2025-03-03)</title>",
		`<img src="data/heb/2025-W10/Bananas.jpg" alt="Bananas"/>`,
		"<td>Ribeye &lt;Steak&gt;</td>",
		"<td>yes</td>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, sampleExport()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"heb weekly ad 2025-W10",
		"![Bananas](data/heb/2025-W10/Bananas.jpg)",
		"Product",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q in:\n%s", want, out)
		}
	}
}
