package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestStyle_Disabled(t *testing.T) {
	prev := Enabled
	t.Cleanup(func() { Enabled = prev })

	Enabled = false
	if got := Success("ok"); got != "ok" {
		t.Errorf("Success() = %q, want plain text", got)
	}

	Enabled = true
	if got := Error("bad"); got != ColorRed+"bad"+ColorReset {
		t.Errorf("Error() = %q", got)
	}
}

func TestField(t *testing.T) {
	prev := Enabled
	t.Cleanup(func() { Enabled = prev })
	Enabled = false

	var buf bytes.Buffer
	Field(&buf, "Store", "heb")
	if got := buf.String(); got != "  Store:     heb\n" {
		t.Errorf("Field() = %q", got)
	}

	buf.Reset()
	Heading(&buf, "Crawl")
	if !strings.Contains(buf.String(), "Crawl\n━") {
		t.Errorf("Heading() = %q", buf.String())
	}
}
