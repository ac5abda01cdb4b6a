package headers

import (
	"reflect"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	in := []string{"user-agent: Bot", "Accept: image/avif, image/webp", "Referer: https://www.kroger.com/"}
	out, err := ParseHeaders(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := map[string]string{
		"User-Agent": "Bot",
		"Accept":     "image/avif, image/webp",
		"Referer":    "https://www.kroger.com/",
	}
	if !reflect.DeepEqual(out, expected) {
		t.Fatalf("unexpected parse result: %#v", out)
	}
}

func TestParseHeaders_Malformed(t *testing.T) {
	for _, in := range []string{"BadHeader", ": value", "Bad Key: value"} {
		if _, err := ParseHeaders([]string{in}); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}
