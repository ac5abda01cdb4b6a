package normalize

import (
	"strings"
	"testing"
)

func TestURL_RewritesKrogerCDN(t *testing.T) {
	in := "https://www.krogercdn.com/weeklyads/images/Kroger/Montages/0123/bananas.jpg?w=300&h=300"
	want := "https://s3.us-west-1.wasabisys.com/kroger/Kroger/Montages/0123/bananas.jpg"

	if got := URL(in); got != want {
		t.Errorf("URL(%q) = %q, want %q", in, got, want)
	}
}

func TestURL_EmptyStaysEmpty(t *testing.T) {
	if got := URL(""); got != "" {
		t.Errorf("URL(\"\") = %q, want empty", got)
	}
}

func TestURL_StripsQueryOnly(t *testing.T) {
	in := "https://images.heb.com/is/image/HEBGrocery/000377497?$160x160$"
	want := "https://images.heb.com/is/image/HEBGrocery/000377497"
	if got := URL(in); got != want {
		t.Errorf("URL(%q) = %q, want %q", in, got, want)
	}
}

func TestURL_CaseSensitiveOrigin(t *testing.T) {
	in := "https://WWW.KROGERCDN.COM/weeklyads/images/Kroger/Montages/a.png"
	if got := URL(in); got != in {
		t.Errorf("expected upper-case origin to be left alone, got %q", got)
	}
}

func TestURL_IdempotentAndQueryFree(t *testing.T) {
	inputs := []string{
		"",
		"?",
		"??a=b",
		"https://example.com/a.png",
		"https://example.com/a.png?x=1?y=2",
		"https://www.krogercdn.com/weeklyads/images/Kroger/Montages/x.jpg?v=2",
		"https://www.krogercdn.com/weeklyads/images/Kroger/Montages/https://www.krogercdn.com/weeklyads/images/Kroger/Montages/y.jpg",
		"data:image/png;base64,iVBORw0KGgo=",
	}

	for _, in := range inputs {
		once := URL(in)
		twice := URL(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
		if strings.Contains(once, "?") {
			t.Errorf("URL(%q) = %q still contains '?'", in, once)
		}
	}
}

func TestNormalizer_FirstMatchWins(t *testing.T) {
	n := New(
		Rule{From: "https://cdn-a.example/", To: "https://mirror.example/a/"},
		Rule{From: "https://cdn", To: "https://other.example/"},
		Rule{From: "", To: "ignored"},
	)

	got := n.URL("https://cdn-a.example/img.jpg?size=large")
	want := "https://mirror.example/a/img.jpg"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if len(n.Rules()) != 2 {
		t.Errorf("expected empty rule to be dropped, got %d rules", len(n.Rules()))
	}
}

func TestNormalizer_ZeroValueStripsQuery(t *testing.T) {
	var n Normalizer
	if got := n.URL("https://x/y.jpg?z"); got != "https://x/y.jpg" {
		t.Errorf("got %q", got)
	}
}
