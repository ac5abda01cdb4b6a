package dom

import (
	"context"
	"errors"
	"testing"
	"time"
)

const cardHTML = `<html><body>
<div class="card" data-id="42">
	Fresh
	<span class="name">  Bananas
	</span>
	produce
	<img src="/b.jpg" alt="">
</div>
<iframe class="mainframe"></iframe>
</body></html>`

func TestElement_Queries(t *testing.T) {
	doc, err := Parse(cardHTML)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cards := doc.Find(".card")
	if len(cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(cards))
	}
	card := cards[0]

	if card.Tag() != "div" {
		t.Errorf("tag = %q", card.Tag())
	}
	if got := card.Text(); got != "Fresh Bananas produce" {
		t.Errorf("text = %q", got)
	}
	if got := card.OwnText(); got != "Fresh produce" {
		t.Errorf("own text = %q", got)
	}
	if got := card.First(".name").Text(); got != "Bananas" {
		t.Errorf("name = %q", got)
	}
	if el := card.First(".price"); el != nil {
		t.Errorf("expected nil for a missing child, got %v", el)
	}
	if n := len(card.All()); n != 2 {
		t.Errorf("expected 2 descendants, got %d", n)
	}
}

func TestElement_Attr(t *testing.T) {
	doc, err := Parse(cardHTML)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	card := doc.Find(".card")[0]

	if v, ok := card.Attr("data-id"); !ok || v != "42" {
		t.Errorf("data-id = %q, %v", v, ok)
	}
	if _, ok := card.Attr("data-missing"); ok {
		t.Error("expected missing attribute to report false")
	}

	img := card.First("img")
	if v, ok := img.Attr("alt"); !ok || v != "" {
		t.Errorf("empty alt should be present: %q, %v", v, ok)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	doc, err := Parse(`<p><span> </span><span>Milk</span><span>Eggs</span></p>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := FirstNonEmpty(doc.Find("span")); got != "Milk" {
		t.Errorf("got %q", got)
	}
	if got := FirstNonEmpty(nil); got != "" {
		t.Errorf("got %q for no elements", got)
	}
}

func TestStatic_NavigateAndClick(t *testing.T) {
	ctx := context.Background()
	p := NewStatic().
		AddPage("https://shop.test/ad", `<div class="card">A</div><button id="more">More</button>`)
	p.OnClick = func(p *Static, selector string) error {
		return p.SetHTML(`<div class="card">A</div><div class="card">B</div>`)
	}

	if err := p.Navigate(ctx, "https://shop.test/missing"); err == nil {
		t.Error("expected unknown page to fail without Fetch")
	}
	if err := p.Navigate(ctx, "https://shop.test/ad"); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if u, _ := p.URL(ctx); u != "https://shop.test/ad" {
		t.Errorf("url = %q", u)
	}

	if err := p.WaitVisible(ctx, ".nothing", time.Second); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := p.Click(ctx, "#more", time.Second); err != nil {
		t.Fatalf("Click failed: %v", err)
	}
	if got := p.Clicks(); len(got) != 1 || got[0] != "#more" {
		t.Errorf("clicks = %v", got)
	}

	doc, err := p.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if n := len(doc.Find(".card")); n != 2 {
		t.Errorf("expected 2 cards after click, got %d", n)
	}

	if err := p.Remove(ctx, ".card"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if ok, _ := p.Exists(ctx, ".card"); ok {
		t.Error("expected cards removed")
	}
}

func TestStatic_FrameScoping(t *testing.T) {
	ctx := context.Background()
	outer, err := StaticHTML(`<div class="card">outer</div><iframe class="mainframe"></iframe>`)
	if err != nil {
		t.Fatalf("StaticHTML failed: %v", err)
	}
	inner, err := StaticHTML(`<button class="trigger">Open</button>`)
	if err != nil {
		t.Fatalf("StaticHTML failed: %v", err)
	}

	if _, err := outer.Frame(ctx, "iframe.mainframe"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound before attaching, got %v", err)
	}
	outer.SetFrame("iframe.mainframe", inner)

	frame, err := outer.Frame(ctx, "iframe.mainframe")
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if ok, _ := frame.Exists(ctx, ".card"); ok {
		t.Error("frame should not see the outer document")
	}
	if ok, _ := frame.Exists(ctx, ".trigger"); !ok {
		t.Error("frame should see its own document")
	}
	if ok, _ := outer.Exists(ctx, ".trigger"); ok {
		t.Error("outer page should not see the frame document")
	}

	outer.SetFrame("iframe.mainframe", nil)
	if _, err := outer.Frame(ctx, "iframe.mainframe"); err == nil {
		t.Error("expected detached frame to be gone")
	}
}

func TestStatic_FetchAndCookies(t *testing.T) {
	ctx := context.Background()
	p := NewStatic()
	p.Fetch = func(url string) (string, error) { return `<p class="from">` + url + `</p>`, nil }

	if err := p.Navigate(ctx, "https://shop.test/x"); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	doc, err := p.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if got := FirstNonEmpty(doc.Find(".from")); got != "https://shop.test/x" {
		t.Errorf("fetched content = %q", got)
	}

	if err := p.SetCookies(ctx, []Cookie{{Name: "session", Value: "abc"}}); err != nil {
		t.Fatalf("SetCookies failed: %v", err)
	}
	if c := p.Cookies(); len(c) != 1 || c[0].Name != "session" {
		t.Errorf("cookies = %+v", c)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := p.Snapshot(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
