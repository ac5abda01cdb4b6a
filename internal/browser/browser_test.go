package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/law-makers/weeklyad/internal/dom"
)

func TestSameSite(t *testing.T) {
	tests := map[string]network.CookieSameSite{
		"Strict":         network.CookieSameSiteStrict,
		"lax":            network.CookieSameSiteLax,
		"no_restriction": network.CookieSameSiteNone,
		"unspecified":    "",
		"":               "",
	}
	for in, want := range tests {
		if got := sameSite(in); got != want {
			t.Errorf("sameSite(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBundledChrome(t *testing.T) {
	got := BundledChrome("lib")
	if filepath.Dir(got) != filepath.Join("lib", "chrome-win64") {
		t.Errorf("unexpected bundle path %q", got)
	}
	if !strings.HasPrefix(filepath.Base(got), "chrome") {
		t.Errorf("unexpected executable name %q", got)
	}
}

func TestLaunch_MissingChrome(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	t.Setenv("CHROME_PATH", "")
	if FindChrome("", t.TempDir()) != "" {
		t.Skip("Chrome installed at a standard location")
	}
	_, err := Launch(context.Background(), Options{LibDir: t.TempDir(), Headless: true})
	if err == nil {
		t.Fatal("expected an error without a Chrome executable")
	}
}

const smokePage = `<!DOCTYPE html>
<html>
<head><title>Weekly Ad</title></head>
<body>
	<div class="modal">Sign up for deals</div>
	<div data-component="product-card"><span class="name">Bananas</span><span>$0.59</span></div>
	<button id="more" onclick="document.body.insertAdjacentHTML('beforeend', '<div data-component=&quot;product-card&quot;><span class=&quot;name&quot;>Milk</span></div>')">Load more</button>
</body>
</html>`

func TestPage_Smoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if FindChrome("", "") == "" {
		t.Skip("Chrome is not available, skipping test")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(smokePage))
	}))
	defer server.Close()

	ctx := context.Background()
	b, err := Launch(ctx, Options{Headless: true, ActionTimeout: 20 * time.Second})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	defer b.Close()

	p, err := b.NewPage()
	if err != nil {
		t.Fatalf("NewPage failed: %v", err)
	}
	defer p.Close()

	if err := p.Navigate(ctx, server.URL); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if err := p.WaitVisible(ctx, `[data-component="product-card"]`, 10*time.Second); err != nil {
		t.Fatalf("WaitVisible failed: %v", err)
	}

	if ok, err := p.Exists(ctx, ".missing"); err != nil || ok {
		t.Errorf("Exists(.missing) = %v, %v", ok, err)
	}
	if err := p.Remove(ctx, ".modal"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := p.Click(ctx, "#more", 5*time.Second); err != nil {
		t.Fatalf("Click failed: %v", err)
	}

	doc, err := p.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if n := len(doc.Find(".modal")); n != 0 {
		t.Errorf("expected modal removed, found %d", n)
	}
	names := dom.FirstNonEmpty(doc.Find(".name"))
	if names != "Bananas" {
		t.Errorf("first name = %q", names)
	}
	if n := len(doc.Find(`[data-component="product-card"]`)); n != 2 {
		t.Errorf("expected 2 cards after click, got %d", n)
	}
}
