package dom

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// Static is a Page over in-memory HTML. It backs offline runs against saved
// pages and lets tests script what a click reveals.
type Static struct {
	mu      sync.Mutex
	pages   map[string]string
	frames  map[string]*Static
	current string
	doc     *goquery.Document
	cookies []Cookie
	clicks  []string

	// Fetch loads pages that were not registered with AddPage.
	Fetch func(url string) (string, error)
	// OnClick runs after a successful click, e.g. to attach a panel frame.
	OnClick func(p *Static, selector string) error
}

// NewStatic returns an empty Static page.
func NewStatic() *Static {
	return &Static{
		pages:  make(map[string]string),
		frames: make(map[string]*Static),
	}
}

// StaticHTML returns a Static page already showing htmlContent.
func StaticHTML(htmlContent string) (*Static, error) {
	p := NewStatic()
	if err := p.SetHTML(htmlContent); err != nil {
		return nil, err
	}
	return p, nil
}

// AddPage registers the HTML served for url.
func (p *Static) AddPage(url, htmlContent string) *Static {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages[url] = htmlContent
	return p
}

// SetHTML replaces the current document.
func (p *Static) SetHTML(htmlContent string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
	return nil
}

// SetFrame attaches frame as the document of the iframe matching selector.
// A nil frame detaches it.
func (p *Static) SetFrame(selector string, frame *Static) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if frame == nil {
		delete(p.frames, selector)
		return
	}
	p.frames[selector] = frame
}

// Clicks returns the selectors clicked so far.
func (p *Static) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Cookies returns the cookies installed with SetCookies.
func (p *Static) Cookies() []Cookie {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Cookie(nil), p.cookies...)
}

func (p *Static) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	content, ok := p.pages[url]
	fetch := p.Fetch
	p.mu.Unlock()

	if !ok {
		if fetch == nil {
			return fmt.Errorf("navigate %s: no such page", url)
		}
		var err error
		if content, err = fetch(url); err != nil {
			return fmt.Errorf("navigate %s: %w", url, err)
		}
	}

	if err := p.SetHTML(content); err != nil {
		return err
	}

	p.mu.Lock()
	p.current = url
	p.mu.Unlock()

	log.Debug().Str("url", url).Msg("Static page loaded")
	return nil
}

func (p *Static) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

func (p *Static) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	ok, err := p.Exists(ctx, selector)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	return nil
}

func (p *Static) Exists(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return false, nil
	}
	return p.doc.Find(selector).Length() > 0, nil
}

func (p *Static) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := p.WaitVisible(ctx, selector, timeout); err != nil {
		return err
	}

	p.mu.Lock()
	p.clicks = append(p.clicks, selector)
	hook := p.OnClick
	p.mu.Unlock()

	if hook != nil {
		return hook(p, selector)
	}
	return nil
}

func (p *Static) PressEscape(ctx context.Context) error {
	return ctx.Err()
}

func (p *Static) Remove(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc != nil {
		p.doc.Find(selector).Remove()
	}
	return nil
}

func (p *Static) Snapshot(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	doc := p.doc
	p.mu.Unlock()
	if doc == nil {
		return nil, fmt.Errorf("snapshot: no page loaded")
	}

	htmlContent, err := doc.Html()
	if err != nil {
		return nil, err
	}
	return Parse(htmlContent)
}

func (p *Static) Frame(ctx context.Context, selector string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	frame, ok := p.frames[selector]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("frame %s: %w", selector, ErrNotFound)
	}
	return frame, nil
}

func (p *Static) SetCookies(ctx context.Context, cookies []Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cookies = append(p.cookies, cookies...)
	return nil
}
