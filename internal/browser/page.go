package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdpdom "github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/weeklyad/internal/dom"
)

// Page is a chromedp tab, or an iframe document inside one, seen as a
// dom.Page.
type Page struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	// root is the iframe node queries are scoped to; nil for the tab itself.
	root *cdp.Node
}

var _ dom.Page = (*Page)(nil)

// Close releases the tab. Frames share their tab and do nothing.
func (p *Page) Close() {
	if p.cancel != nil && p.root == nil {
		p.cancel()
	}
}

// run executes actions on the tab, bounded by timeout and by ctx.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = p.timeout
	}
	tctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(tctx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *Page) query(extra ...chromedp.QueryOption) []chromedp.QueryOption {
	opts := []chromedp.QueryOption{chromedp.ByQuery}
	if p.root != nil {
		opts = append(opts, chromedp.FromNode(p.root))
	}
	return append(opts, extra...)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	start := time.Now()
	if err := p.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	log.Debug().Str("url", url).Dur("elapsed", time.Since(start)).Msg("Page loaded")
	return nil
}

func (p *Page) URL(ctx context.Context) (string, error) {
	var loc string
	err := p.run(ctx, 0, chromedp.Location(&loc))
	return loc, err
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	err := p.run(ctx, timeout, chromedp.WaitVisible(selector, p.query()...))
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%s: %w (%v)", selector, dom.ErrNotFound, err)
	}
	return nil
}

func (p *Page) Exists(ctx context.Context, selector string) (bool, error) {
	nodes, err := p.nodes(ctx, selector)
	return len(nodes) > 0, err
}

func (p *Page) nodes(ctx context.Context, selector string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	err := p.run(ctx, 0, chromedp.Nodes(selector, &nodes, p.query(chromedp.AtLeast(0))...))
	return nodes, err
}

func (p *Page) Click(ctx context.Context, selector string, timeout time.Duration) error {
	err := p.run(ctx, timeout, chromedp.Click(selector, p.query(chromedp.NodeVisible)...))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	// Covered or off-screen nodes still take a scripted click.
	nodes, nerr := p.nodes(ctx, selector)
	if nerr != nil || len(nodes) == 0 {
		return fmt.Errorf("%s: %w", selector, dom.ErrNotFound)
	}
	if jerr := p.callOn(ctx, nodes[0], "function() { this.click(); }"); jerr != nil {
		return fmt.Errorf("click %s: %w", selector, jerr)
	}
	return nil
}

func (p *Page) PressEscape(ctx context.Context) error {
	return p.run(ctx, 0, chromedp.KeyEvent(kb.Escape))
}

func (p *Page) Remove(ctx context.Context, selector string) error {
	nodes, err := p.nodes(ctx, selector)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if err := p.callOn(ctx, n, "function() { this.remove(); }"); err != nil {
			return err
		}
	}
	return nil
}

// callOn runs a JS function with this bound to node.
func (p *Page) callOn(ctx context.Context, node *cdp.Node, fn string) error {
	return p.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := cdpdom.ResolveNode().WithBackendNodeID(node.BackendNodeID).Do(ctx)
		if err != nil {
			return err
		}
		_, exc, err := runtime.CallFunctionOn(fn).WithObjectID(obj.ObjectID).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return exc
		}
		return nil
	}))
}

func (p *Page) Snapshot(ctx context.Context) (dom.Document, error) {
	var html string
	if err := p.run(ctx, 0, chromedp.OuterHTML("html", &html, p.query()...)); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return dom.Parse(html)
}

func (p *Page) Frame(ctx context.Context, selector string) (dom.Page, error) {
	nodes, err := p.nodes(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("frame %s: %w", selector, dom.ErrNotFound)
	}
	return &Page{ctx: p.ctx, timeout: p.timeout, root: nodes[0]}, nil
}

func (p *Page) SetCookies(ctx context.Context, cookies []dom.Cookie) error {
	return p.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			path := c.Path
			if path == "" {
				path = "/"
			}
			params := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly)
			if ss := sameSite(c.SameSite); ss != "" {
				params = params.WithSameSite(ss)
			}
			if c.Expires > 0 {
				exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				params = params.WithExpires(&exp)
			}
			if err := params.Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
}

// Cookies returns every cookie the browser holds.
func (p *Page) Cookies(ctx context.Context) ([]dom.Cookie, error) {
	var cookies []*network.Cookie
	err := p.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}

	out := make([]dom.Cookie, len(cookies))
	for i, c := range cookies {
		out[i] = dom.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: string(c.SameSite),
			Expires:  c.Expires,
		}
	}
	return out, nil
}

func sameSite(s string) network.CookieSameSite {
	switch s {
	case "Strict", "strict":
		return network.CookieSameSiteStrict
	case "Lax", "lax":
		return network.CookieSameSiteLax
	case "None", "none", "no_restriction":
		return network.CookieSameSiteNone
	default:
		return ""
	}
}
