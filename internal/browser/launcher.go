// Package browser drives a real Chrome through chromedp and exposes its tabs
// as dom.Page values.
package browser

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// ErrChromeNotFound is returned by Launch when no browser executable exists.
var ErrChromeNotFound = errors.New("chrome executable not found")

// UserAgents is the pool a user agent is drawn from when none is configured.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
}

const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`

// Options configures Launch.
type Options struct {
	ChromePath string
	LibDir     string
	// RemoteURL attaches to an already running browser's DevTools websocket
	// instead of starting one.
	RemoteURL string
	Headless  bool
	UserAgent string
	Proxy     string
	// ActionTimeout is the default bound for page actions without their own.
	ActionTimeout time.Duration
}

// Browser is a running (or attached) Chrome.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	userAgent   string
	timeout     time.Duration
}

// RandomUserAgent picks one entry of UserAgents.
func RandomUserAgent() string {
	return UserAgents[rand.IntN(len(UserAgents))]
}

// Launch starts Chrome with stealth flags, or attaches to opts.RemoteURL.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = RandomUserAgent()
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 30 * time.Second
	}

	b := &Browser{userAgent: opts.UserAgent, timeout: opts.ActionTimeout}

	if opts.RemoteURL != "" {
		b.allocCtx, b.allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
		log.Info().Str("url", opts.RemoteURL).Msg("Attached to remote browser")
		return b, nil
	}

	chromePath := FindChrome(opts.ChromePath, opts.LibDir)
	if chromePath == "" {
		return nil, fmt.Errorf("%w (set CHROME_PATH or install Chrome under %s)", ErrChromeNotFound, BundledChrome(opts.LibDir))
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.ExecPath(chromePath),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-features", "site-per-process,TranslateUI"),
		chromedp.Flag("password-store", "basic"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("log-level", "3"),
		chromedp.WindowSize(1280, 800),
		chromedp.UserAgent(opts.UserAgent),
	}

	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(ctx, allocOpts...)

	log.Info().
		Str("chrome", chromePath).
		Bool("headless", opts.Headless).
		Msg("Browser launched")

	return b, nil
}

// NewPage opens a tab. Page.Close releases it.
func (b *Browser) NewPage() (*Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)

	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
			return err
		}),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	return &Page{ctx: tabCtx, cancel: cancel, timeout: b.timeout}, nil
}

// UserAgent is the agent string the browser was started with.
func (b *Browser) UserAgent() string {
	return b.userAgent
}

// Close shuts the browser down.
func (b *Browser) Close() {
	if b.allocCancel != nil {
		b.allocCancel()
	}
	log.Debug().Msg("Browser closed")
}
