package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/weeklyad/internal/browser"
)

// LoginOptions configures InteractiveLogin.
type LoginOptions struct {
	// Store names the session.
	Store string
	// URL is opened for the operator.
	URL string
	// WaitSelector, when set, ends the login once it is visible instead of
	// waiting for Enter.
	WaitSelector string
	// Timeout bounds the whole login.
	Timeout time.Duration
	// Browser configures the launched (always headful) browser.
	Browser browser.Options
	// In is read for the operator's Enter; Out receives the prompts.
	In  io.Reader
	Out io.Writer
}

// InteractiveLogin opens a visible browser on the store's site, lets the
// operator get past login or bot checks, and captures the resulting cookies.
func InteractiveLogin(ctx context.Context, opts LoginOptions) (*Session, error) {
	if opts.Store == "" {
		return nil, fmt.Errorf("store is required")
	}
	if opts.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	if opts.Browser.RemoteURL == "" && runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return nil, fmt.Errorf("interactive login requires a display server (DISPLAY not set)\n\n" +
			"💡 In headless environments, export cookies from your browser and run:\n" +
			"   weeklyad sessions import <store> --file=cookies.json")
	}

	log.Info().
		Str("store", opts.Store).
		Str("url", opts.URL).
		Msg("Starting interactive login")

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	opts.Browser.Headless = false
	b, err := browser.Launch(ctx, opts.Browser)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	page, err := b.NewPage()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	fmt.Fprintln(opts.Out, "\n🌐 Browser opened. Clear any login or verification steps manually.")
	if err := page.Navigate(ctx, opts.URL); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	if opts.WaitSelector != "" {
		fmt.Fprintf(opts.Out, "   Waiting for element: %s\n", opts.WaitSelector)
		if err := page.WaitVisible(ctx, opts.WaitSelector, opts.Timeout); err != nil {
			return nil, fmt.Errorf("login timeout or failed: %w", err)
		}
	} else {
		fmt.Fprintln(opts.Out, "\n   Press Enter once the weekly ad is showing...")
		if err := waitForEnter(ctx, opts.In); err != nil {
			return nil, err
		}
	}

	log.Info().Msg("Login completed, extracting cookies...")
	cookies, err := page.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to extract cookies: %w", err)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("no cookies found - login may have failed")
	}

	log.Info().Int("cookie_count", len(cookies)).Msg("Cookies extracted")
	fmt.Fprintf(opts.Out, "\n✓ Captured %d cookies\n", len(cookies))

	return NewSession(opts.Store, opts.URL, FromDOM(cookies)), nil
}

// waitForEnter returns after one line is read from r, or when ctx ends.
func waitForEnter(ctx context.Context, r io.Reader) error {
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(r).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
