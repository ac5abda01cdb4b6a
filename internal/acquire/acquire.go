// Package acquire downloads item images into their store/week folder.
package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"

	"github.com/law-makers/weeklyad/internal/ratelimit"
	"github.com/law-makers/weeklyad/internal/retry"
	"github.com/law-makers/weeklyad/internal/store"
)

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.4 Safari/605.1.15"

const defaultAccept = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"

// ErrEmptyURL is reported for an item without an image URL.
var ErrEmptyURL = errors.New("empty image url")

// Result describes one acquisition. Failures are reported here, never as a
// returned error.
type Result struct {
	URL      string
	Path     string
	Filename string
	Size     int64
	Success  bool
	Err      error
	Duration time.Duration
}

// Options configures an Acquirer.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Proxy     string
	// Headers are sent with every request and override the defaults.
	Headers map[string]string
	Limiter ratelimit.RateLimiter
	// Retry governs re-fetching on throttling and gateway statuses.
	// The zero value makes a single attempt.
	Retry retry.Config
}

// Acquirer fetches images and writes them under a store.Store.
type Acquirer struct {
	store   *store.Store
	client  *resty.Client
	limiter ratelimit.RateLimiter
	retry   retry.Config
}

// New creates an Acquirer writing into st.
func New(st *store.Store, opts Options) (*Acquirer, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetHeader("accept", defaultAccept)
	client.SetHeaders(opts.Headers)
	client.SetTimeout(opts.Timeout)
	if opts.Proxy != "" {
		client.SetProxy(opts.Proxy)
	}

	return &Acquirer{
		store:   st,
		client:  client,
		limiter: opts.Limiter,
		retry:   opts.Retry,
	}, nil
}

// SetCookies makes cookies available to image requests for rawURL's host.
func (a *Acquirer) SetCookies(rawURL string, cookies []*http.Cookie) {
	u, err := url.Parse(rawURL)
	if err != nil || len(cookies) == 0 {
		return
	}
	a.client.GetClient().Jar.SetCookies(u, cookies)
}

// Acquire downloads rawURL into the folder of (storeName, week), naming the
// file after itemName. An empty week means the current ISO week.
func (a *Acquirer) Acquire(ctx context.Context, rawURL, itemName, storeName, week string) *Result {
	start := time.Now()
	res := &Result{URL: rawURL}

	fail := func(err error) *Result {
		res.Err = err
		res.Duration = time.Since(start)
		log.Warn().
			Err(err).
			Str("store", storeName).
			Str("item", itemName).
			Str("url", rawURL).
			Msg("Image acquisition failed")
		return res
	}

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return fail(ErrEmptyURL)
	}
	if week == "" {
		week = store.CurrentWeek()
	}

	dir, err := a.store.Folder(storeName, week, true)
	if err != nil {
		return fail(err)
	}

	var body io.ReadCloser
	var mimeType string
	if isDataURL(rawURL) {
		data, mt, err := decodeDataURL(rawURL)
		if err != nil {
			return fail(err)
		}
		body, mimeType = io.NopCloser(bytes.NewReader(data)), mt
	} else {
		if body, err = a.fetch(ctx, rawURL); err != nil {
			return fail(err)
		}
	}
	defer body.Close()

	res.Filename = Filename(itemName, rawURL, mimeType)
	res.Path = filepath.Join(dir, res.Filename)

	n, err := writeFile(res.Path, body)
	if err != nil {
		res.Path = ""
		return fail(err)
	}

	res.Size = n
	res.Success = true
	res.Duration = time.Since(start)

	log.Debug().
		Str("store", storeName).
		Str("url", rawURL).
		Str("file", res.Path).
		Int64("bytes", n).
		Dur("duration", res.Duration).
		Msg("Image saved")

	return res
}

func (a *Acquirer) fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := retry.WithRetry(ctx, a.retry, func() error {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx, rawURL); err != nil {
				return fmt.Errorf("rate limit: %w", err)
			}
		}

		resp, err := a.client.R().
			SetContext(ctx).
			SetDoNotParseResponse(true).
			Get(rawURL)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		raw := resp.RawBody()
		if resp.StatusCode() != http.StatusOK {
			if raw != nil {
				raw.Close()
			}
			return retry.NewHTTPError(resp.StatusCode(), resp.Status(), rawURL)
		}
		if raw == nil {
			return errors.New("empty response body")
		}
		body = raw
		return nil
	})
	return body, err
}

// writeFile streams r into path, removing the partial file on failure.
// An existing file of the same name is overwritten.
func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	return n, nil
}
