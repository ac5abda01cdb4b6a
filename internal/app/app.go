// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/weeklyad/internal/acquire"
	"github.com/law-makers/weeklyad/internal/api"
	"github.com/law-makers/weeklyad/internal/auth"
	"github.com/law-makers/weeklyad/internal/browser"
	"github.com/law-makers/weeklyad/internal/cache"
	"github.com/law-makers/weeklyad/internal/config"
	"github.com/law-makers/weeklyad/internal/dom"
	"github.com/law-makers/weeklyad/internal/extract"
	"github.com/law-makers/weeklyad/internal/mirror"
	"github.com/law-makers/weeklyad/internal/normalize"
	"github.com/law-makers/weeklyad/internal/notify"
	"github.com/law-makers/weeklyad/internal/pipeline"
	"github.com/law-makers/weeklyad/internal/proxy"
	"github.com/law-makers/weeklyad/internal/ratelimit"
	"github.com/law-makers/weeklyad/internal/retry"
	"github.com/law-makers/weeklyad/internal/store"
	"github.com/law-makers/weeklyad/internal/utils/headers"
)

// Version is reported by the health endpoint and the CLI.
var Version = "dev"

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config       *config.Config
	Registry     *extract.Registry
	Store        *store.Store
	Mirror       *mirror.Mirror
	Vault        *auth.Vault
	Proxies      *proxy.Pool
	PageLimiter  ratelimit.RateLimiter
	ImageLimiter ratelimit.RateLimiter
	Normalizer   *normalize.Normalizer
	Publisher    notify.Publisher
	Cache        cache.Cache

	imageHeaders map[string]string
	startTime    time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// Connections to the mirror database, Redis and memcache are lazy or probed
// here; an unreachable optional backend is logged and replaced by its local
// fallback rather than failing startup.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	SetupLogging(cfg)

	hdrs, err := headers.ParseHeaders(cfg.ImageHeaders)
	if err != nil {
		return nil, err
	}

	a := &Application{
		Config:       cfg,
		Registry:     extract.Default(),
		Store:        store.New(cfg.DataRoot),
		Mirror:       mirror.New(cfg.DBPath),
		Vault:        auth.NewVault(),
		Proxies:      proxy.New(cfg.Proxies, proxy.DefaultCooldown),
		PageLimiter:  ratelimit.NewDomainLimiter(cfg.PageRPS, cfg.PageBurst),
		ImageLimiter: ratelimit.NewDomainLimiter(cfg.ImageRPS, cfg.ImageBurst),
		Normalizer:   normalize.New(cfg.NormalizeRules...),
		imageHeaders: hdrs,
		startTime:    time.Now(),
	}

	a.Publisher = newPublisher(ctx, cfg)
	a.Cache = newCache(cfg)

	log.Debug().
		Str("data_root", cfg.DataRoot).
		Str("db_path", cfg.DBPath).
		Int("proxies", a.Proxies.Len()).
		Int("normalize_rules", len(cfg.NormalizeRules)).
		Msg("Application initialized")
	return a, nil
}

// SetupLogging configures the global zerolog logger from cfg.
func SetupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = os.Stderr
	if !cfg.JSONLog {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

func newPublisher(ctx context.Context, cfg *config.Config) notify.Publisher {
	if cfg.RedisAddr == "" {
		return notify.Nop{}
	}
	p := notify.NewRedisPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamLen)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, crawl events will be retried per publish")
	}
	return p
}

func newCache(cfg *config.Config) cache.Cache {
	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheCache(strings.Split(cfg.MemcacheAddr, ",")...)
		err := mc.Ping()
		if err == nil {
			log.Debug().Str("addr", cfg.MemcacheAddr).Msg("Using memcache for documents")
			return mc
		}
		log.Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unreachable, using in-memory cache")
	}
	return cache.NewMemoryCache(cfg.CacheMaxSizeBytes)
}

// CrawlOptions tunes a single store run.
type CrawlOptions struct {
	// Week is a week key or date; empty means the current week.
	Week string
	// FromHTML replays a saved page instead of launching a browser.
	FromHTML string
	// Mirror also writes the kept records to the relational mirror.
	Mirror   bool
	Progress func(pipeline.Progress)
}

// Crawl runs one store's weekly ad end to end. Each run takes the next proxy
// of the pool; a navigation failure benches that proxy.
func (a *Application) Crawl(ctx context.Context, storeName string, opts CrawlOptions) (*pipeline.Report, error) {
	if a.Config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Config.RunTimeout)
		defer cancel()
	}

	proxyURL := a.Proxies.Next()
	userAgent := a.Config.UserAgent

	var page dom.Page
	if opts.FromHTML != "" {
		static, err := replayPage(opts.FromHTML)
		if err != nil {
			return nil, err
		}
		page = static
	} else {
		b, err := browser.Launch(ctx, browser.Options{
			ChromePath:    a.Config.ChromePath,
			LibDir:        a.Config.LibDir,
			RemoteURL:     a.Config.BrowserURL,
			Headless:      a.Config.Headless,
			UserAgent:     userAgent,
			Proxy:         proxyURL,
			ActionTimeout: a.Config.PageTimeout,
		})
		if err != nil {
			return nil, err
		}
		defer b.Close()

		p, err := b.NewPage()
		if err != nil {
			return nil, err
		}
		defer p.Close()
		page = p
		userAgent = b.UserAgent()
	}

	acq, err := a.newAcquirer(userAgent, proxyURL)
	if err != nil {
		return nil, err
	}

	d := &pipeline.Driver{
		Registry:     a.Registry,
		Store:        a.Store,
		Acquirer:     acq,
		Normalizer:   a.Normalizer,
		Publisher:    a.Publisher,
		Sessions:     a.Vault.Cookies,
		Limiter:      a.PageLimiter,
		Delay:        ratelimit.Jitter{Min: a.Config.DelayMin, Max: a.Config.DelayMax},
		PanelTimeout: a.Config.PanelTimeout,
		MaxPages:     a.Config.MaxPages,
		Concurrency:  a.Config.Concurrency,
		Progress:     opts.Progress,
	}
	if opts.Mirror {
		d.Mirror = a.Mirror
	}

	rep, err := d.Run(ctx, page, storeName, opts.Week)
	switch {
	case pipeline.CodeOf(err) == pipeline.ErrCodeNavigation && proxyURL != "":
		a.Proxies.MarkFailed(proxyURL)
	case err == nil:
		a.Proxies.MarkHealthy(proxyURL)
	}
	return rep, err
}

func (a *Application) newAcquirer(userAgent, proxyURL string) (*acquire.Acquirer, error) {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = a.Config.ImageRetries
	return acquire.New(a.Store, acquire.Options{
		Timeout:   a.Config.ImageTimeout,
		UserAgent: userAgent,
		Proxy:     proxyURL,
		Headers:   a.imageHeaders,
		Limiter:   a.ImageLimiter,
		Retry:     rc,
	})
}

// replayPage serves the saved HTML for every URL the crawl navigates to.
func replayPage(path string) (*dom.Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read saved page: %w", err)
	}
	page := dom.NewStatic()
	page.Fetch = func(string) (string, error) { return string(data), nil }
	log.Info().Str("file", path).Msg("Replaying saved page instead of launching a browser")
	return page, nil
}

// MirrorWeek copies an existing store/week document into the mirror.
func (a *Application) MirrorWeek(ctx context.Context, storeName, week string) (int, error) {
	ex, err := a.Registry.Lookup(storeName)
	if err != nil {
		return 0, err
	}
	return pipeline.MirrorWeek(ctx, a.Store, a.Mirror, ex.Site().Store, week)
}

// Handler builds the read API handler over the application's backends.
func (a *Application) Handler() *api.Handler {
	return &api.Handler{
		Store:    a.Store,
		Mirror:   a.Mirror,
		Cache:    a.Cache,
		CacheTTL: a.Config.CacheTTL,
		Stores:   a.Registry.Stores,
		Version:  Version,
	}
}

// Serve runs the read API until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	engine := api.NewRouter(a.Handler(), a.Config.AllowedOrigins)
	return api.Serve(ctx, a.Config.ListenAddr, engine)
}

// Close gracefully shuts down the application and all its resources.
// Any errors during shutdown are logged but do not prevent other shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing publisher")
		}
	}
	if a.Mirror != nil {
		if err := a.Mirror.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing mirror")
		}
	}
	if a.Cache != nil {
		a.Cache.Close()
	}

	log.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
