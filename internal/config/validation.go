package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/law-makers/weeklyad/internal/utils/headers"
	urlutil "github.com/law-makers/weeklyad/internal/utils/url"
)

func validate(c *Config) error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if strings.TrimSpace(c.DataRoot) == "" {
		return fmt.Errorf("data root is required")
	}
	if c.PageTimeout <= 0 || c.PanelTimeout <= 0 || c.ImageTimeout <= 0 {
		return fmt.Errorf("page, panel and image timeouts must be > 0")
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("run timeout must not be negative")
	}
	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return fmt.Errorf("delay range %s-%s is invalid", c.DelayMin, c.DelayMax)
	}
	if c.PageRPS <= 0 || c.ImageRPS <= 0 {
		return fmt.Errorf("rates must be > 0")
	}
	if c.PageBurst < 1 || c.ImageBurst < 1 {
		return fmt.Errorf("bursts must be >= 1")
	}
	if c.ImageRetries < 1 {
		return fmt.Errorf("image retries must be >= 1")
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max pages must not be negative")
	}
	if c.Concurrency <= 0 || c.Concurrency > DefaultMaxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d", DefaultMaxConcurrency)
	}
	if c.CacheMaxSizeBytes <= 0 {
		return fmt.Errorf("cache max size must be > 0")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.RedisAddr != "" && c.RedisStream == "" {
		return fmt.Errorf("redis stream is required when redis is configured")
	}
	for _, p := range c.Proxies {
		if err := urlutil.ValidateProxy(p); err != nil {
			return err
		}
	}
	if _, err := headers.ParseHeaders(c.ImageHeaders); err != nil {
		return err
	}
	for _, r := range c.NormalizeRules {
		if r.From == "" || r.To == "" {
			return fmt.Errorf("normalize rules need both from and to")
		}
	}
	return nil
}
