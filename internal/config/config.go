// Package config resolves the weeklyad configuration from defaults, an
// optional config file, the environment and CLI flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/law-makers/weeklyad/internal/normalize"
)

// EnvPrefix prefixes every environment override, e.g. WEEKLYAD_DATA_ROOT.
const EnvPrefix = "WEEKLYAD"

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string `mapstructure:"log_level"`
	JSONLog  bool   `mapstructure:"json"`

	// Storage
	DataRoot string `mapstructure:"data_root"`
	DBPath   string `mapstructure:"db_path"`

	// Browser
	ChromePath string `mapstructure:"chrome_path"`
	LibDir     string `mapstructure:"lib_dir"`
	// BrowserURL attaches to a running browser's DevTools websocket instead
	// of launching Chrome.
	BrowserURL string `mapstructure:"browser_url"`
	Headless   bool   `mapstructure:"headless"`
	UserAgent  string `mapstructure:"user_agent"`
	// Proxies rotate across store runs.
	Proxies []string `mapstructure:"proxies"`

	// Crawl pacing
	PageTimeout  time.Duration `mapstructure:"page_timeout"`
	PanelTimeout time.Duration `mapstructure:"panel_timeout"`
	RunTimeout   time.Duration `mapstructure:"run_timeout"`
	DelayMin     time.Duration `mapstructure:"delay_min"`
	DelayMax     time.Duration `mapstructure:"delay_max"`
	PageRPS      float64       `mapstructure:"page_rps"`
	PageBurst    int           `mapstructure:"page_burst"`
	MaxPages     int           `mapstructure:"max_pages"`

	// Images
	ImageTimeout time.Duration `mapstructure:"image_timeout"`
	ImageRetries int           `mapstructure:"image_retries"`
	ImageRPS     float64       `mapstructure:"image_rps"`
	ImageBurst   int           `mapstructure:"image_burst"`
	Concurrency  int           `mapstructure:"concurrency"`
	// ImageHeaders are extra "Key: Value" headers sent with image requests.
	ImageHeaders []string `mapstructure:"image_headers"`

	// API
	ListenAddr        string        `mapstructure:"listen_addr"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	CacheMaxSizeBytes int64         `mapstructure:"cache_max_size_bytes"`
	MemcacheAddr      string        `mapstructure:"memcache_addr"`

	// Crawl events
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisDB        int    `mapstructure:"redis_db"`
	RedisStream    string `mapstructure:"redis_stream"`
	RedisStreamLen int64  `mapstructure:"redis_stream_len"`

	NormalizeRules []normalize.Rule `mapstructure:"normalize_rules"`
}

// flagKeys maps config keys to the CLI flags that override them.
var flagKeys = map[string]string{
	"json":          "json",
	"data_root":     "data-root",
	"db_path":       "db-path",
	"chrome_path":   "chrome-path",
	"browser_url":   "browser-url",
	"headless":      "headless",
	"user_agent":    "user-agent",
	"proxies":       "proxy",
	"page_timeout":  "timeout",
	"listen_addr":   "addr",
	"concurrency":   "concurrency",
	"image_headers": "header",
}

// legacyEnv lists unprefixed variables honored for older deployments.
var legacyEnv = map[string]string{
	"db_path":     "DB_PATH",
	"chrome_path": "CHROME_PATH",
}

// Load builds a Config by combining defaults, an optional config file,
// environment variables and the flags of cmd (which may be nil).
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), legacy); err != nil {
			return nil, err
		}
	}
	if os.Getenv("CHROMEDRIVER_PATH") != "" {
		log.Warn().Msg("CHROMEDRIVER_PATH is ignored; set WEEKLYAD_BROWSER_URL to attach to a running browser")
	}

	configFile := ""
	if cmd != nil {
		if f := cmd.Flags().Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}
	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	if cmd != nil {
		flags := cmd.Flags()
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Proxies = splitList(cfg.Proxies)
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)

	if cmd != nil {
		if flagSet(cmd, "verbose") {
			cfg.LogLevel = "debug"
		} else if flagSet(cmd, "quiet") {
			cfg.LogLevel = "error"
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// readConfigFile reads path, or searches for weeklyad.{yaml,json,toml} in the
// working directory and ~/.weeklyad when path is empty. Only an explicit path
// must exist.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("weeklyad")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.weeklyad")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	log.Debug().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	return nil
}

// setDefaults registers every key, so AutomaticEnv can override any of them
// during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("json", DefaultJSONLog)
	v.SetDefault("data_root", DefaultDataRoot)
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("chrome_path", "")
	v.SetDefault("lib_dir", DefaultLibDir)
	v.SetDefault("browser_url", "")
	v.SetDefault("headless", DefaultHeadless)
	v.SetDefault("user_agent", "")
	v.SetDefault("proxies", []string{})

	v.SetDefault("page_timeout", DefaultPageTimeout)
	v.SetDefault("panel_timeout", DefaultPanelTimeout)
	v.SetDefault("run_timeout", DefaultRunTimeout)
	v.SetDefault("delay_min", DefaultDelayMin)
	v.SetDefault("delay_max", DefaultDelayMax)
	v.SetDefault("page_rps", DefaultPageRPS)
	v.SetDefault("page_burst", DefaultPageBurst)
	v.SetDefault("max_pages", 0)

	v.SetDefault("image_timeout", DefaultImageTimeout)
	v.SetDefault("image_retries", DefaultImageRetries)
	v.SetDefault("image_rps", DefaultImageRPS)
	v.SetDefault("image_burst", DefaultImageBurst)
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("image_headers", []string{})

	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("allowed_origins", DefaultAllowedOrigins)
	v.SetDefault("cache_ttl", DefaultCacheTTL)
	v.SetDefault("cache_max_size_bytes", DefaultCacheMaxSizeBytes)
	v.SetDefault("memcache_addr", "")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_stream", DefaultRedisStream)
	v.SetDefault("redis_stream_len", DefaultRedisStreamLen)

	v.SetDefault("normalize_rules", []map[string]string{
		{"from": normalize.KrogerMontages.From, "to": normalize.KrogerMontages.To},
	})
}

// splitList flattens comma-separated entries, which is how lists arrive from
// the environment and repeated flags alike.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func flagSet(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Value.String() == "true"
}
