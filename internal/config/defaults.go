package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel   = "info"
	DefaultJSONLog    = false
	DefaultDataRoot   = "data"
	DefaultDBPath     = "db_store/crawler_results.db"
	DefaultLibDir     = "lib"
	DefaultHeadless   = true
	DefaultListenAddr = ":8000"

	DefaultPageTimeout  = 20 * time.Second
	DefaultPanelTimeout = 3 * time.Second
	DefaultImageTimeout = 10 * time.Second
	DefaultImageRetries = 3
	DefaultRunTimeout   = 30 * time.Minute

	DefaultDelayMin = 500 * time.Millisecond
	DefaultDelayMax = 1500 * time.Millisecond

	DefaultPageRPS    = 1.0
	DefaultPageBurst  = 2
	DefaultImageRPS   = 4.0
	DefaultImageBurst = 8

	DefaultConcurrency    = 4
	DefaultMaxConcurrency = 32

	DefaultCacheTTL          = 5 * time.Minute
	DefaultCacheMaxSizeBytes = 64 * 1024 * 1024

	DefaultRedisStream    = "weeklyad:crawls"
	DefaultRedisStreamLen = 10000
)

// DefaultAllowedOrigins lets any origin read the API.
var DefaultAllowedOrigins = []string{"*"}
