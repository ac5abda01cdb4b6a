package config

import "github.com/spf13/cobra"

// RegisterFlags registers the global CLI flags on the root command.
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	f := cmd.PersistentFlags()
	f.BoolP("verbose", "v", false, "Enable debug logging")
	f.BoolP("quiet", "q", false, "Suppress all output except errors")
	f.Bool("json", false, "Log JSON lines to stderr")
	f.String("config", "", "Path to configuration file (yaml, json or toml)")
	f.String("data-root", DefaultDataRoot, "Root folder for store/week documents and images")
	f.String("db-path", DefaultDBPath, "SQLite mirror database path")
	f.String("chrome-path", "", "Chrome or Chromium executable")
	f.String("browser-url", "", "DevTools websocket URL of an already running browser")
	f.Bool("headless", DefaultHeadless, "Run the browser without a window")
	f.String("user-agent", "", "Browser and image client user agent (random realistic one by default)")
	f.StringSlice("proxy", nil, "HTTP/SOCKS5 proxies rotated per store run (repeatable)")
	f.Duration("timeout", DefaultPageTimeout, "Wait for the first cards of a page")
}
