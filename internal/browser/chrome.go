package browser

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
)

// chromeNames are looked up on PATH, in order, when nothing else matched.
var chromeNames = []string{
	"google-chrome",
	"chrome",
	"chromium",
	"chromium-browser",
	"google-chrome-stable",
	"msedge",
}

// BundledChrome returns where a Chrome bundle shipped under libDir lives.
func BundledChrome(libDir string) string {
	name := "chrome"
	if runtime.GOOS == "windows" {
		name = "chrome.exe"
	}
	return filepath.Join(libDir, "chrome-win64", name)
}

// FindChrome locates a Chrome executable. A bundle under libDir wins, then the
// configured path, then standard install locations, then PATH. It returns ""
// when nothing is found.
func FindChrome(configured, libDir string) string {
	if libDir != "" {
		if path := BundledChrome(libDir); isExecutable(path) {
			log.Debug().Str("path", path).Msg("Chrome found in local bundle")
			return path
		}
	}

	if configured != "" {
		if isExecutable(configured) {
			log.Debug().Str("path", configured).Msg("Chrome found via configuration")
			return configured
		}
		log.Warn().Str("path", configured).Msg("Configured Chrome path is not executable")
	}

	for _, path := range standardLocations() {
		if isExecutable(path) {
			log.Debug().Str("path", path).Str("os", runtime.GOOS).Msg("Chrome found at standard location")
			return path
		}
	}

	for _, name := range chromeNames {
		if path, err := exec.LookPath(name); err == nil {
			log.Debug().Str("path", path).Msg("Chrome found in PATH")
			return path
		}
	}

	return ""
}

func standardLocations() []string {
	switch runtime.GOOS {
	case "darwin":
		candidates := []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		}
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates,
				filepath.Join(home, "Applications/Google Chrome.app/Contents/MacOS/Google Chrome"))
		}
		return candidates

	case "windows":
		var candidates []string
		for _, base := range []string{os.Getenv("ProgramFiles"), os.Getenv("ProgramFiles(x86)"), os.Getenv("LocalAppData")} {
			if base == "" {
				continue
			}
			candidates = append(candidates,
				filepath.Join(base, "Google", "Chrome", "Application", "chrome.exe"),
				filepath.Join(base, "Chromium", "Application", "chrome.exe"),
				filepath.Join(base, "Microsoft", "Edge", "Application", "msedge.exe"),
			)
		}
		return candidates

	default:
		return []string{
			"/usr/bin/google-chrome-stable",
			"/usr/bin/google-chrome",
			"/usr/bin/chromium-browser",
			"/usr/bin/chromium",
			"/snap/bin/chromium",
		}
	}
}

// isExecutable checks if a file exists and is executable
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if runtime.GOOS == "windows" {
		return !info.IsDir()
	}
	return !info.IsDir() && info.Mode()&0111 != 0
}
