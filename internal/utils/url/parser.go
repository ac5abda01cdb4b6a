// Package urlutil validates and resolves the URLs found on ad pages.
package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL checks that urlStr is an absolute http(s) URL.
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// ValidateProxy checks that proxy is an http, https or socks5 URL with a host.
func ValidateProxy(proxy string) error {
	parsed, err := url.Parse(proxy)
	if err != nil {
		return fmt.Errorf("invalid proxy %q: %w", proxy, err)
	}
	switch parsed.Scheme {
	case "http", "https", "socks5":
	default:
		return fmt.Errorf("invalid proxy %q: scheme must be http, https or socks5", proxy)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid proxy %q: missing host", proxy)
	}
	return nil
}

// ResolveURL resolves a possibly-relative href against base. Absolute hrefs,
// data: URLs and anything unparsable are returned unchanged.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "data:") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return href
	}
	return baseURL.ResolveReference(u).String()
}

// SameSite reports whether two URLs share scheme and host, ignoring case.
func SameSite(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) && strings.EqualFold(ua.Host, ub.Host)
}
