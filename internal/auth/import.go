package auth

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Import formats accepted by ParseCookies.
const (
	FormatStorageState = "storage-state"
	FormatJSON         = "json"
	FormatNetscape     = "netscape"
)

// exportedCookie covers both a browser storage-state entry ("expires") and a
// cookie-export extension entry ("expirationDate").
type exportedCookie struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Domain         string  `json:"domain"`
	Path           string  `json:"path"`
	Secure         bool    `json:"secure"`
	HTTPOnly       bool    `json:"httpOnly"`
	SameSite       string  `json:"sameSite"`
	Expires        float64 `json:"expires"`
	ExpirationDate float64 `json:"expirationDate"`
}

// ParseCookies reads cookies exported from a browser in the given format.
func ParseCookies(r io.Reader, format string) ([]Cookie, error) {
	switch format {
	case FormatStorageState, FormatJSON, "":
		return parseJSON(r)
	case FormatNetscape:
		return parseNetscape(r)
	default:
		return nil, fmt.Errorf("unsupported format: %s (use: %s, %s, %s)",
			format, FormatStorageState, FormatJSON, FormatNetscape)
	}
}

// parseJSON accepts a storage-state object ({"cookies": [...]}) or a bare array.
func parseJSON(r io.Reader) ([]Cookie, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	var raw []exportedCookie
	if len(data) > 0 && data[0] == '{' {
		var state struct {
			Cookies []exportedCookie `json:"cookies"`
		}
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("invalid storage state: %w", err)
		}
		raw = state.Cookies
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		if c.Name == "" {
			continue
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		expires := c.Expires
		if c.ExpirationDate > 0 {
			expires = c.ExpirationDate
		}
		if expires < 0 {
			expires = 0
		}
		cookies = append(cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: NormalizeSameSite(c.SameSite),
		})
	}
	return cookies, nil
}

// parseNetscape reads a curl/wget cookies.txt file.
func parseNetscape(r io.Reader) ([]Cookie, error) {
	var cookies []Cookie
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		httpOnly := false
		if rest, ok := strings.CutPrefix(line, "#HttpOnly_"); ok {
			line, httpOnly = rest, true
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			fields = strings.Fields(line)
		}
		if len(fields) < 7 {
			continue
		}

		c := Cookie{
			Domain:   fields[0],
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			Name:     fields[5],
			Value:    fields[6],
			HTTPOnly: httpOnly,
			SameSite: "None",
		}
		if exp, err := strconv.ParseFloat(fields[4], 64); err == nil && exp > 0 {
			c.Expires = exp
		}
		cookies = append(cookies, c)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cookies, nil
}

// NormalizeSameSite maps exported sameSite values onto Strict, Lax or None.
func NormalizeSameSite(s string) string {
	switch strings.ToLower(s) {
	case "strict":
		return "Strict"
	case "lax":
		return "Lax"
	default:
		return "None"
	}
}
