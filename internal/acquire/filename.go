package acquire

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

const (
	maxStemLen  = 50
	maxExtLen   = 5
	fallbackExt = ".jpg"
)

var unsafeChars = regexp.MustCompile(`[^\w\-_.]`)

// Stem turns an item name into a filesystem-safe file stem: spaces are
// dropped, anything outside [A-Za-z0-9_.-] becomes "_", and the result is
// capped at 50 characters.
func Stem(itemName string) string {
	s := unsafeChars.ReplaceAllString(strings.ReplaceAll(itemName, " ", ""), "_")
	if len(s) > maxStemLen {
		s = s[:maxStemLen]
	}
	if strings.Trim(s, ".") == "" {
		return "item"
	}
	return s
}

// Ext returns the file extension of rawURL's path, or ".jpg" when it is
// missing or longer than five characters.
func Ext(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	ext := path.Ext(p)
	if ext == "" || len(ext) > maxExtLen || unsafeChars.MatchString(ext) {
		return fallbackExt
	}
	return ext
}

// Filename builds "<stem><ext>" for an item. For data URLs the extension
// comes from mimeType.
func Filename(itemName, rawURL, mimeType string) string {
	if isDataURL(rawURL) {
		return Stem(itemName) + mimeExt(mimeType)
	}
	return Stem(itemName) + Ext(rawURL)
}

func isDataURL(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), "data:")
}

// decodeDataURL decodes "data:[<mediatype>][;base64],<data>".
func decodeDataURL(s string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data url")
	}

	mimeType, _, _ := strings.Cut(header, ";")
	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
				return nil, "", fmt.Errorf("decode data url: %w", err)
			}
		}
		return data, mimeType, nil
	}

	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data url: %w", err)
	}
	return []byte(data), mimeType, nil
}

func mimeExt(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/avif":
		return ".avif"
	case "image/svg+xml":
		return ".svg"
	default:
		return fallbackExt
	}
}
