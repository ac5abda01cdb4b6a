// Package headers parses "Key: Value" header flags.
package headers

import (
	"fmt"
	"net/http"
	"strings"
)

// ParseHeaders converts "Key: Value" strings into a map keyed by canonical
// header name. A later duplicate replaces an earlier one.
func ParseHeaders(h []string) (map[string]string, error) {
	m := make(map[string]string, len(h))
	for _, hdr := range h {
		key, value, ok := strings.Cut(hdr, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			return nil, fmt.Errorf("malformed header %q: want \"Key: Value\"", hdr)
		}
		m[http.CanonicalHeaderKey(key)] = strings.TrimSpace(value)
	}
	return m, nil
}
