package extract

import (
	"strings"

	"github.com/law-makers/weeklyad/internal/dom"
)

// imageAttrs are checked in order for lazily loaded images.
var imageAttrs = []string{"src", "data-src", "data-lazy-src", "data-original", "data-srcset", "srcset"}

// ImageSource returns the best image URL on img, trying attrs in order
// (imageAttrs when none are given). Srcset values yield their first URL.
func ImageSource(img dom.Element, attrs ...string) string {
	if img == nil {
		return ""
	}
	if len(attrs) == 0 {
		attrs = imageAttrs
	}
	for _, a := range attrs {
		v, ok := img.Attr(a)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(a, "srcset") || (strings.Contains(v, ",") && strings.Contains(v, " ")) {
			if u := firstSrcsetURL(v); u != "" {
				return u
			}
			continue
		}
		return v
	}
	return ""
}

// firstSrcsetURL returns the URL of the first candidate in a srcset value.
func firstSrcsetURL(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
