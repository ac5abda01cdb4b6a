// Package normalize canonicalizes remote image URLs before they are downloaded.
package normalize

import "strings"

// Rule rewrites one CDN origin to its mirror origin.
type Rule struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// KrogerMontages moves Kroger weekly-ad montage images onto the S3 mirror.
var KrogerMontages = Rule{
	From: "https://www.krogercdn.com/weeklyads/images/Kroger/Montages/",
	To:   "https://s3.us-west-1.wasabisys.com/kroger/Kroger/Montages/",
}

// DefaultRules are applied by URL.
var DefaultRules = []Rule{KrogerMontages}

// Normalizer applies an ordered rule list. The zero value only strips queries.
type Normalizer struct {
	rules []Rule
}

// New returns a Normalizer using rules in order. Rules with an empty From are ignored.
func New(rules ...Rule) *Normalizer {
	n := &Normalizer{}
	for _, r := range rules {
		if r.From == "" {
			continue
		}
		n.rules = append(n.rules, r)
	}
	return n
}

var defaultNormalizer = New(DefaultRules...)

// URL normalizes raw with DefaultRules.
func URL(raw string) string {
	return defaultNormalizer.URL(raw)
}

// URL rewrites the origin of the first matching rule and drops everything
// from the first '?'. Empty input is returned unchanged.
func (n *Normalizer) URL(raw string) string {
	if raw == "" {
		return raw
	}

	out := raw
	for _, r := range n.rules {
		if strings.Contains(out, r.From) {
			out = strings.ReplaceAll(out, r.From, r.To)
			break
		}
	}

	if i := strings.IndexByte(out, '?'); i >= 0 {
		out = out[:i]
	}
	return out
}

// Rules returns a copy of the active rules.
func (n *Normalizer) Rules() []Rule {
	return append([]Rule(nil), n.rules...)
}
