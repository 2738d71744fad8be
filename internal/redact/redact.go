// Package redact masks PII in free text with stable placeholder tokens.
package redact

import (
	"fmt"
	"regexp"
)

// rule pairs a pattern with its mask prefix. Rules are applied sequentially
// over the progressively redacted text, so earlier rules take precedence for
// overlapping matches: a 16-digit card number is consumed by the card rule
// before the phone rule can see its digits. Keep card/SSN patterns before
// the generic digit-run and email patterns.
type rule struct {
	pattern *regexp.Regexp
	mask    string
}

var rules = []rule{
	{regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`), "<CARD_MASK>"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "<SSN_MASK>"},
	{regexp.MustCompile(`\b\d{10}\b`), "<PHONE_MASK>"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "<EMAIL_MASK>"},
}

// Redact replaces card numbers, SSNs, 10-digit phone runs, and email
// addresses with placeholder tokens unique within the call, and returns the
// redacted text plus the token-to-original mapping. The mapping is
// per-request and never persisted.
func Redact(text string) (string, map[string]string) {
	replacements := make(map[string]string)
	for _, r := range rules {
		text = r.pattern.ReplaceAllStringFunc(text, func(m string) string {
			token := fmt.Sprintf("%s_%d", r.mask, len(replacements)+1)
			replacements[token] = m
			return token
		})
	}
	return text, replacements
}
