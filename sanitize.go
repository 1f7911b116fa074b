package pingsync

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	scriptPattern     = regexp.MustCompile(`(?is)<(script|style)[^>]*?>.*?</(script|style)>`)
	whitespacePattern = regexp.MustCompile(`[\s\x00-\x1f\x7f]+`)
)

// SanitizeTextField cleans a single-line form value.
//
// Invalid UTF-8 yields "". Script and style blocks are removed with their
// contents, remaining tags are stripped, control characters and runs of
// whitespace collapse to a single space, and the result is trimmed.
//
// Percent-encoded octets such as %2F are kept, since the value is usually a
// URL, and a lone "<" with no closing ">" is left as is.
func SanitizeTextField(s string) string {
	if !utf8.ValidString(s) {
		return ""
	}
	s = scriptPattern.ReplaceAllString(s, "")
	s = tagPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
