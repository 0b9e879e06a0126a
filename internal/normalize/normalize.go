// Package normalize canonicalizes free-text listing fields into the
// comparable form every downstream scorer and dedup key is built on.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnumRe   = regexp.MustCompile(`[^a-z0-9\s]`)
	multiSpaceRe = regexp.MustCompile(`\s+`)

	// Fold "Auê" -> "Aue" before the ASCII filter so accented brand and
	// product names keep their letters instead of losing them to spaces.
	diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Text standardizes a raw listing field for matching:
//  1. Fold diacritics to their base letters
//  2. Lowercase
//  3. Replace anything outside [a-z0-9\s] with a space
//  4. Collapse runs of whitespace and trim
//
// Empty or missing input maps to "", never to an error. The function is pure
// and idempotent, so its output is safe to use as a cache key.
func Text(s string) string {
	if s == "" {
		return ""
	}

	if folded, _, err := transform.String(diacriticFolder, s); err == nil {
		s = folded
	}

	s = strings.ToLower(s)
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens splits a normalized string into its unique tokens.
func Tokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}
