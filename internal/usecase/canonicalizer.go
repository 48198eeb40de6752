package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Package-level compiled regex patterns for performance
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// diacriticFolder decomposes accented characters and strips the combining
// marks, so "jalapeño" and "jalapeno" canonicalize identically.
var diacriticFolder = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CanonicalizeName normalizes a free-text ingredient name into its canonical
// form: lower-cased, diacritics folded, punctuation stripped, whitespace
// collapsed. Names differing only by case, punctuation, or whitespace yield
// the same canonical name and therefore the same ingredient row.
// Returns "" when nothing survives normalization.
func CanonicalizeName(name string) string {
	if name == "" {
		return ""
	}

	result := strings.ToLower(name)
	if folded, _, err := transform.String(diacriticFolder, result); err == nil {
		result = folded
	}
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// NormalizeZip trims a ZIP+4 suffix down to the five-digit prefix.
func NormalizeZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if idx := strings.Index(zip, "-"); idx > 0 {
		zip = zip[:idx]
	}
	return zip
}
