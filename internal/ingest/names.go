package ingest

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxIdentifier is the Postgres identifier length limit in bytes.
const maxIdentifier = 63

var (
	whitespace   = regexp.MustCompile(`\s+`)
	invalidChars = regexp.MustCompile(`[^a-z0-9_]`)
)

// NormalizeName turns a header or file name into a column or table name:
// accents folded, lowercase, whitespace runs as "_" and anything outside
// [a-z0-9_] dropped.
func NormalizeName(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}

	s := strings.ToLower(strings.TrimSpace(folded))
	s = whitespace.ReplaceAllString(s, "_")
	s = invalidChars.ReplaceAllString(s, "")
	if len(s) > maxIdentifier {
		s = s[:maxIdentifier]
	}
	return s
}

// TableName derives the target table from an uploaded file name.
func TableName(filename string) string {
	base := filepath.Base(filename)
	return NormalizeName(strings.TrimSuffix(base, filepath.Ext(base)))
}
