package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName cleans a display name for storage: trimmed, with runs
// of whitespace collapsed to single spaces. Case and diacritics are
// preserved.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// removeDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// foldName normalizes a name for comparison (lowercase, no diacritics,
// spaces for dashes).
func foldName(name string) string {
	name = removeDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}
