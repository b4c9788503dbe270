package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSlugLen caps ending keys so property values stay short.
const maxSlugLen = 60

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// foldMarks decomposes characters and drops combining marks, turning
// "Häst" into "Hast".
var foldMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify derives a stable ending key from a human-readable title: lowercase,
// diacritics stripped, non-alphanumeric runs collapsed to single underscores,
// trimmed and length-capped. Empty input yields "unknown".
func Slugify(s string) string {
	folded, _, err := transform.String(foldMarks, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(strings.TrimSpace(folded))
	folded = nonAlnum.ReplaceAllString(folded, "_")
	folded = strings.Trim(folded, "_")
	if len(folded) > maxSlugLen {
		folded = strings.Trim(folded[:maxSlugLen], "_")
	}
	if folded == "" {
		return "unknown"
	}
	return folded
}
