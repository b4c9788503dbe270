package normalize

import (
	"regexp"
	"strings"
)

// localeInfo maps a detected language to its newsletter segment and a
// best-effort country name used for profile segmentation.
type localeInfo struct {
	segment string
	country string
}

// supportedLanguages is the fixed set of site languages. English carries no
// country; the storefront serves several English-speaking markets.
var supportedLanguages = map[string]localeInfo{
	"en": {segment: "Newsletter EN"},
	"sv": {segment: "Newsletter SE", country: "Sweden"},
	"de": {segment: "Newsletter DE", country: "Germany"},
	"fr": {segment: "Newsletter FR", country: "France"},
	"nl": {segment: "Newsletter NL", country: "Netherlands"},
	"da": {segment: "Newsletter DK", country: "Denmark"},
	"fi": {segment: "Newsletter FI", country: "Finland"},
	"no": {segment: "Newsletter NO", country: "Norway"},
}

var langSegmentPattern = regexp.MustCompile(`/(en|sv|de|fr|nl|da|fi|no)/`)

// detectLanguage resolves the submission language: an explicit hidden value
// wins, then a /<lang>/ URL segment anywhere in the payload, then fallback.
func detectLanguage(hidden string, values []string, fallback string) string {
	if l := normalizeLanguage(hidden); l != "" {
		return l
	}
	for _, v := range values {
		if m := langSegmentPattern.FindStringSubmatch(v); m != nil {
			return m[1]
		}
	}
	if l := normalizeLanguage(fallback); l != "" {
		return l
	}
	return "en"
}

// normalizeLanguage reduces values like "sv-SE" or "Swedish" hidden fields to
// a supported two-letter code, or "" when unsupported.
func normalizeLanguage(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if i := strings.IndexAny(s, "-_"); i > 0 {
		s = s[:i]
	}
	if _, ok := supportedLanguages[s]; ok {
		return s
	}
	return ""
}

// localeFor returns the newsletter segment and country for a language code.
func localeFor(lang string) (segment, country string) {
	info, ok := supportedLanguages[lang]
	if !ok {
		return "", ""
	}
	return info.segment, info.country
}
