package normalize

import (
	"regexp"
	"strings"
)

// emailPattern is deliberately minimal: local@domain.tld. Anything fancier
// belongs to the marketing API's own validation.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[A-Za-z]{2,}$`)

// ValidEmail trims and validates an email candidate. A failed match means
// "no email", never an error.
func ValidEmail(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !emailPattern.MatchString(s) {
		return "", false
	}
	return s, true
}
