// Package normalize turns a loosely shaped Typeform submission into a flat,
// best-effort fact record. Every field is resolved independently through a
// prioritized lookup chain; nothing here ever fails, it only comes back empty.
package normalize

import (
	"strings"
	"time"

	"github.com/fagerbits/quizrelay/internal/domain/submission"
)

// sentinelValue marks Typeform's built-in webhook test payloads. These must
// be skipped before any outbound call so health checks never reach the real
// event stream.
const sentinelValue = "hidden_value"

// unknownKey is the ending key used when neither key nor title could be
// resolved.
const unknownKey = "unknown"

// Fact is the flat, normalized view of one submission.
type Fact struct {
	Email        string
	ConsentGiven bool
	EndingTitle  string
	EndingKey    string
	QuizPath     string
	QuizGroup    string
	QuizName     string
	Source       string
	HorseName    string
	Language     string
	Segment      string
	Country      string
	SubmittedAt  time.Time
	FormID       string
	ResponseID   string
}

// HasEmail reports whether a syntactically valid email was resolved.
func (f Fact) HasEmail() bool { return f.Email != "" }

// UnknownEnding reports whether the ending could not be resolved at all.
func (f Fact) UnknownEnding() bool { return f.EndingKey == unknownKey }

// Normalizer resolves facts from submissions.
type Normalizer struct {
	consentRef      string
	defaultLanguage string
	defaultQuizName string
	defaultSource   string
}

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithConsentRef pins consent detection to a single question reference.
func WithConsentRef(ref string) Option {
	return func(n *Normalizer) { n.consentRef = ref }
}

// WithDefaultLanguage sets the fallback language code.
func WithDefaultLanguage(lang string) Option {
	return func(n *Normalizer) {
		if lang != "" {
			n.defaultLanguage = lang
		}
	}
}

// WithDefaultQuizName sets the quiz name used when the payload has none.
func WithDefaultQuizName(name string) Option {
	return func(n *Normalizer) {
		if name != "" {
			n.defaultQuizName = name
		}
	}
}

// WithDefaultSource sets the source used when the payload has none.
func WithDefaultSource(source string) Option {
	return func(n *Normalizer) {
		if source != "" {
			n.defaultSource = source
		}
	}
}

// New creates a Normalizer with defaults.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		defaultLanguage: "en",
		defaultQuizName: "FagerBitQuiz",
		defaultSource:   "Website",
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// IsTestPing reports whether the submission is a Typeform integration test,
// recognizable by the sentinel placeholder in any of the hidden fields.
func IsTestPing(fr *submission.FormResponse) bool {
	for _, key := range []string{"quiz_name", "ending", "source"} {
		if v, ok := fr.HiddenString(key); ok && v == sentinelValue {
			return true
		}
	}
	return false
}

// Normalize derives a Fact from the submission. It never fails; absent
// fields stay zero-valued.
func (n *Normalizer) Normalize(fr *submission.FormResponse) Fact {
	if fr == nil {
		return Fact{EndingKey: unknownKey, QuizName: n.defaultQuizName, Source: n.defaultSource, SubmittedAt: time.Now().UTC()}
	}

	all := fr.Strings()
	scanEnding, scanPath := DeepScan(all)

	f := Fact{
		FormID:     fr.FormID,
		ResponseID: fr.Token,
	}

	f.Email = n.resolveEmail(fr)
	f.ConsentGiven = n.resolveConsent(fr)
	f.EndingTitle = n.resolveEndingTitle(fr, scanEnding)
	f.EndingKey = n.resolveEndingKey(fr, f.EndingTitle)
	f.QuizPath = n.resolveQuizPath(fr, scanPath)
	f.QuizGroup = QuizGroup(f.QuizPath)
	f.HorseName = n.resolveHorseName(fr)

	if v, ok := fr.HiddenString("quiz_name"); ok {
		f.QuizName = v
	} else {
		f.QuizName = n.defaultQuizName
	}
	if v, ok := fr.HiddenString("source"); ok {
		f.Source = v
	} else {
		f.Source = n.defaultSource
	}

	hiddenLang, _ := fr.HiddenString("language")
	if hiddenLang == "" {
		hiddenLang, _ = fr.HiddenString("locale")
	}
	f.Language = detectLanguage(hiddenLang, all, n.defaultLanguage)
	f.Segment, f.Country = localeFor(f.Language)

	f.SubmittedAt = parseSubmittedAt(fr.SubmittedAt)

	return f
}

func (n *Normalizer) resolveEmail(fr *submission.FormResponse) string {
	if v, ok := fr.HiddenString("email"); ok {
		if e, valid := ValidEmail(v); valid {
			return e
		}
	}
	if a, ok := fr.AnswerByType("email"); ok {
		if e, valid := ValidEmail(a.Email); valid {
			return e
		}
	}
	if a, ok := fr.AnswerByKeyword("email", "e-mail", "mail"); ok {
		if e, valid := ValidEmail(a.Value()); valid {
			return e
		}
	}
	return ""
}

// resolveConsent detects marketing consent. A configured question reference
// is authoritative; otherwise a small heuristic chain covers the variations
// seen upstream (legal boolean, hidden flag, affirmative free text).
func (n *Normalizer) resolveConsent(fr *submission.FormResponse) bool {
	if n.consentRef != "" {
		a, ok := fr.AnswerByRef(n.consentRef)
		return ok && a.Boolean != nil && *a.Boolean
	}

	// Typeform legal questions answer as booleans with field type "legal".
	for _, a := range fr.Answers {
		if (a.Type == "legal" || a.Field.Type == "legal") && a.Boolean != nil {
			return *a.Boolean
		}
	}
	if a, ok := fr.AnswerByKeyword("consent", "legal", "newsletter", "gdpr"); ok {
		if a.Boolean != nil {
			return *a.Boolean
		}
		return isAffirmative(a.Value())
	}
	if v, ok := fr.HiddenString("consent"); ok {
		return isAffirmative(v)
	}
	return false
}

func isAffirmative(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true", "yes", "ja", "1", "accept", "accepted", "i accept":
		return true
	}
	return strings.Contains(s, "accept") || strings.Contains(s, "yes")
}

func (n *Normalizer) resolveEndingTitle(fr *submission.FormResponse, scanned string) string {
	if fr.Calculated != nil && fr.Calculated.Outcome != nil && fr.Calculated.Outcome.Title != "" {
		return fr.Calculated.Outcome.Title
	}
	if v, ok := fr.HiddenString("ending"); ok {
		return v
	}
	if a, ok := fr.AnswerByKeyword("result", "ending", "outcome"); ok {
		if v := a.Value(); v != "" {
			return v
		}
	}
	return scanned
}

func (n *Normalizer) resolveEndingKey(fr *submission.FormResponse, title string) string {
	if v, ok := fr.HiddenString("ending_key"); ok {
		return Slugify(v)
	}
	if title == "" {
		return unknownKey
	}
	return Slugify(title)
}

func (n *Normalizer) resolveQuizPath(fr *submission.FormResponse, scanned string) string {
	for _, key := range []string{"quiz_path", "path"} {
		if v, ok := fr.HiddenString(key); ok {
			if p := NormalizeQuizPath(v); p != "" {
				return p
			}
		}
	}
	return scanned
}

func (n *Normalizer) resolveHorseName(fr *submission.FormResponse) string {
	for _, key := range []string{"horse", "horse_name"} {
		if v, ok := fr.HiddenString(key); ok {
			return v
		}
	}
	if a, ok := fr.AnswerByKeyword("horse", "häst", "hast"); ok {
		if v := a.Value(); v != "" {
			return v
		}
	}
	if a, ok := fr.FirstFreeText(); ok {
		return a.Text
	}
	return ""
}

func parseSubmittedAt(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}
