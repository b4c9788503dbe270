package normalize

import (
	"net/url"
	"regexp"
	"strings"
)

// The three taxonomy roots a quiz path may live under. Anything else is
// upstream noise (locale prefixes, marketing campaign segments) and is
// rejected rather than guessed at.
const (
	rootCategory      = "category"
	rootProduct       = "product"
	rootKnowledgeBase = "knowledge-base"
)

// maxPrefixSegments bounds how many leading namespace segments (locale,
// "global", site section) may sit before the taxonomy root.
const maxPrefixSegments = 3

var (
	// fullPathPattern matches a complete taxonomy path anywhere in a string.
	fullPathPattern = regexp.MustCompile(`(?:category|product|knowledge-base)/[A-Za-z0-9_/-]+`)

	// endingParamPattern matches an ending handed over as a query parameter.
	endingParamPattern = regexp.MustCompile(`[?&]ending=([^&\s"']+)`)

	// labelPairPattern matches redirect-URL labels of the form
	// "<ReadableName> <slug-with-dashes>".
	labelPairPattern = regexp.MustCompile(`^\s*([A-Za-zÀ-ÖØ-öø-ÿ0-9]+)\s+([a-z0-9]+(?:-[a-z0-9]+)+)\s*$`)

	// quizShorthandPattern matches the quiz-<group>-<number> shorthand.
	quizShorthandPattern = regexp.MustCompile(`quiz-([a-z]+)-\d+`)
)

// NormalizeQuizPath cleans a captured taxonomy path: strips a leading
// scheme+host, a leading slash and up to a few redundant namespace segments,
// and rejects (returns "") any path not rooted at category/, product/ or
// knowledge-base/.
func NormalizeQuizPath(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil {
			s = u.Path
		}
	}
	s = strings.Trim(s, "/")
	if s == "" {
		return ""
	}

	segments := strings.Split(s, "/")
	for i, seg := range segments {
		if i > maxPrefixSegments {
			break
		}
		if isTaxonomyRoot(seg) {
			return strings.Join(segments[i:], "/")
		}
	}
	return ""
}

func isTaxonomyRoot(seg string) bool {
	return seg == rootCategory || seg == rootProduct || seg == rootKnowledgeBase
}

// QuizGroup extracts the quiz group from a normalized path via the
// quiz-<group>- sub-pattern. Only the known group vocabulary is reported.
func QuizGroup(path string) string {
	m := quizShorthandPattern.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	if _, ok := knownQuizGroups[m[1]]; !ok {
		return ""
	}
	return m[1]
}

// knownQuizGroups is the fixed vocabulary of quiz taxonomy groups.
var knownQuizGroups = map[string]struct{}{
	"young":    {},
	"snaffle":  {},
	"weymouth": {},
	"bradoon":  {},
	"pony":     {},
	"strong":   {},
}

// scanHit is one candidate recovered from the deep scan, ranked by pattern
// priority (lower is better).
type scanHit struct {
	priority int
	ending   string
	path     string
}

// Scan priorities, in the order the patterns are trusted.
const (
	scanFullPath = iota
	scanEndingParam
	scanLabelPair
	scanShorthand
)

// extractFromText applies the fallback patterns to a single string value and
// reports the best hit, or nil when nothing matched.
func extractFromText(s string) *scanHit {
	if m := fullPathPattern.FindString(s); m != "" {
		if p := NormalizeQuizPath(m); p != "" {
			return &scanHit{priority: scanFullPath, path: p}
		}
	}

	if m := endingParamPattern.FindStringSubmatch(s); m != nil {
		if v, err := url.QueryUnescape(m[1]); err == nil {
			return &scanHit{priority: scanEndingParam, ending: v}
		}
		return &scanHit{priority: scanEndingParam, ending: m[1]}
	}

	if m := labelPairPattern.FindStringSubmatch(s); m != nil {
		name, slug := m[1], m[2]
		// Quiz shorthand slugs always live under the category root; anything
		// else dashed is a product slug. Never map shorthand to product/ --
		// that path does not exist upstream.
		if quizShorthandPattern.MatchString(slug) {
			return &scanHit{priority: scanLabelPair, ending: name, path: rootCategory + "/" + slug}
		}
		return &scanHit{priority: scanLabelPair, ending: name, path: rootProduct + "/" + slug}
	}

	if m := quizShorthandPattern.FindString(s); m != "" {
		return &scanHit{priority: scanShorthand, path: rootCategory + "/" + m}
	}

	return nil
}

// DeepScan walks every string value of the payload and returns the best
// ending/path candidates by pattern priority; earlier strings win ties.
func DeepScan(values []string) (ending, path string) {
	var best *scanHit
	for _, v := range values {
		hit := extractFromText(v)
		if hit == nil {
			continue
		}
		if best == nil || hit.priority < best.priority {
			best = hit
		}
		if best.priority == scanFullPath {
			break
		}
	}
	if best == nil {
		return "", ""
	}
	return best.ending, best.path
}
