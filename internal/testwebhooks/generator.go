// Package testwebhooks drives a running relay with synthetic Typeform
// deliveries and checks the response contract: every well-formed delivery,
// including skippable ones, must come back with a 200.
package testwebhooks

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Shapes of synthetic submissions, weighted roughly like production traffic.
const (
	shapeFull       = 0 // email + consent + calculated ending
	shapeNoConsent  = 1
	shapeHiddenOnly = 2 // ending and path only in hidden fields
	shapeNoEmail    = 3
	shapeTestPing   = 4
	shapeCount      = 5
)

var endings = []struct {
	title string
	path  string
}{
	{"HildaMaria", "category/quiz-snaffle-36"},
	{"Sally Bradoon", "category/quiz-bradoon-12"},
	{"Alice", "category/quiz-young-2"},
	{"Madeleine", "category/quiz-weymouth-7"},
}

var languages = []string{"en", "sv", "de", "fr"}

func pick(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateWebhook builds one synthetic delivery body. shapeNoEmail and
// shapeTestPing exercise the skip paths; the rest should relay.
func generateWebhook(index int) (map[string]any, bool) {
	shape := pick(shapeCount)
	ending := endings[pick(len(endings))]
	lang := languages[pick(len(languages))]
	token := uuid.NewString()

	hidden := map[string]any{
		"quiz_name": "FagerBitQuiz",
		"source":    "SmokeTest",
		"language":  lang,
	}
	answers := []any{}

	switch shape {
	case shapeTestPing:
		hidden["quiz_name"] = "hidden_value"
	case shapeNoEmail:
		// No email answer, no hidden email.
	default:
		answers = append(answers, map[string]any{
			"type":  "email",
			"field": map[string]any{"id": "f1", "ref": "email-ref", "type": "email"},
			"email": fmt.Sprintf("smoke+%d@example.com", index),
		})
	}

	if shape == shapeFull {
		answers = append(answers, map[string]any{
			"type":    "boolean",
			"field":   map[string]any{"id": "f3", "ref": "consent-ref", "type": "legal"},
			"boolean": true,
		})
	}

	fr := map[string]any{
		"form_id":      "smoke01",
		"token":        token,
		"submitted_at": time.Now().UTC().Format(time.RFC3339),
		"hidden":       hidden,
		"answers":      answers,
	}

	if shape == shapeHiddenOnly {
		hidden["ending"] = ending.title
		hidden["quiz_path"] = ending.path
	} else if shape != shapeTestPing {
		fr["calculated"] = map[string]any{"outcome": map[string]any{"title": ending.title}}
		hidden["quiz_path"] = ending.path
	}

	body := map[string]any{
		"event_id":      "smoke-" + token,
		"event_type":    "form_response",
		"form_response": fr,
	}
	expectRelay := shape != shapeNoEmail && shape != shapeTestPing
	return body, expectRelay
}
