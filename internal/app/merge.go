package service

import (
	"time"

	"github.com/fagerbits/quizrelay/internal/domain/normalize"
)

// historyKey is the profile property holding the bounded list of past quiz
// completions, newest first.
const historyKey = "quiz_history"

// buildHistoryEntry renders one completed quiz as a history record. Empty
// facts are left out so old entries stay comparable regardless of which
// fields a given form delivered.
func buildHistoryEntry(f normalize.Fact) map[string]any {
	entry := map[string]any{
		"date":                 f.SubmittedAt.UTC().Format(time.RFC3339),
		"quiz_name":            f.QuizName,
		"source":               f.Source,
		"ending_key":           f.EndingKey,
		"typeform_form_id":     f.FormID,
		"typeform_response_id": f.ResponseID,
	}
	if f.EndingTitle != "" {
		entry["ending"] = f.EndingTitle
	}
	if f.QuizPath != "" {
		entry["quiz_path"] = f.QuizPath
	}
	if f.QuizGroup != "" {
		entry["quiz_group"] = f.QuizGroup
	}
	if f.HorseName != "" {
		entry["horse"] = f.HorseName
	}
	return entry
}

// mergedProperties computes the profile property patch for one submission.
// Each field takes the first non-empty value along new fact, latest history
// entry, existing property. Keys with no value anywhere are left out of the
// patch entirely, so a sparse submission never blanks data from an earlier,
// richer one.
func mergedProperties(f normalize.Fact, existing map[string]any, historyCap int) map[string]any {
	latest := latestHistoryEntry(existing)

	props := map[string]any{
		"quiz_name":           f.QuizName,
		"source":              f.Source,
		"language":            f.Language,
		"newsletter_segment":  f.Segment,
		"last_quiz_completed": f.SubmittedAt.UTC().Format(time.RFC3339),
	}
	setFirst(props, "country", f.Country, existing["country"])

	setFirst(props, "ending_title", f.EndingTitle, latest["ending"], existing["ending_title"])
	if !f.UnknownEnding() {
		props["ending_key"] = f.EndingKey
	} else {
		setFirst(props, "ending_key", "", latest["ending_key"], existing["ending_key"])
	}
	setFirst(props, "quiz_path", f.QuizPath, latest["quiz_path"], existing["quiz_path"])
	setFirst(props, "quiz_group", f.QuizGroup, latest["quiz_group"], existing["quiz_group"])
	setFirst(props, "horse_name", f.HorseName, latest["horse"], existing["horse_name"])

	props[historyKey] = prependHistory(existing, buildHistoryEntry(f), historyCap)

	return props
}

// setFirst stores the first non-empty candidate under key, or nothing.
func setFirst(props map[string]any, key string, candidates ...any) {
	for _, c := range candidates {
		if s, ok := c.(string); ok && s != "" {
			props[key] = s
			return
		}
	}
}

// prependHistory puts entry in front of the existing history, trimming to the
// cap. History arriving in any shape other than a list is discarded rather
// than guessed at.
func prependHistory(existing map[string]any, entry map[string]any, limit int) []any {
	history := []any{entry}
	if existing != nil {
		if prior, ok := existing[historyKey].([]any); ok {
			history = append(history, prior...)
		}
	}
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history
}

// latestHistoryEntry returns the most recent history record, or an empty map.
func latestHistoryEntry(existing map[string]any) map[string]any {
	if existing == nil {
		return map[string]any{}
	}
	prior, ok := existing[historyKey].([]any)
	if !ok || len(prior) == 0 {
		return map[string]any{}
	}
	if entry, ok := prior[0].(map[string]any); ok {
		return entry
	}
	return map[string]any{}
}
