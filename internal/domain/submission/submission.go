// Package submission models the inbound Typeform webhook payload.
//
// Typeform payloads are only loosely shaped: answers appear in arbitrary
// order, hidden fields may or may not be present, and taxonomy information can
// hide inside redirect-URL labels anywhere in the document. The types here
// expose explicit "found or not" accessors instead of unchecked deep lookups,
// and keep the raw decoded tree around so callers can deep-scan every string
// value in the payload.
package submission

import (
	"encoding/json"
	"sort"
	"strings"
)

// WebhookRequest is the top-level body delivered by Typeform.
type WebhookRequest struct {
	EventID      string        `json:"event_id,omitempty"`
	EventType    string        `json:"event_type,omitempty"`
	FormResponse *FormResponse `json:"form_response"`

	// Secret is the shared-secret echo some connect configurations attach at
	// the top level instead of inside hidden fields.
	Secret string `json:"secret,omitempty"`
}

// FieldRef identifies the question an answer belongs to.
type FieldRef struct {
	ID    string `json:"id"`
	Ref   string `json:"ref"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

// Choice is a selected option of a choice question.
type Choice struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label"`
	Other string `json:"other,omitempty"`
}

// Answer is one answered question. Exactly one value field is populated,
// keyed by Type ("email", "text", "boolean", "choice", "url", ...).
type Answer struct {
	Type    string   `json:"type"`
	Field   FieldRef `json:"field"`
	Email   string   `json:"email,omitempty"`
	Text    string   `json:"text,omitempty"`
	URL     string   `json:"url,omitempty"`
	Date    string   `json:"date,omitempty"`
	Boolean *bool    `json:"boolean,omitempty"`
	Number  *float64 `json:"number,omitempty"`
	Choice  *Choice  `json:"choice,omitempty"`
}

// Value returns the best-effort string value of the answer, or "" when the
// answer carries no usable text.
func (a Answer) Value() string {
	switch {
	case a.Email != "":
		return a.Email
	case a.Text != "":
		return a.Text
	case a.URL != "":
		return a.URL
	case a.Date != "":
		return a.Date
	case a.Choice != nil && a.Choice.Label != "":
		return a.Choice.Label
	case a.Choice != nil:
		return a.Choice.Other
	}
	return ""
}

// Outcome is the calculated quiz outcome attached by Typeform's logic jumps.
type Outcome struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
}

// Calculated holds computed submission values.
type Calculated struct {
	Score   int      `json:"score,omitempty"`
	Outcome *Outcome `json:"outcome,omitempty"`
}

// FormResponse is the submission itself.
type FormResponse struct {
	FormID      string         `json:"form_id"`
	Token       string         `json:"token"`
	SubmittedAt string         `json:"submitted_at"`
	Hidden      map[string]any `json:"hidden,omitempty"`
	Calculated  *Calculated    `json:"calculated,omitempty"`
	Answers     []Answer       `json:"answers,omitempty"`

	// raw keeps the fully decoded tree for deep string scanning.
	raw map[string]any
}

// UnmarshalJSON decodes the typed view and retains the raw tree.
func (fr *FormResponse) UnmarshalJSON(data []byte) error {
	type alias FormResponse
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*fr = FormResponse(a)

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err == nil {
		fr.raw = raw
	}
	return nil
}

// HiddenString returns the trimmed hidden-field value for key, reporting
// whether a non-empty value was present. Hidden values are passed through
// verbatim by Typeform and occasionally arrive as numbers.
func (fr *FormResponse) HiddenString(key string) (string, bool) {
	if fr == nil || fr.Hidden == nil {
		return "", false
	}
	v, ok := fr.Hidden[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		// Fall back to the JSON rendering for non-string values.
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		s = strings.Trim(string(b), `"`)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// AnswerByRef locates an answer by its stable question reference.
func (fr *FormResponse) AnswerByRef(ref string) (Answer, bool) {
	if fr == nil || ref == "" {
		return Answer{}, false
	}
	for _, a := range fr.Answers {
		if a.Field.Ref == ref || a.Field.ID == ref {
			return a, true
		}
	}
	return Answer{}, false
}

// AnswerByType locates the first answer of the given semantic type.
func (fr *FormResponse) AnswerByType(typ string) (Answer, bool) {
	if fr == nil {
		return Answer{}, false
	}
	for _, a := range fr.Answers {
		if a.Type == typ {
			return a, true
		}
	}
	return Answer{}, false
}

// AnswerByKeyword locates the first answer whose field ref or title contains
// any of the given keywords (case-insensitive).
func (fr *FormResponse) AnswerByKeyword(keywords ...string) (Answer, bool) {
	if fr == nil {
		return Answer{}, false
	}
	for _, a := range fr.Answers {
		haystack := strings.ToLower(a.Field.Ref + " " + a.Field.Title)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
				return a, true
			}
		}
	}
	return Answer{}, false
}

// FirstFreeText returns the first text answer that is not the email answer,
// used as the horse-name fallback.
func (fr *FormResponse) FirstFreeText() (Answer, bool) {
	if fr == nil {
		return Answer{}, false
	}
	for _, a := range fr.Answers {
		if a.Type == "text" && strings.TrimSpace(a.Text) != "" && !strings.Contains(a.Text, "@") {
			return a, true
		}
	}
	return Answer{}, false
}

// Strings returns every string value found anywhere in the payload, in a
// stable order, for fallback pattern scanning.
func (fr *FormResponse) Strings() []string {
	if fr == nil || fr.raw == nil {
		return nil
	}
	var out []string
	walkStrings(fr.raw, &out)
	return out
}

// walkStrings recurses through decoded JSON collecting string leaves. Map keys
// are visited in sorted order so scans are deterministic.
func walkStrings(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) != "" {
			*out = append(*out, t)
		}
	case []any:
		for _, e := range t {
			walkStrings(e, out)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkStrings(t[k], out)
		}
	}
}
