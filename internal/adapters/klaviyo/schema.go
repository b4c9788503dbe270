package klaviyo

import (
	"fmt"
	"time"
)

// Supported API revisions.
const (
	Revision2024   = "2024-07-15"
	RevisionLegacy = "2023-02-22"
)

// EventInput carries everything needed to dispatch one event, independent of
// the wire dialect.
type EventInput struct {
	MetricName string
	MetricID   string
	ProfileID  string
	Email      string
	Properties map[string]any
	Time       time.Time
	UniqueID   string
}

// Schema is the wire dialect of one API revision. The newer revision
// references metrics by name and profiles by email; the legacy one needs
// resolved IDs and the old list-relationship subscribe endpoint.
type Schema interface {
	Revision() string

	// eventData builds the data member of an event POST.
	eventData(in EventInput) (map[string]any, error)

	// subscribe builds the subscription request for one consented profile.
	subscribe(listID, email, profileID string) (method, path string, body any, err error)

	// pollsSubscription reports whether subscribe answers with an async job
	// that should be polled to completion.
	pollsSubscription() bool
}

// SchemaForRevision maps a configured revision string to its dialect.
func SchemaForRevision(rev string) (Schema, error) {
	switch rev {
	case "", Revision2024:
		return schema2024{}, nil
	case RevisionLegacy:
		return schemaLegacy{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRevision, rev)
}

// schema2024 implements the 2024-07-15 dialect.
type schema2024 struct{}

func (schema2024) Revision() string { return Revision2024 }

func (schema2024) eventData(in EventInput) (map[string]any, error) {
	if in.Email == "" {
		return nil, ErrMissingProfileRef
	}
	return map[string]any{
		"type": "event",
		"attributes": map[string]any{
			"properties": in.Properties,
			"time":       in.Time.UTC().Format(time.RFC3339),
			"unique_id":  in.UniqueID,
			"metric": map[string]any{
				"data": map[string]any{
					"type":       "metric",
					"attributes": map[string]any{"name": in.MetricName},
				},
			},
			"profile": map[string]any{
				"data": map[string]any{
					"type":       "profile",
					"attributes": map[string]any{"email": in.Email},
				},
			},
		},
	}, nil
}

func (schema2024) subscribe(listID, email, _ string) (string, string, any, error) {
	body := envelope{Data: map[string]any{
		"type": "profile-subscription-bulk-create-job",
		"attributes": map[string]any{
			"profiles": map[string]any{
				"data": []any{map[string]any{
					"type": "profile",
					"attributes": map[string]any{
						"email": email,
						"subscriptions": map[string]any{
							"email": map[string]any{
								"marketing": map[string]any{"consent": "SUBSCRIBED"},
							},
						},
					},
				}},
			},
		},
		"relationships": map[string]any{
			"list": map[string]any{
				"data": map[string]any{"type": "list", "id": listID},
			},
		},
	}}
	return "POST", "/api/profile-subscription-bulk-create-jobs/", body, nil
}

func (schema2024) pollsSubscription() bool { return true }

// schemaLegacy implements the 2023-02-22 dialect.
type schemaLegacy struct{}

func (schemaLegacy) Revision() string { return RevisionLegacy }

func (schemaLegacy) eventData(in EventInput) (map[string]any, error) {
	if in.MetricID == "" {
		return nil, fmt.Errorf("%w: legacy revision needs a metric id", ErrMetricNotFound)
	}
	if in.ProfileID == "" {
		return nil, ErrMissingProfileRef
	}
	return map[string]any{
		"type": "event",
		"attributes": map[string]any{
			"properties": in.Properties,
			"time":       in.Time.UTC().Format(time.RFC3339),
			"unique_id":  in.UniqueID,
			"metric": map[string]any{
				"data": map[string]any{"type": "metric", "id": in.MetricID},
			},
			"profile": map[string]any{
				"data": map[string]any{"type": "profile", "id": in.ProfileID},
			},
		},
	}, nil
}

// Legacy subscribe adds the profile to the list relationship directly, using
// the email identifier shorthand so no profile lookup is needed.
func (schemaLegacy) subscribe(listID, email, profileID string) (string, string, any, error) {
	id := profileID
	if id == "" {
		id = "$email:" + email
	}
	body := envelope{Data: []any{map[string]any{"type": "profile", "id": id}}}
	return "POST", fmt.Sprintf("/api/lists/%s/relationships/profiles/", listID), body, nil
}

func (schemaLegacy) pollsSubscription() bool { return false }
