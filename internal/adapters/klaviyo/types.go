package klaviyo

import "encoding/json"

// JSON:API envelopes. Only the fields the relay reads are modeled; everything
// else rides along untyped.

type document struct {
	Data   json.RawMessage `json:"data"`
	Links  docLinks        `json:"links"`
	Errors []apiError      `json:"errors"`
}

type docLinks struct {
	Next string `json:"next"`
}

type resource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

type apiError struct {
	Status json.Number   `json:"status"`
	Code   string        `json:"code"`
	Title  string        `json:"title"`
	Detail string        `json:"detail"`
	Meta   *apiErrorMeta `json:"meta"`
}

type apiErrorMeta struct {
	DuplicateProfileID string `json:"duplicate_profile_id"`
}

// request envelope: {"data": {...}}
type envelope struct {
	Data any `json:"data"`
}

// ProfileAttributes is the writable identity and property set of a profile.
type ProfileAttributes struct {
	Email      string         `json:"email"`
	Properties map[string]any `json:"properties,omitempty"`
}

// decodeOne parses a document whose data member is a single resource.
func decodeOne(body []byte) (resource, error) {
	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return resource{}, err
	}
	var res resource
	if len(doc.Data) == 0 {
		return res, nil
	}
	if err := json.Unmarshal(doc.Data, &res); err != nil {
		return resource{}, err
	}
	return res, nil
}

// decodeMany parses a document whose data member is a resource list, along
// with the next-page link.
func decodeMany(body []byte) ([]resource, string, error) {
	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, "", err
	}
	var list []resource
	if len(doc.Data) > 0 {
		if err := json.Unmarshal(doc.Data, &list); err != nil {
			return nil, "", err
		}
	}
	return list, doc.Links.Next, nil
}

// parseStatusError builds a StatusError from a non-2xx response body.
func parseStatusError(status int, body []byte) *StatusError {
	se := &StatusError{Status: status}
	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return se
	}
	for _, e := range doc.Errors {
		if se.Detail == "" {
			se.Detail = e.Detail
			if se.Detail == "" {
				se.Detail = e.Title
			}
		}
		if e.Meta != nil && e.Meta.DuplicateProfileID != "" {
			se.DuplicateProfileID = e.Meta.DuplicateProfileID
		}
	}
	return se
}

// stringAttr reads a string attribute, tolerating absence.
func (r resource) stringAttr(key string) string {
	v, _ := r.Attributes[key].(string)
	return v
}

// mapAttr reads a map attribute, tolerating absence.
func (r resource) mapAttr(key string) map[string]any {
	v, _ := r.Attributes[key].(map[string]any)
	return v
}
