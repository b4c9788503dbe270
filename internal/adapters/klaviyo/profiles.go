package klaviyo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fagerbits/quizrelay/pkg/logger"
	"github.com/fagerbits/quizrelay/pkg/metrics"
)

// CreateProfile creates a profile and returns its ID. A 409 conflict means
// the profile already exists; the duplicate ID from the error payload is
// returned as a success, with a lookup by email as the fallback when the
// payload does not carry one.
func (c *Client) CreateProfile(ctx context.Context, attrs ProfileAttributes) (string, error) {
	body := envelope{Data: map[string]any{
		"type":       "profile",
		"attributes": attrs,
	}}

	status, raw, _, err := c.do(ctx, "create_profile", http.MethodPost, "/api/profiles/", body)
	if err != nil {
		return "", err
	}

	switch {
	case status == http.StatusCreated || status == http.StatusOK:
		res, err := decodeOne(raw)
		if err != nil {
			return "", fmt.Errorf("decode profile: %w", err)
		}
		return res.ID, nil

	case status == http.StatusConflict:
		metrics.RecordProfileConflict()
		se := parseStatusError(status, raw)
		if se.DuplicateProfileID != "" {
			return se.DuplicateProfileID, nil
		}
		c.log.Debug(ctx, "profile conflict without duplicate id, falling back to lookup",
			logger.String("email", attrs.Email))
		return c.GetProfileIDByEmail(ctx, attrs.Email)

	default:
		return "", parseStatusError(status, raw)
	}
}

// GetProfileIDByEmail resolves a profile ID through an exact email filter.
func (c *Client) GetProfileIDByEmail(ctx context.Context, email string) (string, error) {
	path := "/api/profiles/?filter=" + url.QueryEscape(fmt.Sprintf(`equals(email,"%s")`, email))

	status, raw, _, err := c.do(ctx, "get_profile_by_email", http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", parseStatusError(status, raw)
	}

	list, _, err := decodeMany(raw)
	if err != nil {
		return "", fmt.Errorf("decode profiles: %w", err)
	}
	if len(list) == 0 {
		return "", ErrProfileNotFound
	}
	return list[0].ID, nil
}

// GetProfileProperties fetches the custom properties of a profile.
func (c *Client) GetProfileProperties(ctx context.Context, id string) (map[string]any, error) {
	status, raw, _, err := c.do(ctx, "get_profile", http.MethodGet, "/api/profiles/"+id+"/", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrProfileNotFound
	}
	if status != http.StatusOK {
		return nil, parseStatusError(status, raw)
	}

	res, err := decodeOne(raw)
	if err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	props := res.mapAttr("properties")
	if props == nil {
		props = map[string]any{}
	}
	return props, nil
}

// PatchProfileProperties merges the given custom properties into a profile.
// The API treats absent keys as untouched, so callers control exactly which
// properties change.
func (c *Client) PatchProfileProperties(ctx context.Context, id string, props map[string]any) error {
	body := envelope{Data: map[string]any{
		"type":       "profile",
		"id":         id,
		"attributes": map[string]any{"properties": props},
	}}

	status, raw, _, err := c.do(ctx, "patch_profile", http.MethodPatch, "/api/profiles/"+id+"/", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return parseStatusError(status, raw)
	}
	return nil
}
