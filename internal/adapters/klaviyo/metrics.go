package klaviyo

import (
	"context"
	"fmt"
	"net/http"
)

// metricPageLimit caps pagination when resolving a metric by name, in case a
// misconfigured name never matches.
const metricPageLimit = 20

// ResolveMetricID finds a metric's ID by exact name, following pagination,
// and creates the metric when no page carries it. Needed by the legacy
// revision, which references metrics by ID.
func (c *Client) ResolveMetricID(ctx context.Context, name string) (string, error) {
	path := "/api/metrics/"
	for page := 0; page < metricPageLimit && path != ""; page++ {
		status, raw, _, err := c.do(ctx, "list_metrics", http.MethodGet, path, nil)
		if err != nil {
			return "", err
		}
		if status != http.StatusOK {
			return "", parseStatusError(status, raw)
		}

		list, next, err := decodeMany(raw)
		if err != nil {
			return "", fmt.Errorf("decode metrics: %w", err)
		}
		for _, res := range list {
			if res.stringAttr("name") == name {
				return res.ID, nil
			}
		}
		path = next
	}
	if path != "" {
		// The page budget ran out with listings remaining; creating here
		// could duplicate a metric on an unvisited page.
		return "", fmt.Errorf("%w: %q", ErrMetricNotFound, name)
	}
	return c.createMetric(ctx, name)
}

// createMetric registers a metric by name and returns its ID.
func (c *Client) createMetric(ctx context.Context, name string) (string, error) {
	body := envelope{Data: map[string]any{
		"type":       "metric",
		"attributes": map[string]any{"name": name},
	}}
	status, raw, _, err := c.do(ctx, "create_metric", http.MethodPost, "/api/metrics/", body)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return "", parseStatusError(status, raw)
	}
	res, err := decodeOne(raw)
	if err != nil {
		return "", fmt.Errorf("decode created metric: %w", err)
	}
	return res.ID, nil
}
