package klaviyo

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fagerbits/quizrelay/pkg/logger"
	"github.com/fagerbits/quizrelay/pkg/metrics"
)

// SubscribeToList adds one consented profile to a list. On the current
// revision this submits a bulk subscription job and polls it to completion;
// a job that is still running when the poll budget runs out is logged and
// treated as accepted, since the job keeps running server-side.
func (c *Client) SubscribeToList(ctx context.Context, listID, email, profileID string) error {
	method, path, body, err := c.schema.subscribe(listID, email, profileID)
	if err != nil {
		return err
	}

	status, raw, location, err := c.do(ctx, "subscribe", method, path, body)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return parseStatusError(status, raw)
	}

	if !c.schema.pollsSubscription() {
		return nil
	}

	jobURL := location
	if jobURL == "" {
		if res, err := decodeOne(raw); err == nil && res.ID != "" {
			jobURL = "/api/profile-subscription-bulk-create-jobs/" + res.ID + "/"
		}
	}
	if jobURL == "" {
		// Accepted without a trackable job reference; nothing left to do.
		return nil
	}

	return c.pollSubscriptionJob(ctx, jobURL, email)
}

// pollSubscriptionJob waits for a bulk subscription job to finish. The poll
// budget is bounded; exhausting it is not a failure.
func (c *Client) pollSubscriptionJob(ctx context.Context, jobURL, email string) error {
	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}

		status, raw, _, err := c.do(ctx, "poll_subscription", http.MethodGet, jobURL, nil)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return parseStatusError(status, raw)
		}

		res, err := decodeOne(raw)
		if err != nil {
			return err
		}
		switch res.stringAttr("status") {
		case "complete", "completed":
			return nil
		case "cancelled", "failed":
			c.log.Warn(ctx, "subscription job did not complete",
				logger.String("email", email),
				logger.String("job_status", res.stringAttr("status")),
				logger.String("errors", jobErrors(res)))
			return &StatusError{Status: status, Detail: "subscription job " + res.stringAttr("status")}
		}
	}

	metrics.RecordSubscriptionPollTimeout()
	c.log.Warn(ctx, "subscription job still running after poll budget",
		logger.String("email", email),
		logger.Int("attempts", c.pollAttempts))
	return nil
}

func jobErrors(res resource) string {
	v, ok := res.Attributes["errors"]
	if !ok {
		return ""
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
