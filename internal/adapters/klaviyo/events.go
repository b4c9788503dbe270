package klaviyo

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fagerbits/quizrelay/pkg/logger"
	"github.com/fagerbits/quizrelay/pkg/metrics"
)

// SendEvent dispatches one event, retrying transient failures with
// exponential backoff. Rate limits, server errors, and transport errors are
// retried; other client errors fail immediately.
func (c *Client) SendEvent(ctx context.Context, in EventInput) error {
	data, err := c.schema.eventData(in)
	if err != nil {
		return err
	}
	body := envelope{Data: data}

	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			metrics.RecordKlaviyoRetry()
			delay := c.retryBase << (attempt - 1)
			c.log.Debug(ctx, "retrying event send",
				logger.Int("attempt", attempt+1),
				logger.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		status, raw, _, err := c.do(ctx, "send_event", http.MethodPost, "/api/events/", body)
		if err != nil {
			lastErr = err
			continue
		}
		if status >= 200 && status < 300 {
			return nil
		}

		se := parseStatusError(status, raw)
		lastErr = se
		if !se.Retryable() {
			break
		}
	}

	metrics.RecordEventSendFailure()
	return fmt.Errorf("send event: %w", lastErr)
}
