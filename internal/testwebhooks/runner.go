package testwebhooks

import (
	"context"
	"fmt"
	"time"

	"github.com/fagerbits/quizrelay/pkg/logger"
)

// Run executes a complete smoke test against a running relay.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting webhook smoke test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("webhooks", config.NumWebhooks),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	if err := checkRelayHealth(ctx, config); err != nil {
		return fmt.Errorf("relay health check failed: %w", err)
	}

	bodies := make([]map[string]any, 0, config.NumWebhooks)
	expectRelayed := 0
	for i := 0; i < config.NumWebhooks; i++ {
		body, relays := generateWebhook(i)
		bodies = append(bodies, body)
		if relays {
			expectRelayed++
		}
	}
	stats.Generated = len(bodies)

	if err := deliverWebhooks(ctx, config, bodies, stats); err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	relayStats, err := fetchStats(ctx, config)
	if err != nil {
		logger.Get().Warn(ctx, "could not fetch relay stats", logger.Error(err))
	} else {
		logger.Get().Info(ctx, "relay counters", logger.Any("stats", relayStats))
	}

	logger.Get().Info(ctx, "smoke test finished",
		logger.Int("generated", stats.Generated),
		logger.Int("delivered", stats.Delivered),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("expected_relayed", expectRelayed),
		logger.Int("policy_breaks", stats.PolicyBreaks),
		logger.Duration("duration", stats.Duration))

	if stats.PolicyBreaks > 0 {
		return fmt.Errorf("%d deliveries answered with a non-200 status", stats.PolicyBreaks)
	}
	if stats.Delivered != stats.Generated {
		return fmt.Errorf("delivered %d of %d webhooks", stats.Delivered, stats.Generated)
	}
	return nil
}
