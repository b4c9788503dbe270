package testwebhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/fagerbits/quizrelay/pkg/logger"
)

// deliverWebhooks posts the generated bodies concurrently and tallies
// responses against the always-200 contract.
func deliverWebhooks(ctx context.Context, config *Config, bodies []map[string]any, stats *Stats) error {
	endpoint := config.BaseURL + "/webhooks/typeform"
	if config.Secret != "" {
		endpoint += "?secret=" + url.QueryEscape(config.Secret)
	}
	client := &http.Client{Timeout: config.Timeout}

	var (
		delivered    atomic.Int64
		accepted     atomic.Int64
		rejected     atomic.Int64
		policyBreaks atomic.Int64
	)

	jobs := make(chan map[string]any)
	var wg sync.WaitGroup
	for worker := 0; worker < config.Workers; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for body := range jobs {
				status, res, err := postWebhook(ctx, client, endpoint, body)
				if err != nil {
					rejected.Add(1)
					if config.Verbose {
						logger.Get().Warn(ctx, "delivery failed", logger.Error(err))
					}
					continue
				}
				delivered.Add(1)
				if status != http.StatusOK {
					policyBreaks.Add(1)
					logger.Get().Error(ctx, "response policy violated",
						logger.Int("status", status),
						logger.String("note", res.Note))
					continue
				}
				if res.OK {
					accepted.Add(1)
				} else {
					rejected.Add(1)
					if config.Verbose {
						logger.Get().Warn(ctx, "relay reported failure",
							logger.String("note", res.Note),
							logger.String("upstream", res.Upstream),
							logger.Int("upstream_status", res.Status))
					}
				}
			}
		}()
	}

	for _, body := range bodies {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- body:
		}
	}
	close(jobs)
	wg.Wait()

	stats.Delivered = int(delivered.Load())
	stats.Accepted = int(accepted.Load())
	stats.Rejected = int(rejected.Load())
	stats.PolicyBreaks = int(policyBreaks.Load())
	return nil
}

func postWebhook(ctx context.Context, client *http.Client, endpoint string, body map[string]any) (int, relayResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, relayResponse{}, fmt.Errorf("marshal webhook: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return 0, relayResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, relayResponse{}, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, relayResponse{}, fmt.Errorf("read response: %w", err)
	}
	var decoded relayResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return resp.StatusCode, relayResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, decoded, nil
}

// checkRelayHealth verifies the relay answers its metrics scrape.
func checkRelayHealth(ctx context.Context, config *Config) error {
	client := &http.Client{Timeout: config.Timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.BaseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("connect to relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}
	return nil
}

// fetchStats reads the relay's stats endpoint.
func fetchStats(ctx context.Context, config *Config) (map[string]any, error) {
	client := &http.Client{Timeout: config.Timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.BaseURL+"/stats", nil)
	if err != nil {
		return nil, fmt.Errorf("build stats request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	var stats map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}
