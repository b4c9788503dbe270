package testwebhooks

import "time"

// Config holds configuration for one smoke-test run.
type Config struct {
	BaseURL     string        // Base URL of the relay
	NumWebhooks int           // Number of synthetic submissions to deliver
	Workers     int           // Number of concurrent senders
	Timeout     time.Duration // HTTP request timeout
	Secret      string        // Shared webhook secret, if the relay checks one
	Verbose     bool          // Enable verbose logging
}

// Stats holds smoke-test statistics.
type Stats struct {
	Generated    int
	Delivered    int
	Accepted     int
	Rejected     int
	PolicyBreaks int
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}

// relayResponse mirrors the webhook response body.
type relayResponse struct {
	OK       bool   `json:"ok"`
	Note     string `json:"note"`
	Upstream string `json:"upstream"`
	Status   int    `json:"status"`
}
