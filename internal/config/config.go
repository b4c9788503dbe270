// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// KlaviyoAPIKey authenticates outbound Klaviyo calls. Required.
	KlaviyoAPIKey string `koanf:"klaviyo_api_key"`

	// KlaviyoBaseURL points at the Klaviyo REST API.
	KlaviyoBaseURL string `koanf:"klaviyo_base_url"`

	// KlaviyoRevision selects the API schema revision the dispatcher targets.
	KlaviyoRevision string `koanf:"klaviyo_revision"`

	// MetricName is the Klaviyo metric the completion event attaches to.
	MetricName string `koanf:"metric_name"`

	// MetricID short-circuits metric resolution for id-based schema revisions.
	MetricID string `koanf:"metric_id"`

	// ListID is the newsletter list consenting profiles are subscribed to.
	// Empty disables list subscription.
	ListID string `koanf:"list_id"`

	// TypeformSecret is the shared webhook secret. Empty disables the check.
	TypeformSecret string `koanf:"typeform_secret"`

	// ConsentRef pins consent detection to one Typeform question reference.
	// Empty falls back to keyword heuristics.
	ConsentRef string `koanf:"consent_ref"`

	// DefaultLanguage is used when no language can be detected.
	DefaultLanguage string `koanf:"default_language"`

	// DefaultQuizName and DefaultSource fill fields absent from the payload.
	DefaultQuizName string `koanf:"default_quiz_name"`
	DefaultSource   string `koanf:"default_source"`

	// HistoryCap bounds the quiz_history property kept on a profile.
	HistoryCap int `koanf:"history_cap"`

	// HTTPTimeoutSeconds bounds each outbound Klaviyo call.
	HTTPTimeoutSeconds int `koanf:"http_timeout_seconds"`

	// EventRetryAttempts and EventRetryBaseMS shape the event-send retry policy.
	EventRetryAttempts int `koanf:"event_retry_attempts"`
	EventRetryBaseMS   int `koanf:"event_retry_base_ms"`

	// SubscribePollAttempts and SubscribePollIntervalMS bound subscription job
	// polling. Zero attempts disables polling entirely.
	SubscribePollAttempts   int `koanf:"subscribe_poll_attempts"`
	SubscribePollIntervalMS int `koanf:"subscribe_poll_interval_ms"`

	// UnknownEndingLogSize bounds the seen-set used to log unknown endings once.
	UnknownEndingLogSize int `koanf:"unknown_ending_log_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":9080",
		KlaviyoBaseURL:          "https://a.klaviyo.com",
		KlaviyoRevision:         "2024-07-15",
		MetricName:              "Fager Quiz Completed",
		DefaultLanguage:         "en",
		DefaultQuizName:         "FagerBitQuiz",
		DefaultSource:           "Website",
		HistoryCap:              100,
		HTTPTimeoutSeconds:      15,
		EventRetryAttempts:      3,
		EventRetryBaseMS:        500,
		SubscribePollAttempts:   5,
		SubscribePollIntervalMS: 1000,
		UnknownEndingLogSize:    1000,
	}
}
