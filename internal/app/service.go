// Package service is the core of the relay: it takes a decoded webhook
// request through normalization, profile reconciliation, property merge,
// list subscription, and event dispatch.
package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fagerbits/quizrelay/internal/adapters/klaviyo"
	"github.com/fagerbits/quizrelay/internal/domain/dedupe"
	"github.com/fagerbits/quizrelay/internal/domain/normalize"
	"github.com/fagerbits/quizrelay/internal/domain/outcome"
	"github.com/fagerbits/quizrelay/internal/domain/submission"
	"github.com/fagerbits/quizrelay/pkg/logger"
	"github.com/fagerbits/quizrelay/pkg/metrics"
)

// KlaviyoAPI is the outbound surface the relay depends on.
type KlaviyoAPI interface {
	CreateProfile(ctx context.Context, attrs klaviyo.ProfileAttributes) (string, error)
	GetProfileIDByEmail(ctx context.Context, email string) (string, error)
	GetProfileProperties(ctx context.Context, id string) (map[string]any, error)
	PatchProfileProperties(ctx context.Context, id string, props map[string]any) error
	SubscribeToList(ctx context.Context, listID, email, profileID string) error
	SendEvent(ctx context.Context, in klaviyo.EventInput) error
	Revision() string
}

// Relay processes webhook submissions.
type Relay struct {
	klaviyo    KlaviyoAPI
	normalizer *normalize.Normalizer

	secret     string
	listID     string
	metricName string
	metricID   string
	historyCap int

	unknownEndings dedupe.Seen
	logger         logger.Logger

	// Stats
	received      atomic.Int64
	relayed       atomic.Int64
	skipped       atomic.Int64
	eventFailures atomic.Int64
}

// Option applies a configuration option to the Relay.
type Option func(*Relay)

// WithSecret sets the shared webhook secret. Empty disables the check.
func WithSecret(secret string) Option {
	return func(r *Relay) { r.secret = secret }
}

// WithListID sets the newsletter list consented profiles are subscribed to.
func WithListID(id string) Option {
	return func(r *Relay) { r.listID = id }
}

// WithMetricName sets the event metric name.
func WithMetricName(name string) Option {
	return func(r *Relay) {
		if name != "" {
			r.metricName = name
		}
	}
}

// WithMetricID sets the pre-resolved metric ID for the legacy revision.
func WithMetricID(id string) Option {
	return func(r *Relay) { r.metricID = id }
}

// WithHistoryCap bounds the quiz history kept on a profile.
func WithHistoryCap(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.historyCap = n
		}
	}
}

// WithNormalizer replaces the payload normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(r *Relay) {
		if n != nil {
			r.normalizer = n
		}
	}
}

// WithUnknownEndingLogSize bounds the once-per-ending log suppression set.
func WithUnknownEndingLogSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.unknownEndings = dedupe.NewInMemorySeen(dedupe.WithMaxSize(n))
		}
	}
}

// WithLogger sets a custom logger for the relay.
func WithLogger(l logger.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}

// New constructs a Relay with default configuration.
func New(api KlaviyoAPI, opts ...Option) *Relay {
	r := &Relay{
		klaviyo:        api,
		normalizer:     normalize.New(),
		metricName:     "Fager Quiz Completed",
		historyCap:     100,
		unknownEndings: dedupe.NewInMemorySeen(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Named("relay")
	}
	return r
}

// Process runs one webhook request through the full relay pipeline and
// returns the outcome. Only profile dispatch and the final event send can
// fail the request; everything before them resolves to a skip, and the
// property patch and list subscription are best-effort.
func (r *Relay) Process(ctx context.Context, req *submission.WebhookRequest) outcome.Result {
	r.received.Add(1)
	metrics.RecordSubmissionReceived()

	if req == nil || req.FormResponse == nil {
		return r.fail(ctx, outcome.Internal, "missing form_response")
	}
	fr := req.FormResponse

	// Typeform only echoes the secret when the connect setup attaches it, as
	// a body field or a hidden field. A delivery that carries none passes;
	// only a supplied secret that differs is rejected.
	sentSecret := req.Secret
	if sentSecret == "" {
		sentSecret, _ = fr.HiddenString("secret")
	}
	if r.secret != "" && sentSecret != "" && sentSecret != r.secret {
		r.logger.Warn(ctx, "webhook secret mismatch", logger.String("form_id", fr.FormID))
		return r.skip(outcome.SecretMismatch, "ignored")
	}

	if normalize.IsTestPing(fr) {
		r.logger.Info(ctx, "skipping typeform test payload", logger.String("form_id", fr.FormID))
		return r.skip(outcome.TestPayload, "test payload skipped")
	}

	fact := r.normalizer.Normalize(fr)
	if !fact.HasEmail() {
		r.logger.Info(ctx, "submission without usable email",
			logger.String("form_id", fact.FormID),
			logger.String("response_id", fact.ResponseID))
		return r.skip(outcome.NoEmail, "no email in submission")
	}

	if fact.UnknownEnding() {
		metrics.RecordUnknownEnding()
		if !r.unknownEndings.SeenAndRecord(ctx, fact.FormID) {
			r.logger.Warn(ctx, "could not resolve quiz ending",
				logger.String("form_id", fact.FormID),
				logger.String("response_id", fact.ResponseID))
		}
	}

	profileID, err := r.resolveProfile(ctx, fact)
	if err != nil {
		// The current revision references event profiles by email, so a
		// failed reconciliation only blocks the legacy dialect.
		if r.klaviyo.Revision() == klaviyo.RevisionLegacy {
			r.logger.Error(ctx, "profile resolution failed", logger.Error(err))
			return outcome.Result{
				Kind:           outcome.ProfileFailed,
				Note:           "profile resolution failed",
				UpstreamStatus: klaviyo.UpstreamStatus(err),
			}
		}
		r.logger.Warn(ctx, "continuing without profile id", logger.Error(err))
	}

	if profileID != "" {
		r.updateProfile(ctx, profileID, fact)
	}

	r.subscribe(ctx, fact, profileID)

	if err := r.sendEvent(ctx, fact, profileID); err != nil {
		r.eventFailures.Add(1)
		r.logger.Error(ctx, "event send failed",
			logger.String("email", fact.Email),
			logger.String("ending_key", fact.EndingKey),
			logger.Error(err))
		return outcome.Result{
			Kind:           outcome.EventFailed,
			Note:           "event dispatch failed",
			UpstreamStatus: klaviyo.UpstreamStatus(err),
		}
	}

	r.relayed.Add(1)
	metrics.RecordSubmissionRelayed()
	r.logger.Info(ctx, "submission relayed",
		logger.String("email", fact.Email),
		logger.String("ending_key", fact.EndingKey),
		logger.String("quiz_path", fact.QuizPath),
		logger.Bool("consent", fact.ConsentGiven))
	return outcome.Result{Kind: outcome.OK, Note: "relayed"}
}

// updateProfile merges this submission into the profile properties. Failures
// here never fail the request; the event still carries the facts.
func (r *Relay) updateProfile(ctx context.Context, profileID string, fact normalize.Fact) {
	existing, err := r.klaviyo.GetProfileProperties(ctx, profileID)
	if err != nil {
		r.logger.Warn(ctx, "could not read existing profile properties", logger.Error(err))
		existing = nil
	}

	props := mergedProperties(fact, existing, r.historyCap)
	if err := r.klaviyo.PatchProfileProperties(ctx, profileID, props); err != nil {
		r.logger.Warn(ctx, "profile property patch failed",
			logger.String("profile_id", profileID),
			logger.Error(err))
	}
}

// subscribe adds a consented profile to the configured list, best-effort.
func (r *Relay) subscribe(ctx context.Context, fact normalize.Fact, profileID string) {
	if !fact.ConsentGiven {
		return
	}
	if r.listID == "" {
		r.logger.Warn(ctx, "consent given but no list configured",
			logger.String("email", fact.Email))
		return
	}
	if err := r.klaviyo.SubscribeToList(ctx, r.listID, fact.Email, profileID); err != nil {
		r.logger.Warn(ctx, "list subscription failed",
			logger.String("email", fact.Email),
			logger.Error(err))
	}
}

func (r *Relay) sendEvent(ctx context.Context, fact normalize.Fact, profileID string) error {
	uniqueID := fact.ResponseID
	if uniqueID == "" {
		uniqueID = uuid.NewString()
	}

	return r.klaviyo.SendEvent(ctx, klaviyo.EventInput{
		MetricName: r.metricName,
		MetricID:   r.metricID,
		ProfileID:  profileID,
		Email:      fact.Email,
		Properties: eventProperties(fact),
		Time:       fact.SubmittedAt,
		UniqueID:   uniqueID,
	})
}

// eventProperties renders the fact as event properties. Unlike the profile
// patch, events are point-in-time records, so empty facts stay empty instead
// of inheriting older values.
func eventProperties(fact normalize.Fact) map[string]any {
	props := map[string]any{
		"quiz_name":            fact.QuizName,
		"ending_key":           fact.EndingKey,
		"ending_title":         fact.EndingTitle,
		"source":               fact.Source,
		"submitted_at":         fact.SubmittedAt.UTC().Format(time.RFC3339),
		"typeform_form_id":     fact.FormID,
		"typeform_response_id": fact.ResponseID,
		"consent_given":        fact.ConsentGiven,
		"language":             fact.Language,
	}
	if fact.QuizPath != "" {
		props["quiz_path"] = fact.QuizPath
	}
	if fact.QuizGroup != "" {
		props["quiz_group"] = fact.QuizGroup
	}
	if fact.HorseName != "" {
		props["horse_name"] = fact.HorseName
	}
	return props
}

func (r *Relay) skip(kind outcome.Kind, note string) outcome.Result {
	r.skipped.Add(1)
	metrics.RecordSubmissionSkipped(kind.String())
	return outcome.Result{Kind: kind, Note: note}
}

func (r *Relay) fail(ctx context.Context, kind outcome.Kind, note string) outcome.Result {
	r.logger.Error(ctx, "webhook request rejected", logger.String("reason", note))
	return outcome.Result{Kind: kind, Note: note}
}

// GetStats returns relay counters for the stats endpoint.
func (r *Relay) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"received":        r.received.Load(),
		"relayed":         r.relayed.Load(),
		"skipped":         r.skipped.Load(),
		"event_failures":  r.eventFailures.Load(),
		"unknown_endings": r.unknownEndings.Size(),
	}
}
