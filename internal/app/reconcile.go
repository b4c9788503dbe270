package service

import (
	"context"

	"github.com/fagerbits/quizrelay/internal/adapters/klaviyo"
	"github.com/fagerbits/quizrelay/internal/domain/normalize"
	"github.com/fagerbits/quizrelay/pkg/logger"
)

// resolveProfile reconciles the submission with a remote profile identity.
// The create call is the primary path: for an existing profile it conflicts,
// and the adapter recovers the duplicate ID from the conflict payload. If the
// create fails outright, a direct lookup by email gets one last chance before
// the failure is reported.
func (r *Relay) resolveProfile(ctx context.Context, f normalize.Fact) (string, error) {
	attrs := klaviyo.ProfileAttributes{Email: f.Email}

	id, err := r.klaviyo.CreateProfile(ctx, attrs)
	if err == nil {
		return id, nil
	}

	r.logger.Warn(ctx, "profile create failed, trying direct lookup",
		logger.String("email", f.Email),
		logger.Error(err))

	if id, lookupErr := r.klaviyo.GetProfileIDByEmail(ctx, f.Email); lookupErr == nil {
		return id, nil
	}
	return "", err
}
