// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/fagerbits/quizrelay/internal/domain/outcome"
	"github.com/fagerbits/quizrelay/internal/domain/submission"
	"github.com/fagerbits/quizrelay/pkg/logger"
)

// WebhookHandler handles Typeform webhook deliveries.
type WebhookHandler struct {
	deps Dependencies
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(deps Dependencies) *WebhookHandler {
	return &WebhookHandler{deps: deps}
}

// HandleWebhook handles POST /webhooks/typeform requests. The response policy
// lives in the outcome package: a malformed body is the only client-visible
// error, everything else answers 200 so Typeform does not redeliver.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const op = "api.webhook"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, outcome.Response{OK: false, Note: "method not allowed"})
		return
	}

	var req submission.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Get().Error(r.Context(), "webhook body decode failed",
			logger.Error(WrapKind(op, ErrBadPayload, err)))
		status, body := outcome.Result{Kind: outcome.Internal, Note: "invalid request body"}.Respond()
		writeJSON(w, status, body)
		return
	}

	// Some connect setups deliver the shared secret as a query parameter
	// instead of a body field.
	if req.Secret == "" {
		req.Secret = r.URL.Query().Get("secret")
	}

	res := h.deps.Process(r.Context(), &req)
	status, body := res.Respond()
	writeJSON(w, status, body)
}
