package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/shortlet/libs/httpx"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/apperror"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/payments"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/shortlet"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/storage"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// StripeWebhook handles payment intent notifications. Signature verification is the auth.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(h.stripeWebhookSecret) == "" {
		httpx.WriteError(w, http.StatusServiceUnavailable, "stripe webhook not configured")
		return
	}
	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing Stripe-Signature header")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.stripeWebhookSecret, h.stripeWebhookTolerance)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	evtType := string(evt.Type)
	h.logger.Info("payment provider event received",
		"provider", "stripe",
		"provider_event_id", evt.ID,
		"event_type", evtType,
		"occurred_at", time.Unix(evt.Created, 0).UTC().Format(time.RFC3339),
	)

	switch evtType {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
	default:
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	var pi stripe.PaymentIntent
	if evt.Data == nil || json.Unmarshal(evt.Data.Raw, &pi) != nil || pi.ID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid payment intent payload")
		return
	}

	res, duplicate, err := h.engine.ApplyProviderNotification(r.Context(), shortlet.ProviderNotification{
		Event: storage.ProviderEvent{
			Provider:        "stripe",
			ProviderEventID: evt.ID,
			EventType:       evtType,
			Payload:         body,
		},
		IntentID: pi.ID,
		Result:   payments.FromPaymentIntent(&pi),
	})
	switch {
	case duplicate:
		h.logger.Info("payment provider event duplicate ignored", "provider", "stripe", "provider_event_id", evt.ID)
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
	case apperror.Is(err, apperror.KindMismatch):
		// recorded and flagged; a retry would change nothing
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "review_required", "reference": res.Payment.ReferenceID})
	case err != nil:
		h.writeError(w, r, err)
	default:
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"status":       "processed",
			"applied":      res.Outcome.Applied,
			"needs_review": res.Outcome.NeedsReview,
		})
	}
}
