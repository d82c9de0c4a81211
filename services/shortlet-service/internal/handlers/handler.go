package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/shortlet/libs/httpx"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/apperror"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/availability"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/payments"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/shortlet"
)

// Engine is the use-case surface the handlers drive. *shortlet.Service implements it.
type Engine interface {
	Slots(ctx context.Context, propertyID, date string, slotMinutes int) (availability.Day, error)
	ValidateViewing(ctx context.Context, propertyID string, instants []time.Time) ([]time.Time, error)
	CreateBooking(ctx context.Context, in shortlet.CreateBookingInput) (model.ShortletBooking, bool, error)
	InitiatePayment(ctx context.Context, bookingID string) (model.ShortletPayment, error)
	VerifyPayment(ctx context.Context, referenceID string) (shortlet.VerifyResult, error)
	ApplyProviderNotification(ctx context.Context, n shortlet.ProviderNotification) (shortlet.VerifyResult, bool, error)
	Respond(ctx context.Context, bookingID, hostUserID string, accept bool) (model.ShortletBooking, error)
	Cancel(ctx context.Context, bookingID, actorUserID string) (model.ShortletBooking, error)
	Status(ctx context.Context, bookingID string, elapsed, timeout time.Duration) (shortlet.StatusView, error)
}

type Handler struct {
	engine                 Engine
	logger                 *slog.Logger
	stripeWebhookSecret    string
	stripeWebhookTolerance time.Duration
}

type Config struct {
	StripeWebhookSecret    string
	StripeWebhookTolerance time.Duration
}

func NewHandler(engine Engine, logger *slog.Logger, cfg Config) *Handler {
	if cfg.StripeWebhookTolerance <= 0 {
		cfg.StripeWebhookTolerance = 5 * time.Minute
	}
	return &Handler{
		engine:                 engine,
		logger:                 logger,
		stripeWebhookSecret:    cfg.StripeWebhookSecret,
		stripeWebhookTolerance: cfg.StripeWebhookTolerance,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/properties/slots", httpx.OnlyMethods(h.Slots, http.MethodGet))
	mux.HandleFunc("/api/v1/viewings/validate", httpx.OnlyMethods(h.ValidateViewing, http.MethodPost))
	mux.HandleFunc("/api/v1/shortlets/bookings", httpx.OnlyMethods(h.CreateBooking, http.MethodPost))
	mux.HandleFunc("/api/v1/shortlets/bookings/respond", httpx.OnlyMethods(h.Respond, http.MethodPost))
	mux.HandleFunc("/api/v1/shortlets/bookings/cancel", httpx.OnlyMethods(h.Cancel, http.MethodPost))
	mux.HandleFunc("/api/v1/shortlets/bookings/status", httpx.OnlyMethods(h.Status, http.MethodGet))
	mux.HandleFunc("/api/v1/shortlets/payments/initiate", httpx.OnlyMethods(h.InitiatePayment, http.MethodPost))
	mux.HandleFunc("/api/v1/shortlets/payments/verify", httpx.OnlyMethods(h.VerifyPayment, http.MethodPost))
	mux.HandleFunc("/api/v1/shortlets/webhooks/stripe", httpx.OnlyMethods(h.StripeWebhook, http.MethodPost))
}

func statusFor(err error) int {
	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindUnavailable, apperror.KindIllegalTransition:
		return http.StatusConflict
	case apperror.KindMismatch:
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, payments.ErrNotConfigured) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "request_id", httpx.RequestIDFromContext(r.Context()), "err", err)
		httpx.WriteError(w, status, http.StatusText(status))
		return
	}
	if apperror.Is(err, apperror.KindIllegalTransition) {
		h.logger.Warn("illegal transition rejected", "path", r.URL.Path, "err", err)
	}
	httpx.WriteError(w, status, apperror.Message(err, err.Error()))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
