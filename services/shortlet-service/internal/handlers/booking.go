package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/shortlet/libs/httpx"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/shortlet"
)

type createBookingRequest struct {
	PropertyID       string `json:"property_id"`
	GuestUserID      string `json:"guest_user_id"`
	CheckIn          string `json:"check_in"`
	CheckOut         string `json:"check_out"`
	Currency         string `json:"currency"`
	TotalAmountMinor int64  `json:"total_amount_minor"`
}

type bookingResponse struct {
	BookingID        string `json:"booking_id"`
	PropertyID       string `json:"property_id"`
	GuestUserID      string `json:"guest_user_id"`
	HostUserID       string `json:"host_user_id"`
	CheckIn          string `json:"check_in"`
	CheckOut         string `json:"check_out"`
	Nights           int    `json:"nights"`
	Status           string `json:"status"`
	BookingMode      string `json:"booking_mode"`
	Currency         string `json:"currency"`
	TotalAmountMinor int64  `json:"total_amount_minor"`
	PaymentReference string `json:"payment_reference"`
	ExpiresAt        string `json:"expires_at,omitempty"`
	RespondBy        string `json:"respond_by,omitempty"`
}

func toBookingResponse(b model.ShortletBooking) bookingResponse {
	return bookingResponse{
		BookingID:        b.ID,
		PropertyID:       b.PropertyID,
		GuestUserID:      b.GuestUserID,
		HostUserID:       b.HostUserID,
		CheckIn:          b.CheckIn.Format("2006-01-02"),
		CheckOut:         b.CheckOut.Format("2006-01-02"),
		Nights:           b.Nights,
		Status:           string(b.Status),
		BookingMode:      string(b.BookingMode),
		Currency:         b.Currency,
		TotalAmountMinor: b.TotalAmountMinor,
		PaymentReference: b.PaymentReference,
		ExpiresAt:        formatTime(b.ExpiresAt),
		RespondBy:        formatTime(b.RespondBy),
	}
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(idemKey) > 128 {
		httpx.WriteError(w, http.StatusBadRequest, "Idempotency-Key too long")
		return
	}

	booking, replay, err := h.engine.CreateBooking(r.Context(), shortlet.CreateBookingInput{
		PropertyID:       strings.TrimSpace(req.PropertyID),
		GuestUserID:      strings.TrimSpace(req.GuestUserID),
		CheckIn:          strings.TrimSpace(req.CheckIn),
		CheckOut:         strings.TrimSpace(req.CheckOut),
		Currency:         req.Currency,
		TotalAmountMinor: req.TotalAmountMinor,
		IdempotencyKey:   idemKey,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if replay {
		w.Header().Set("Idempotent-Replay", "true")
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, toBookingResponse(booking))
}

type respondRequest struct {
	BookingID  string `json:"booking_id"`
	HostUserID string `json:"host_user_id"`
	Decision   string `json:"decision"`
}

func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	var accept bool
	switch strings.ToLower(strings.TrimSpace(req.Decision)) {
	case "accept":
		accept = true
	case "decline":
	default:
		httpx.WriteError(w, http.StatusBadRequest, "decision must be accept or decline")
		return
	}

	booking, err := h.engine.Respond(r.Context(), strings.TrimSpace(req.BookingID), strings.TrimSpace(req.HostUserID), accept)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBookingResponse(booking))
}

type cancelRequest struct {
	BookingID   string `json:"booking_id"`
	ActorUserID string `json:"actor_user_id"`
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	booking, err := h.engine.Cancel(r.Context(), strings.TrimSpace(req.BookingID), strings.TrimSpace(req.ActorUserID))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBookingResponse(booking))
}

type statusResponse struct {
	BookingID     string `json:"booking_id"`
	BookingStatus string `json:"booking_status"`
	PaymentStatus string `json:"payment_status,omitempty"`
	Action        string `json:"action"`
	UIState       string `json:"ui_state"`
}

// Status answers one poll. elapsed_ms is the client's time since it started polling.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bookingID := strings.TrimSpace(q.Get("booking_id"))
	if bookingID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "booking_id is required")
		return
	}
	elapsed, ok := parseMillis(q.Get("elapsed_ms"))
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid elapsed_ms")
		return
	}
	timeout, ok := parseMillis(q.Get("timeout_ms"))
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid timeout_ms")
		return
	}

	view, err := h.engine.Status(r.Context(), bookingID, elapsed, timeout)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, statusResponse{
		BookingID:     view.Booking.ID,
		BookingStatus: string(view.Booking.Status),
		PaymentStatus: string(view.PaymentStatus),
		Action:        string(view.Action),
		UIState:       string(view.State),
	})
}

func parseMillis(raw string) (time.Duration, bool) {
	if strings.TrimSpace(raw) == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return time.Duration(v) * time.Millisecond, true
}
