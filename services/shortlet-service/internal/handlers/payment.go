package handlers

import (
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/shortlet/libs/httpx"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/apperror"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/shortlet"
)

type initiatePaymentRequest struct {
	BookingID string `json:"booking_id"`
}

type paymentResponse struct {
	PaymentID     string `json:"payment_id"`
	BookingID     string `json:"booking_id"`
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	AmountMinor   int64  `json:"amount_minor"`
	Currency      string `json:"currency"`
	ClientSecret  string `json:"client_secret,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
	PaidAt        string `json:"paid_at,omitempty"`
}

func toPaymentResponse(p model.ShortletPayment) paymentResponse {
	return paymentResponse{
		PaymentID:     p.ID,
		BookingID:     p.BookingID,
		Reference:     p.ReferenceID,
		Status:        string(p.Status),
		AmountMinor:   p.AmountMinor,
		Currency:      p.Currency,
		FailureReason: p.FailureReason,
		PaidAt:        formatTime(p.PaidAt),
	}
}

func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	payment, err := h.engine.InitiatePayment(r.Context(), strings.TrimSpace(req.BookingID))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := toPaymentResponse(payment)
	resp.ClientSecret = payment.ClientSecret
	httpx.WriteJSON(w, http.StatusOK, resp)
}

type verifyPaymentRequest struct {
	Reference string `json:"reference"`
}

type verifyPaymentResponse struct {
	Booking     bookingResponse `json:"booking"`
	Payment     paymentResponse `json:"payment"`
	Applied     bool            `json:"applied"`
	NeedsReview bool            `json:"needs_review"`
	Message     string          `json:"message,omitempty"`
}

func toVerifyResponse(res shortlet.VerifyResult) verifyPaymentResponse {
	return verifyPaymentResponse{
		Booking:     toBookingResponse(res.Booking),
		Payment:     toPaymentResponse(res.Payment),
		Applied:     res.Outcome.Applied,
		NeedsReview: res.Outcome.NeedsReview,
		Message:     res.Outcome.Reason,
	}
}

// VerifyPayment is safe to call repeatedly for the same reference. A mismatch answers 422 with
// the persisted state so the client can show it.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	res, err := h.engine.VerifyPayment(r.Context(), req.Reference)
	if err != nil {
		if apperror.Is(err, apperror.KindMismatch) {
			resp := toVerifyResponse(res)
			resp.Message = apperror.Message(err, "payment mismatch")
			httpx.WriteJSON(w, http.StatusUnprocessableEntity, resp)
			return
		}
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toVerifyResponse(res))
}
