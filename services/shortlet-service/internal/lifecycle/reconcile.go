package lifecycle

import (
	"time"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/apperror"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
)

type ProviderStatus string

const (
	ProviderSucceeded ProviderStatus = "succeeded"
	ProviderPending   ProviderStatus = "pending"
	ProviderFailed    ProviderStatus = "failed"
)

// VerificationResult is what a payment provider reports for one reference.
type VerificationResult struct {
	Status            ProviderStatus
	AmountMinor       int64
	Currency          string
	PaidAt            time.Time
	AuthorizationCode string
	CustomerCode      string
	FailureReason     string
}

// Outcome is the state after reconciling. Applied is false when nothing changed.
type Outcome struct {
	Booking        model.ShortletBooking
	Payment        model.ShortletPayment
	Applied        bool
	BookingChanged bool
	NeedsReview    bool
	Reason         string
}

// Reconcile folds a provider result into the booking and payment. It is pure; the caller persists
// the outcome. A settled payment is returned unchanged so that verifying the same reference twice
// produces the same outcome. The one exception is a failed payment the provider now reports as
// succeeded: the money was captured, so the payment is recorded as succeeded and flagged for
// review. On an amount or currency mismatch the payment is failed and the outcome is returned
// together with a Mismatch error.
func Reconcile(booking model.ShortletBooking, payment model.ShortletPayment, res VerificationResult, mode model.BookingMode) (Outcome, error) {
	out := Outcome{Booking: booking, Payment: payment}
	if mode == "" {
		mode = booking.BookingMode
	}

	recovering := false
	switch payment.Status {
	case model.PaymentStatusSucceeded, model.PaymentStatusRefunded:
		out.Reason = "payment already " + string(payment.Status)
		return out, nil
	case model.PaymentStatusFailed:
		if res.Status != ProviderSucceeded {
			out.Reason = "payment already failed"
			return out, nil
		}
		recovering = true
	case model.PaymentStatusInitiated:
	default:
		return out, apperror.IllegalTransition("unknown payment status %q", payment.Status)
	}

	switch res.Status {
	case ProviderPending:
		out.Reason = "provider reports payment pending"
		return out, nil
	case ProviderFailed:
		reason := res.FailureReason
		if reason == "" {
			reason = "provider reported failure"
		}
		return fail(out, reason, false), nil
	case ProviderSucceeded:
	default:
		return out, apperror.Validation("unknown provider status %q", res.Status)
	}

	if err := matchAmount(booking, res.AmountMinor, res.Currency); err != nil {
		if recovering {
			// already failed; surface the capture without rewriting the record
			out.NeedsReview = true
			out.Reason = "provider reports success for failed payment: " + apperror.Message(err, err.Error())
			return out, err
		}
		return fail(out, apperror.Message(err, err.Error()), true), err
	}

	status, err := NextPaymentStatus(payment.Status, model.PaymentStatusSucceeded)
	if err != nil {
		return out, err
	}
	out.Payment.Status = status
	out.Payment.FailureReason = ""
	if !res.PaidAt.IsZero() {
		paidAt := res.PaidAt.UTC()
		out.Payment.PaidAt = &paidAt
	}
	if res.AuthorizationCode != "" {
		out.Payment.AuthorizationCode = res.AuthorizationCode
	}
	if res.CustomerCode != "" {
		out.Payment.CustomerCode = res.CustomerCode
	}
	out.Applied = true
	if recovering {
		out.NeedsReview = true
		out.Reason = "payment succeeded after it was marked failed"
	}

	if booking.Status != model.BookingStatusPendingPayment {
		out.NeedsReview = true
		out.Reason = "payment succeeded but booking is " + string(booking.Status)
		return out, nil
	}
	next, err := AdvanceOnPayment(booking, out.Payment, mode)
	if err != nil {
		return out, err
	}
	out.Booking.Status = next
	out.Booking.ExpiresAt = nil
	out.BookingChanged = true
	return out, nil
}

func fail(out Outcome, reason string, review bool) Outcome {
	out.Payment.Status = model.PaymentStatusFailed
	out.Payment.FailureReason = reason
	out.Applied = true
	out.NeedsReview = review
	out.Reason = reason
	return out
}
