// Package lifecycle holds the booking and payment status machines and the payment reconciliation
// that moves a booking forward once its provider confirms the money.
package lifecycle

import (
	"strings"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/apperror"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
)

type Event string

const (
	EventPaymentSucceeded     Event = "payment_succeeded"
	EventPaymentWindowElapsed Event = "payment_window_elapsed"
	EventHostAccepted         Event = "host_accepted"
	EventHostDeclined         Event = "host_declined"
	EventHostResponseElapsed  Event = "host_response_elapsed"
	EventStayCompleted        Event = "stay_completed"
	EventCancelled            Event = "cancelled"
)

// NextBookingStatus applies ev to current. mode only matters for EventPaymentSucceeded; an
// empty mode is treated as request.
func NextBookingStatus(current model.BookingStatus, ev Event, mode model.BookingMode) (model.BookingStatus, error) {
	if current.Terminal() {
		return current, apperror.IllegalTransition("booking is %s; %s not allowed", current, ev)
	}
	switch current {
	case model.BookingStatusPendingPayment:
		switch ev {
		case EventPaymentSucceeded:
			if mode == model.BookingModeInstant {
				return model.BookingStatusConfirmed, nil
			}
			return model.BookingStatusPending, nil
		case EventPaymentWindowElapsed:
			return model.BookingStatusExpired, nil
		}
	case model.BookingStatusPending:
		switch ev {
		case EventHostAccepted:
			return model.BookingStatusConfirmed, nil
		case EventHostDeclined:
			return model.BookingStatusDeclined, nil
		case EventHostResponseElapsed:
			return model.BookingStatusExpired, nil
		case EventCancelled:
			return model.BookingStatusCancelled, nil
		}
	case model.BookingStatusConfirmed:
		switch ev {
		case EventStayCompleted:
			return model.BookingStatusCompleted, nil
		case EventCancelled:
			return model.BookingStatusCancelled, nil
		}
	default:
		return current, apperror.IllegalTransition("unknown booking status %q", current)
	}
	return current, apperror.IllegalTransition("%s -> %s not allowed", current, ev)
}

// NextPaymentStatus validates a move of the payment record to target.
func NextPaymentStatus(current, target model.PaymentStatus) (model.PaymentStatus, error) {
	switch {
	case current == model.PaymentStatusInitiated &&
		(target == model.PaymentStatusSucceeded || target == model.PaymentStatusFailed):
		return target, nil
	case current == model.PaymentStatusSucceeded && target == model.PaymentStatusRefunded:
		return target, nil
	case current == model.PaymentStatusFailed && target == model.PaymentStatusSucceeded:
		// a capture reported after the attempt was given up on
		return target, nil
	}
	return current, apperror.IllegalTransition("payment %s -> %s not allowed", current, target)
}

// AdvanceOnPayment is the only way a booking leaves pending_payment on payment. The payment must
// be succeeded and match the booking's amount and currency.
func AdvanceOnPayment(booking model.ShortletBooking, payment model.ShortletPayment, mode model.BookingMode) (model.BookingStatus, error) {
	if payment.Status != model.PaymentStatusSucceeded {
		return booking.Status, apperror.Mismatch("payment %s is %s, not succeeded", payment.ReferenceID, payment.Status)
	}
	if err := matchAmount(booking, payment.AmountMinor, payment.Currency); err != nil {
		return booking.Status, err
	}
	return NextBookingStatus(booking.Status, EventPaymentSucceeded, mode)
}

func matchAmount(booking model.ShortletBooking, amountMinor int64, currency string) error {
	if amountMinor != booking.TotalAmountMinor {
		return apperror.Mismatch("amount mismatch: expected %d, got %d", booking.TotalAmountMinor, amountMinor)
	}
	if !strings.EqualFold(strings.TrimSpace(currency), strings.TrimSpace(booking.Currency)) {
		return apperror.Mismatch("currency mismatch: expected %s, got %s",
			strings.ToUpper(booking.Currency), strings.ToUpper(currency))
	}
	return nil
}
