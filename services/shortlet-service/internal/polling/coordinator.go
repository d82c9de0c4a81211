// Package polling tells a client waiting on an asynchronous payment whether to keep asking.
// The decision functions are pure over the current statuses and elapsed time.
package polling

import (
	"time"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
)

const DefaultTimeout = 60 * time.Second

type Action string

const (
	ActionContinue Action = "continue"
	ActionStop     Action = "stop"
	// ActionFinalFetch means the payment is captured but the booking has not moved yet.
	ActionFinalFetch Action = "final_fetch_then_wait_then_stop"
)

type State string

const (
	StateProcessing State = "processing"
	StateFinalising State = "finalising"
	StatePending    State = "pending"
	StateConfirmed  State = "confirmed"
	StateFailed     State = "failed"
	StateRefunded   State = "refunded"
	StateClosed     State = "closed"
)

// ResolvePollingAction decides the next step. A non-positive timeout means DefaultTimeout.
func ResolvePollingAction(booking model.BookingStatus, payment model.PaymentStatus, elapsed, timeout time.Duration) Action {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if payment == model.PaymentStatusFailed || payment == model.PaymentStatusRefunded {
		return ActionStop
	}
	if elapsed >= timeout {
		if finalising(booking, payment) {
			return ActionFinalFetch
		}
		return ActionStop
	}
	if booking != model.BookingStatusPendingPayment {
		return ActionStop
	}
	return ActionContinue
}

// UIState is a display tag only. Nothing may gate a transition on it.
func UIState(booking model.BookingStatus, payment model.PaymentStatus) State {
	switch {
	case payment == model.PaymentStatusFailed:
		return StateFailed
	case payment == model.PaymentStatusRefunded:
		return StateRefunded
	case booking == model.BookingStatusConfirmed:
		return StateConfirmed
	case booking == model.BookingStatusPending:
		return StatePending
	case finalising(booking, payment):
		return StateFinalising
	case booking.Terminal():
		return StateClosed
	}
	return StateProcessing
}

func finalising(booking model.BookingStatus, payment model.PaymentStatus) bool {
	return booking == model.BookingStatusPendingPayment && payment == model.PaymentStatusSucceeded
}
