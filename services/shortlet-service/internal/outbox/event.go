package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateBooking = "shortlet_booking"
	AggregatePayment = "shortlet_payment"

	EventBookingCreated       = "shortlet.booking.created.v1"
	EventBookingStatusChanged = "shortlet.booking.status_changed.v1"
	EventPaymentSucceeded     = "shortlet.payment.succeeded.v1"
	EventPaymentFailed        = "shortlet.payment.failed.v1"
	EventPaymentReview        = "shortlet.payment.review_required.v1"
)

type bookingPayload struct {
	BookingID        string `json:"booking_id"`
	PropertyID       string `json:"property_id"`
	GuestUserID      string `json:"guest_user_id"`
	HostUserID       string `json:"host_user_id"`
	CheckIn          string `json:"check_in"`
	CheckOut         string `json:"check_out"`
	Status           string `json:"status"`
	PreviousStatus   string `json:"previous_status,omitempty"`
	BookingMode      string `json:"booking_mode"`
	Currency         string `json:"currency"`
	TotalAmountMinor int64  `json:"total_amount_minor"`
	OccurredAt       string `json:"occurred_at"`
}

type paymentPayload struct {
	PaymentID   string `json:"payment_id"`
	BookingID   string `json:"booking_id"`
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Reason      string `json:"reason,omitempty"`
	OccurredAt  string `json:"occurred_at"`
}

func BookingCreated(b model.ShortletBooking, at time.Time) (Event, error) {
	return bookingEvent(EventBookingCreated, b, "", at)
}

func BookingStatusChanged(b model.ShortletBooking, from model.BookingStatus, at time.Time) (Event, error) {
	return bookingEvent(EventBookingStatusChanged, b, from, at)
}

// PaymentEvent builds the payment event for p's status. needsReview overrides it with the review
// event carrying reason.
func PaymentEvent(p model.ShortletPayment, needsReview bool, reason string, at time.Time) (Event, error) {
	eventType := EventPaymentFailed
	switch {
	case needsReview:
		eventType = EventPaymentReview
	case p.Status == model.PaymentStatusSucceeded:
		eventType = EventPaymentSucceeded
	}
	if reason == "" {
		reason = p.FailureReason
	}
	payload, err := json.Marshal(paymentPayload{
		PaymentID:   p.ID,
		BookingID:   p.BookingID,
		ReferenceID: p.ReferenceID,
		Status:      string(p.Status),
		AmountMinor: p.AmountMinor,
		Currency:    p.Currency,
		Reason:      reason,
		OccurredAt:  at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{AggregateType: AggregatePayment, AggregateID: p.ID, EventType: eventType, Payload: payload}, nil
}

func bookingEvent(eventType string, b model.ShortletBooking, from model.BookingStatus, at time.Time) (Event, error) {
	payload, err := json.Marshal(bookingPayload{
		BookingID:        b.ID,
		PropertyID:       b.PropertyID,
		GuestUserID:      b.GuestUserID,
		HostUserID:       b.HostUserID,
		CheckIn:          b.CheckIn.Format("2006-01-02"),
		CheckOut:         b.CheckOut.Format("2006-01-02"),
		Status:           string(b.Status),
		PreviousStatus:   string(from),
		BookingMode:      string(b.BookingMode),
		Currency:         b.Currency,
		TotalAmountMinor: b.TotalAmountMinor,
		OccurredAt:       at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{AggregateType: AggregateBooking, AggregateID: b.ID, EventType: eventType, Payload: payload}, nil
}
