package model

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingStatusUnknown        BookingStatus = ""
	BookingStatusPendingPayment BookingStatus = "pending_payment"
	BookingStatusPending        BookingStatus = "pending"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusDeclined       BookingStatus = "declined"
	BookingStatusCancelled      BookingStatus = "cancelled"
	BookingStatusExpired        BookingStatus = "expired"
	BookingStatusCompleted      BookingStatus = "completed"
)

var bookingStatuses = []BookingStatus{
	BookingStatusPendingPayment,
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusDeclined,
	BookingStatusCancelled,
	BookingStatusExpired,
	BookingStatusCompleted,
}

// ParseBookingStatus maps a stored string onto the closed status set. Anything else is
// BookingStatusUnknown with ok=false.
func ParseBookingStatus(raw string) (BookingStatus, bool) {
	s := BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range bookingStatuses {
		if s == known {
			return s, true
		}
	}
	return BookingStatusUnknown, false
}

func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingStatusDeclined, BookingStatusCancelled, BookingStatusExpired, BookingStatusCompleted:
		return true
	}
	return false
}

// Blocking reports whether a booking in this status holds its dates.
func (s BookingStatus) Blocking() bool {
	switch s {
	case BookingStatusPendingPayment, BookingStatusPending, BookingStatusConfirmed:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusUnknown   PaymentStatus = ""
	PaymentStatusInitiated PaymentStatus = "initiated"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// ParsePaymentStatus maps a stored string onto the closed payment status set.
func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	switch s := PaymentStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case PaymentStatusInitiated, PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusRefunded:
		return s, true
	}
	return PaymentStatusUnknown, false
}

type BookingMode string

const (
	BookingModeRequest BookingMode = "request"
	BookingModeInstant BookingMode = "instant"
)

func ParseBookingMode(raw string) (BookingMode, bool) {
	switch m := BookingMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case BookingModeRequest, BookingModeInstant:
		return m, true
	}
	return "", false
}

// ShortletBooking is a short-stay reservation over the half-open night range [CheckIn, CheckOut).
type ShortletBooking struct {
	ID               string
	PropertyID       string
	GuestUserID      string
	HostUserID       string
	CheckIn          time.Time
	CheckOut         time.Time
	Nights           int
	Status           BookingStatus
	BookingMode      BookingMode
	Currency         string
	TotalAmountMinor int64
	PaymentReference string
	ExpiresAt        *time.Time
	RespondBy        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ShortletBlock is a host-created unavailable range. It blocks dates like a booking but carries no payment.
type ShortletBlock struct {
	ID         string
	PropertyID string
	DateFrom   time.Time
	DateTo     time.Time
	Reason     string
}

type ShortletPayment struct {
	ID                string
	BookingID         string
	Status            PaymentStatus
	ReferenceID       string
	ProviderIntentID  string
	ClientSecret      string
	AmountMinor       int64
	Currency          string
	AuthorizationCode string
	CustomerCode      string
	FailureReason     string
	PaidAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Property is the slice of a listing the booking engine reads.
type Property struct {
	ID          string
	HostUserID  string
	Timezone    string
	BookingMode BookingMode
}
