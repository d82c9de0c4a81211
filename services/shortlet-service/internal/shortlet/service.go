// Package shortlet runs the booking and payment use cases against Postgres. Every state change is
// decided by the lifecycle package and written together with its outbox events in one transaction.
package shortlet

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/shortlet/libs/db"
	otelx "github.com/md-rashed-zaman/shortlet/libs/otel"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/apperror"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/availability"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/lifecycle"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/outbox"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/overlap"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/payments"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/polling"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Config struct {
	PaymentWindow      time.Duration
	HostResponseWindow time.Duration
	ViewingSlotMinutes int
}

type Service struct {
	tx        txRunner
	schedules scheduleStore
	bookings  bookingStore
	payments  paymentStore
	events    providerEventStore
	outbox    outboxStore
	provider  payments.Provider
	logger    *slog.Logger
	tracer    trace.Tracer
	cfg       Config
	now       func() time.Time
}

func NewService(pool *db.Pool, provider payments.Provider, logger *slog.Logger, cfg Config) *Service {
	if cfg.PaymentWindow <= 0 {
		cfg.PaymentWindow = 30 * time.Minute
	}
	if cfg.HostResponseWindow <= 0 {
		cfg.HostResponseWindow = 24 * time.Hour
	}
	if cfg.ViewingSlotMinutes <= 0 {
		cfg.ViewingSlotMinutes = availability.DefaultViewingSlotMinutes
	}
	return &Service{
		tx:        pool,
		schedules: storage.NewScheduleRepository(pool),
		bookings:  storage.NewBookingRepository(pool),
		payments:  storage.NewPaymentRepository(pool),
		events:    storage.NewProviderEventRepository(),
		outbox:    outbox.NewRepository(pool),
		provider:  provider,
		logger:    logger,
		tracer:    otelx.Tracer("shortlet-service"),
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Slots generates the viewing slots of one property for one local date.
func (s *Service) Slots(ctx context.Context, propertyID, date string, slotMinutes int) (availability.Day, error) {
	if err := validateID("property_id", propertyID); err != nil {
		return availability.Day{}, err
	}
	day, err := availability.ParseLocalDate(date)
	if err != nil {
		return availability.Day{}, err
	}
	if slotMinutes <= 0 {
		slotMinutes = s.cfg.ViewingSlotMinutes
	}
	sched, err := s.schedules.GetSchedule(ctx, propertyID, day, day)
	if err != nil {
		return availability.Day{}, notFound(err, "property %s not found", propertyID)
	}
	return availability.GenerateSlotsForDate(date, sched.Timezone, sched.Rules, sched.Exceptions, slotMinutes)
}

// ValidateViewing checks that every proposed instant is an offered slot of the property.
func (s *Service) ValidateViewing(ctx context.Context, propertyID string, instants []time.Time) ([]time.Time, error) {
	if err := validateID("property_id", propertyID); err != nil {
		return nil, err
	}
	if len(instants) < availability.MinPreferredTimes || len(instants) > availability.MaxPreferredTimes {
		return nil, apperror.Validation("between %d and %d preferred times are required",
			availability.MinPreferredTimes, availability.MaxPreferredTimes)
	}
	from, to := instants[0], instants[0]
	for _, in := range instants[1:] {
		if in.Before(from) {
			from = in
		}
		if in.After(to) {
			to = in
		}
	}
	// local dates are within a day of the UTC ones
	sched, err := s.schedules.GetSchedule(ctx, propertyID, from.AddDate(0, 0, -1), to.AddDate(0, 0, 1))
	if err != nil {
		return nil, notFound(err, "property %s not found", propertyID)
	}
	return availability.AssertPreferredTimesInAvailability(instants, sched.Timezone, sched.Rules, sched.Exceptions, s.cfg.ViewingSlotMinutes)
}

type CreateBookingInput struct {
	PropertyID       string
	GuestUserID      string
	CheckIn          string
	CheckOut         string
	Currency         string
	TotalAmountMinor int64
	IdempotencyKey   string
}

// CreateBooking holds the nights for the guest in pending_payment. The overlap check reads inside
// the inserting transaction after locking the property row; the exclusion constraint catches any
// writer that slips past it.
func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (model.ShortletBooking, bool, error) {
	ctx, span := s.tracer.Start(ctx, "shortlet.CreateBooking")
	defer span.End()

	if err := validateID("property_id", in.PropertyID); err != nil {
		return model.ShortletBooking{}, false, err
	}
	if err := validateID("guest_user_id", in.GuestUserID); err != nil {
		return model.ShortletBooking{}, false, err
	}
	rng, err := overlap.ParseDateRange(in.CheckIn, in.CheckOut)
	if err != nil {
		return model.ShortletBooking{}, false, err
	}
	currency, err := normalizeCurrency(in.Currency)
	if err != nil {
		return model.ShortletBooking{}, false, err
	}
	if in.TotalAmountMinor <= 0 {
		return model.ShortletBooking{}, false, apperror.Validation("total_amount_minor must be positive")
	}
	span.SetAttributes(attribute.String("property_id", in.PropertyID), attribute.String("range", rng.String()))

	var (
		booking model.ShortletBooking
		replay  bool
	)
	err = s.tx.InTx(ctx, func(tx pgx.Tx) error {
		prop, err := s.bookings.LockProperty(ctx, tx, in.PropertyID)
		if err != nil {
			return notFound(err, "property %s not found", in.PropertyID)
		}
		if prop.HostUserID == in.GuestUserID {
			return apperror.Validation("hosts cannot book their own property")
		}

		key := strings.TrimSpace(in.IdempotencyKey)
		if key != "" {
			rec, found, err := s.bookings.LockIdempotencyKey(ctx, tx, in.GuestUserID, key)
			if err != nil {
				return err
			}
			if found && rec.BookingID != "" {
				booking, err = s.bookings.GetForUpdate(ctx, tx, rec.BookingID)
				replay = true
				return err
			}
		}

		bookings, blocks, err := s.bookings.ListOverlapping(ctx, tx, prop.ID, rng, overlap.BlockingStatuses)
		if err != nil {
			return err
		}
		booked := overlap.FromBookings(bookings, overlap.BlockingStatuses)
		if err := overlap.EnsureAvailable(prop.ID, rng, booked, overlap.FromBlocks(blocks)); err != nil {
			return err
		}

		now := s.now()
		expires := now.Add(s.cfg.PaymentWindow)
		booking = model.ShortletBooking{
			PropertyID:       prop.ID,
			GuestUserID:      in.GuestUserID,
			HostUserID:       prop.HostUserID,
			CheckIn:          rng.Start,
			CheckOut:         rng.End,
			Nights:           rng.Nights(),
			Status:           model.BookingStatusPendingPayment,
			BookingMode:      prop.BookingMode,
			Currency:         currency,
			TotalAmountMinor: in.TotalAmountMinor,
			PaymentReference: "SLB-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")),
			ExpiresAt:        &expires,
		}
		if booking.BookingMode == "" {
			booking.BookingMode = model.BookingModeRequest
		}
		if err := s.bookings.Create(ctx, tx, &booking); err != nil {
			if storage.IsConflict(err) {
				return apperror.Unavailable("property %s is not available for %s", prop.ID, rng)
			}
			return err
		}

		evt, err := outbox.BookingCreated(booking, now)
		if err != nil {
			return err
		}
		if err := s.outbox.Insert(ctx, tx, evt); err != nil {
			return err
		}
		if key != "" {
			return s.bookings.FinalizeIdempotency(ctx, tx, in.GuestUserID, key, booking.ID, 201)
		}
		return nil
	})
	if err != nil {
		return model.ShortletBooking{}, false, err
	}
	if !replay {
		s.logger.Info("shortlet booking created",
			"booking_id", booking.ID,
			"property_id", booking.PropertyID,
			"check_in", in.CheckIn,
			"check_out", in.CheckOut,
			"mode", booking.BookingMode,
		)
	}
	return booking, replay, nil
}

// paymentNamespace seeds payment references derived from booking and attempt number.
var paymentNamespace = uuid.MustParse("7d0b1c52-4f7e-4d8a-9c1e-2b6f5a3e8d40")

// InitiatePayment returns the open payment attempt for the booking, creating one with the
// provider when there is none. The provider call happens outside any transaction. Its reference
// and idempotency key are derived from the booking and attempt number, so a retry after a failed
// insert gets the same intent back instead of a second one.
func (s *Service) InitiatePayment(ctx context.Context, bookingID string) (model.ShortletPayment, error) {
	if err := validateID("booking_id", bookingID); err != nil {
		return model.ShortletPayment{}, err
	}

	var (
		payment model.ShortletPayment
		attempt int
		open    bool
	)
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		booking, err := s.payableBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		existing, found, err := s.payments.FindInitiated(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if found {
			payment, open = existing, true
			return nil
		}
		n, err := s.payments.CountForBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		attempt = n + 1
		payment = model.ShortletPayment{
			BookingID:   booking.ID,
			Status:      model.PaymentStatusInitiated,
			ReferenceID: paymentReference(booking.ID, attempt),
			AmountMinor: booking.TotalAmountMinor,
			Currency:    booking.Currency,
		}
		return nil
	})
	if err != nil {
		return model.ShortletPayment{}, err
	}
	if open {
		return payment, nil
	}

	intent, err := s.provider.Initiate(ctx, payments.InitiateRequest{
		BookingID:      payment.BookingID,
		ReferenceID:    payment.ReferenceID,
		AmountMinor:    payment.AmountMinor,
		Currency:       payment.Currency,
		IdempotencyKey: "shortlet-payment-" + payment.BookingID + "-" + strconv.Itoa(attempt),
	})
	if err != nil {
		return model.ShortletPayment{}, err
	}
	payment.ProviderIntentID = intent.ID
	payment.ClientSecret = intent.ClientSecret

	err = s.tx.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.payableBooking(ctx, tx, bookingID); err != nil {
			return err
		}
		return s.payments.Create(ctx, tx, &payment)
	})
	if storage.IsDuplicate(err) {
		// a concurrent initiate stored the same attempt first
		return s.payments.Latest(ctx, bookingID)
	}
	if err != nil {
		return model.ShortletPayment{}, err
	}
	s.logger.Info("shortlet payment initiated",
		"booking_id", payment.BookingID,
		"reference", payment.ReferenceID,
		"attempt", attempt,
	)
	return payment, nil
}

// payableBooking locks the booking and checks it still accepts a payment.
func (s *Service) payableBooking(ctx context.Context, tx pgx.Tx, bookingID string) (model.ShortletBooking, error) {
	booking, err := s.bookings.GetForUpdate(ctx, tx, bookingID)
	if err != nil {
		return model.ShortletBooking{}, notFound(err, "booking %s not found", bookingID)
	}
	if booking.Status != model.BookingStatusPendingPayment {
		return model.ShortletBooking{}, apperror.IllegalTransition("booking is %s; payment is no longer accepted", booking.Status)
	}
	if booking.ExpiresAt != nil && !s.now().Before(*booking.ExpiresAt) {
		return model.ShortletBooking{}, apperror.Unavailable("payment window for booking %s has elapsed", bookingID)
	}
	return booking, nil
}

func paymentReference(bookingID string, attempt int) string {
	return uuid.NewSHA1(paymentNamespace, []byte(bookingID+"/"+strconv.Itoa(attempt))).String()
}

// VerifyResult is a reconciled booking and payment pair.
type VerifyResult struct {
	Booking model.ShortletBooking
	Payment model.ShortletPayment
	Outcome lifecycle.Outcome
}

// VerifyPayment asks the provider about reference and reconciles. A succeeded or refunded payment
// is reported from storage without a provider call or any write. A failed payment is asked about
// again because its intent may still be captured. A Mismatch error is returned together with the
// persisted result.
func (s *Service) VerifyPayment(ctx context.Context, referenceID string) (VerifyResult, error) {
	ctx, span := s.tracer.Start(ctx, "shortlet.VerifyPayment")
	defer span.End()

	referenceID = strings.TrimSpace(referenceID)
	if referenceID == "" {
		return VerifyResult{}, apperror.Validation("reference is required")
	}
	current, err := s.payments.GetByReference(ctx, referenceID)
	if err != nil {
		return VerifyResult{}, notFound(err, "payment %s not found", referenceID)
	}
	switch {
	case current.Status == model.PaymentStatusSucceeded, current.Status == model.PaymentStatusRefunded:
		return s.settled(ctx, current)
	case current.ProviderIntentID == "" && current.Status == model.PaymentStatusFailed:
		return s.settled(ctx, current)
	case current.ProviderIntentID == "":
		return VerifyResult{}, apperror.Validation("payment %s has no provider intent", referenceID)
	}

	res, err := s.provider.Verify(ctx, current.ProviderIntentID)
	if err != nil {
		return VerifyResult{}, err
	}

	var out VerifyResult
	var reconcileErr error
	err = s.tx.InTx(ctx, func(tx pgx.Tx) error {
		payment, err := s.payments.GetByReferenceForUpdate(ctx, tx, referenceID)
		if err != nil {
			return err
		}
		out, reconcileErr, err = s.reconcileLocked(ctx, tx, payment, res)
		return err
	})
	if err != nil {
		return VerifyResult{}, err
	}
	return out, reconcileErr
}

// ProviderNotification is a verified webhook delivery about one payment intent.
type ProviderNotification struct {
	Event    storage.ProviderEvent
	IntentID string
	Result   lifecycle.VerificationResult
}

// ApplyProviderNotification records the delivery and reconciles the intent's payment in the same
// transaction. duplicate is true for a redelivered event, which changes nothing.
func (s *Service) ApplyProviderNotification(ctx context.Context, n ProviderNotification) (out VerifyResult, duplicate bool, err error) {
	var reconcileErr error
	err = s.tx.InTx(ctx, func(tx pgx.Tx) error {
		if err := s.events.Insert(ctx, tx, n.Event); err != nil {
			if errors.Is(err, storage.ErrDuplicateProviderEvent) {
				duplicate = true
				return nil
			}
			return err
		}
		payment, err := s.payments.GetByIntentForUpdate(ctx, tx, n.IntentID)
		if err != nil {
			if storage.IsNotFound(err) {
				s.logger.Warn("provider event for unknown payment intent", "intent_id", n.IntentID, "provider_event_id", n.Event.ProviderEventID)
				return nil
			}
			return err
		}
		out, reconcileErr, err = s.reconcileLocked(ctx, tx, payment, n.Result)
		return err
	})
	if err != nil {
		return VerifyResult{}, false, err
	}
	return out, duplicate, reconcileErr
}

// reconcileLocked runs Reconcile for a payment row already locked by tx and persists the outcome.
// The second error is the Mismatch from Reconcile; the outcome is persisted regardless.
func (s *Service) reconcileLocked(ctx context.Context, tx pgx.Tx, payment model.ShortletPayment, res lifecycle.VerificationResult) (VerifyResult, error, error) {
	booking, err := s.bookings.GetForUpdate(ctx, tx, payment.BookingID)
	if err != nil {
		return VerifyResult{}, nil, err
	}
	outcome, reconcileErr := lifecycle.Reconcile(booking, payment, res, booking.BookingMode)
	if reconcileErr != nil && !apperror.Is(reconcileErr, apperror.KindMismatch) {
		return VerifyResult{}, nil, reconcileErr
	}
	if err := s.persistOutcome(ctx, tx, booking, payment, outcome); err != nil {
		return VerifyResult{}, nil, err
	}
	if outcome.NeedsReview {
		s.logger.Warn("payment needs review",
			"booking_id", booking.ID,
			"reference", payment.ReferenceID,
			"reason", outcome.Reason,
		)
	}
	return VerifyResult{Booking: outcome.Booking, Payment: outcome.Payment, Outcome: outcome}, reconcileErr, nil
}

func (s *Service) persistOutcome(ctx context.Context, tx pgx.Tx, booking model.ShortletBooking, payment model.ShortletPayment, out lifecycle.Outcome) error {
	if !out.Applied {
		return nil
	}
	now := s.now()
	if err := s.payments.ApplyResult(ctx, tx, out.Payment, payment.Status); err != nil {
		return err
	}
	if out.BookingChanged {
		if out.Booking.Status == model.BookingStatusPending {
			respondBy := now.Add(s.cfg.HostResponseWindow)
			out.Booking.RespondBy = &respondBy
		}
		if err := s.bookings.UpdateStatus(ctx, tx, &out.Booking, booking.Status); err != nil {
			return err
		}
		if err := s.emitStatusChange(ctx, tx, out.Booking, booking.Status, now); err != nil {
			return err
		}
	}

	evt, err := outbox.PaymentEvent(out.Payment, false, "", now)
	if err != nil {
		return err
	}
	if err := s.outbox.Insert(ctx, tx, evt); err != nil {
		return err
	}
	if out.NeedsReview {
		evt, err := outbox.PaymentEvent(out.Payment, true, out.Reason, now)
		if err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, evt)
	}
	return nil
}

func (s *Service) settled(ctx context.Context, payment model.ShortletPayment) (VerifyResult, error) {
	booking, err := s.bookings.Get(ctx, payment.BookingID)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{
		Booking: booking,
		Payment: payment,
		Outcome: lifecycle.Outcome{Booking: booking, Payment: payment, Reason: "payment already " + string(payment.Status)},
	}, nil
}

// Respond records the host's answer to a request booking.
func (s *Service) Respond(ctx context.Context, bookingID, hostUserID string, accept bool) (model.ShortletBooking, error) {
	ev := lifecycle.EventHostDeclined
	if accept {
		ev = lifecycle.EventHostAccepted
	}
	return s.transition(ctx, bookingID, ev, func(b model.ShortletBooking) error {
		if b.HostUserID != hostUserID {
			return apperror.NotFound("booking %s not found", bookingID)
		}
		return nil
	})
}

// Cancel cancels a pending or confirmed booking on behalf of its guest or host.
func (s *Service) Cancel(ctx context.Context, bookingID, actorUserID string) (model.ShortletBooking, error) {
	return s.transition(ctx, bookingID, lifecycle.EventCancelled, func(b model.ShortletBooking) error {
		if b.GuestUserID != actorUserID && b.HostUserID != actorUserID {
			return apperror.NotFound("booking %s not found", bookingID)
		}
		return nil
	})
}

func (s *Service) transition(ctx context.Context, bookingID string, ev lifecycle.Event, authorize func(model.ShortletBooking) error) (model.ShortletBooking, error) {
	if err := validateID("booking_id", bookingID); err != nil {
		return model.ShortletBooking{}, err
	}
	var updated model.ShortletBooking
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		b, err := s.bookings.GetForUpdate(ctx, tx, bookingID)
		if err != nil {
			return notFound(err, "booking %s not found", bookingID)
		}
		if err := authorize(b); err != nil {
			return err
		}
		updated, err = s.apply(ctx, tx, b, ev)
		return err
	})
	if err != nil {
		return model.ShortletBooking{}, err
	}
	s.logger.Info("shortlet booking transitioned", "booking_id", updated.ID, "event", ev, "status", updated.Status)
	return updated, nil
}

// apply moves a locked booking by ev and writes the change with its event.
func (s *Service) apply(ctx context.Context, tx pgx.Tx, b model.ShortletBooking, ev lifecycle.Event) (model.ShortletBooking, error) {
	next, err := lifecycle.NextBookingStatus(b.Status, ev, b.BookingMode)
	if err != nil {
		return model.ShortletBooking{}, err
	}
	from := b.Status
	b.Status = next
	b.ExpiresAt = nil
	b.RespondBy = nil
	if err := s.bookings.UpdateStatus(ctx, tx, &b, from); err != nil {
		return model.ShortletBooking{}, err
	}
	if err := s.emitStatusChange(ctx, tx, b, from, s.now()); err != nil {
		return model.ShortletBooking{}, err
	}
	return b, nil
}

func (s *Service) emitStatusChange(ctx context.Context, tx pgx.Tx, b model.ShortletBooking, from model.BookingStatus, at time.Time) error {
	evt, err := outbox.BookingStatusChanged(b, from, at)
	if err != nil {
		return err
	}
	return s.outbox.Insert(ctx, tx, evt)
}

var dueEvents = map[storage.DueKind]lifecycle.Event{
	storage.DuePaymentWindow: lifecycle.EventPaymentWindowElapsed,
	storage.DueHostResponse:  lifecycle.EventHostResponseElapsed,
	storage.DueStayEnded:     lifecycle.EventStayCompleted,
}

// AdvanceDue applies the deadline event of kind to up to limit overdue bookings.
func (s *Service) AdvanceDue(ctx context.Context, kind storage.DueKind, limit int) (int, error) {
	ev, ok := dueEvents[kind]
	if !ok {
		return 0, apperror.Validation("unknown deadline kind %d", kind)
	}
	var n int
	err := s.tx.InTx(ctx, func(tx pgx.Tx) error {
		due, err := s.bookings.ListDue(ctx, tx, kind, s.now(), limit)
		if err != nil {
			return err
		}
		for _, b := range due {
			if _, err := s.apply(ctx, tx, b, ev); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// StalePayments lists initiated payments older than age, for re-verification.
func (s *Service) StalePayments(ctx context.Context, age time.Duration, limit int) ([]model.ShortletPayment, error) {
	return s.payments.ListStaleInitiated(ctx, s.now().Add(-age), limit)
}

// StatusView is what a polling client sees.
type StatusView struct {
	Booking       model.ShortletBooking
	PaymentStatus model.PaymentStatus
	Action        polling.Action
	State         polling.State
}

func (s *Service) Status(ctx context.Context, bookingID string, elapsed, timeout time.Duration) (StatusView, error) {
	if err := validateID("booking_id", bookingID); err != nil {
		return StatusView{}, err
	}
	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return StatusView{}, notFound(err, "booking %s not found", bookingID)
	}
	paymentStatus := model.PaymentStatusUnknown
	payment, err := s.payments.Latest(ctx, bookingID)
	switch {
	case err == nil:
		paymentStatus = payment.Status
	case !storage.IsNotFound(err):
		return StatusView{}, err
	}
	return BuildStatusView(booking, paymentStatus, elapsed, timeout), nil
}

func BuildStatusView(booking model.ShortletBooking, payment model.PaymentStatus, elapsed, timeout time.Duration) StatusView {
	return StatusView{
		Booking:       booking,
		PaymentStatus: payment,
		Action:        polling.ResolvePollingAction(booking.Status, payment, elapsed, timeout),
		State:         polling.UIState(booking.Status, payment),
	}
}

func validateID(field, id string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return apperror.Validation("%s must be a uuid", field)
	}
	return nil
}

func normalizeCurrency(raw string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(raw))
	if len(c) != 3 {
		return "", apperror.Validation("currency must be a 3-letter ISO code")
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", apperror.Validation("currency must be a 3-letter ISO code")
		}
	}
	return c, nil
}

func notFound(err error, format string, args ...any) error {
	if storage.IsNotFound(err) {
		return apperror.NotFound(format, args...)
	}
	return err
}
