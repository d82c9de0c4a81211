package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/shortlet/libs/config"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/polling"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Sends a signed payment_intent webhook to a local shortlet-service, for exercising the payment
// path without a Stripe account. With -poll it then follows the booking the way a checkout page
// would until the status settles.
func main() {
	var (
		baseURL  = flag.String("base-url", config.String("BASE_URL", "http://localhost:8090"), "shortlet-service base url")
		evtType  = flag.String("type", config.String("STRIPE_EVENT_TYPE", "payment_intent.succeeded"), "payment_intent.succeeded | payment_intent.payment_failed | payment_intent.canceled")
		intentID = flag.String("intent", config.String("PAYMENT_INTENT_ID", ""), "payment intent id stored on the payment (pi_...)")
		amount   = flag.Int64("amount", config.Int64("AMOUNT_MINOR", 0), "amount in minor units")
		currency = flag.String("currency", config.String("CURRENCY", "ngn"), "ISO currency")
		secret   = flag.String("secret", config.String("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
		poll     = flag.Bool("poll", config.Bool("POLL", false), "poll the booking status after sending")
		booking  = flag.String("booking", config.String("BOOKING_ID", ""), "booking id to poll")
		timeout  = flag.Duration("poll-timeout", config.Duration("POLL_TIMEOUT", polling.DefaultTimeout), "polling timeout")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*intentID) == "" || *amount <= 0 {
		fatal("intent and a positive amount are required")
	}
	if *poll && strings.TrimSpace(*booking) == "" {
		fatal("booking is required with -poll")
	}
	base := strings.TrimRight(*baseURL, "/")

	now := time.Now().UTC()
	payload, err := buildEventJSON(fmt.Sprintf("evt_test_%d", now.UnixNano()), *evtType, now, *intentID, *amount, *currency)
	if err != nil {
		fatal(err.Error())
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    *secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, base+"/api/v1/shortlets/webhooks/stripe", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	fmt.Printf("status=%d body=%s\n", resp.StatusCode, strings.TrimSpace(string(body)))

	if !*poll {
		return
	}
	poller := polling.NewPoller(*timeout)
	started := time.Now()
	res, err := poller.Run(context.Background(), func(ctx context.Context) (polling.Snapshot, error) {
		return fetchStatus(ctx, base, *booking, time.Since(started), *timeout)
	})
	if err != nil {
		fatal(err.Error())
	}
	fmt.Printf("booking=%s payment=%s state=%s attempts=%d elapsed=%s timed_out=%t\n",
		res.Snapshot.Booking, res.Snapshot.Payment, res.State, res.Attempts, res.Elapsed.Round(time.Millisecond), res.TimedOut)
}

// fetchStatus reads one status view, passing the client's elapsed time so the service applies
// the same timeout.
func fetchStatus(ctx context.Context, base, bookingID string, elapsed, timeout time.Duration) (polling.Snapshot, error) {
	q := url.Values{}
	q.Set("booking_id", bookingID)
	q.Set("elapsed_ms", strconv.FormatInt(elapsed.Milliseconds(), 10))
	q.Set("timeout_ms", strconv.FormatInt(timeout.Milliseconds(), 10))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/shortlets/bookings/status?"+q.Encode(), nil)
	if err != nil {
		return polling.Snapshot{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return polling.Snapshot{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return polling.Snapshot{}, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var view struct {
		BookingStatus string `json:"booking_status"`
		PaymentStatus string `json:"payment_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return polling.Snapshot{}, err
	}
	bs, _ := model.ParseBookingStatus(view.BookingStatus)
	ps, _ := model.ParsePaymentStatus(view.PaymentStatus)
	return polling.Snapshot{Booking: bs, Payment: ps}, nil
}

func buildEventJSON(eventID, eventType string, t time.Time, intentID string, amount int64, currency string) ([]byte, error) {
	intent := map[string]any{
		"id":       intentID,
		"object":   "payment_intent",
		"amount":   amount,
		"currency": strings.ToLower(currency),
		"created":  t.Unix(),
	}
	switch eventType {
	case "payment_intent.succeeded":
		intent["status"] = "succeeded"
		intent["amount_received"] = amount
	case "payment_intent.payment_failed":
		intent["status"] = "requires_payment_method"
		intent["last_payment_error"] = map[string]any{
			"type":    "card_error",
			"code":    "card_declined",
			"message": "Your card was declined.",
		}
	case "payment_intent.canceled":
		intent["status"] = "canceled"
		intent["cancellation_reason"] = "abandoned"
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
	return json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"created":     t.Unix(),
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data":        map[string]any{"object": intent},
	})
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
