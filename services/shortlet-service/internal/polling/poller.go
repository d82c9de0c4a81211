package polling

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
)

// Snapshot is one observation of a booking and its payment.
type Snapshot struct {
	Booking model.BookingStatus
	Payment model.PaymentStatus
}

type FetchFunc func(ctx context.Context) (Snapshot, error)

type Result struct {
	Snapshot Snapshot
	State    State
	Attempts int
	Elapsed  time.Duration
	TimedOut bool
}

// Poller drives a FetchFunc until ResolvePollingAction says stop. It keeps no state between Run
// calls; cancelling ctx is the only way to stop it early.
type Poller struct {
	Timeout         time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	FinalWait       time.Duration

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func NewPoller(timeout time.Duration) *Poller {
	return &Poller{
		Timeout:         timeout,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		FinalWait:       2 * time.Second,
	}
}

// Run polls until a stop. Fetch errors are retried with the same backoff; if no snapshot was ever
// observed by the timeout the last fetch error is returned.
func (p *Poller) Run(ctx context.Context, fetch FetchFunc) (Result, error) {
	now := p.now
	if now == nil {
		now = time.Now
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = 1.5
	b.Reset()

	start := now()
	var (
		res     Result
		seen    bool
		lastErr error
	)
	for {
		snap, err := fetch(ctx)
		res.Attempts++
		res.Elapsed = now().Sub(start)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			lastErr = err
			if res.Elapsed >= p.timeout() {
				res.TimedOut = true
				if !seen {
					return res, lastErr
				}
				return res, nil
			}
		} else {
			seen = true
			res.Snapshot = snap
			res.State = UIState(snap.Booking, snap.Payment)

			switch ResolvePollingAction(snap.Booking, snap.Payment, res.Elapsed, p.timeout()) {
			case ActionStop:
				res.TimedOut = res.Elapsed >= p.timeout()
				return res, nil
			case ActionFinalFetch:
				res.TimedOut = true
				return p.finalFetch(ctx, fetch, sleep, res)
			}
		}

		d := b.NextBackOff()
		if d == backoff.Stop {
			d = p.MaxInterval
		}
		if err := sleep(ctx, d); err != nil {
			return res, err
		}
	}
}

func (p *Poller) finalFetch(ctx context.Context, fetch FetchFunc, sleep func(context.Context, time.Duration) error, res Result) (Result, error) {
	snap, err := fetch(ctx)
	res.Attempts++
	if err == nil {
		res.Snapshot = snap
		res.State = UIState(snap.Booking, snap.Payment)
	}
	if res.State == StateFinalising && p.FinalWait > 0 {
		if err := sleep(ctx, p.FinalWait); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (p *Poller) timeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultTimeout
	}
	return p.Timeout
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
