// Package reconcile re-verifies payments that stayed initiated, so a confirmation the client never
// reported and a webhook that never arrived still advance the booking.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/shortlet/libs/db"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/apperror"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/shortlet"
)

type Verifier interface {
	StalePayments(ctx context.Context, age time.Duration, limit int) ([]model.ShortletPayment, error)
	VerifyPayment(ctx context.Context, referenceID string) (shortlet.VerifyResult, error)
}

type Reconciler struct {
	pool        *db.Pool
	svc         Verifier
	logger      *slog.Logger
	batchSize   int
	minAge      time.Duration
	advisoryKey int64
}

type Config struct {
	BatchSize       int
	MinAge          time.Duration
	AdvisoryLockKey int64
}

func NewReconciler(pool *db.Pool, svc Verifier, logger *slog.Logger, cfg Config) *Reconciler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = 2 * time.Minute
	}
	if cfg.AdvisoryLockKey == 0 {
		cfg.AdvisoryLockKey = 4242101
	}
	return &Reconciler{
		pool:        pool,
		svc:         svc,
		logger:      logger,
		batchSize:   cfg.BatchSize,
		minAge:      cfg.MinAge,
		advisoryKey: cfg.AdvisoryLockKey,
	}
}

// Run reconciles on every tick once this instance holds the advisory lock.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	release, ok := r.acquireLeadership(ctx)
	if !ok {
		return
	}
	defer release()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.reconcileOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcileOnce(ctx)
		}
	}
}

// acquireLeadership blocks until the advisory lock is held or ctx ends. Session-level advisory
// locks belong to a connection, so one is held out of the pool for the leader's lifetime.
func (r *Reconciler) acquireLeadership(ctx context.Context) (func(), bool) {
	for {
		if ctx.Err() != nil {
			return nil, false
		}
		conn, err := r.pool.Acquire(ctx)
		if err != nil {
			r.logger.Error("payment reconcile: acquire connection failed", "err", err)
			if !sleep(ctx, 5*time.Second) {
				return nil, false
			}
			continue
		}
		var locked bool
		if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, r.advisoryKey).Scan(&locked); err != nil {
			conn.Release()
			r.logger.Error("payment reconcile: failed to acquire advisory lock", "err", err)
			if !sleep(ctx, 5*time.Second) {
				return nil, false
			}
			continue
		}
		if !locked {
			conn.Release()
			r.logger.Info("payment reconcile: advisory lock held by another instance", "lock_key", r.advisoryKey)
			if !sleep(ctx, 30*time.Second) {
				return nil, false
			}
			continue
		}
		r.logger.Info("payment reconcile: advisory lock acquired", "lock_key", r.advisoryKey)
		return func() {
			_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, r.advisoryKey)
			conn.Release()
		}, true
	}
}

func (r *Reconciler) reconcileOnce(ctx context.Context) (applied, failed int) {
	stale, err := r.svc.StalePayments(ctx, r.minAge, r.batchSize)
	if err != nil {
		r.logger.Error("payment reconcile: list stale payments failed", "err", err)
		return 0, 0
	}
	for _, p := range stale {
		if ctx.Err() != nil {
			return applied, failed
		}
		res, err := r.svc.VerifyPayment(ctx, p.ReferenceID)
		switch {
		case apperror.Is(err, apperror.KindMismatch):
			applied++
			r.logger.Warn("payment reconcile: mismatch flagged for review", "reference", p.ReferenceID, "err", err)
		case err != nil:
			failed++
			r.logger.Warn("payment reconcile: verify failed", "reference", p.ReferenceID, "err", err)
		case res.Outcome.Applied:
			applied++
			r.logger.Info("payment reconcile: payment settled",
				"reference", p.ReferenceID,
				"payment_status", res.Payment.Status,
				"booking_status", res.Booking.Status,
			)
		}
	}
	return applied, failed
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
