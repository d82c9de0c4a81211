// Package expiry moves bookings past their deadlines: unpaid holds and unanswered requests
// expire, confirmed stays complete after check-out.
package expiry

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/storage"
)

type Advancer interface {
	AdvanceDue(ctx context.Context, kind storage.DueKind, limit int) (int, error)
}

type Worker struct {
	svc       Advancer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
}

var kinds = []struct {
	kind storage.DueKind
	name string
}{
	{storage.DuePaymentWindow, "payment_window"},
	{storage.DueHostResponse, "host_response"},
	{storage.DueStayEnded, "stay_ended"},
}

func NewWorker(svc Advancer, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Worker{svc: svc, logger: logger, interval: cfg.Interval, batchSize: cfg.BatchSize}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep drains each deadline kind batch by batch. A failing kind is logged and the rest still run.
func (w *Worker) sweep(ctx context.Context) {
	for _, k := range kinds {
		total := 0
		for ctx.Err() == nil {
			n, err := w.svc.AdvanceDue(ctx, k.kind, w.batchSize)
			if err != nil {
				w.logger.Error("expiry batch failed", "kind", k.name, "err", err)
				break
			}
			total += n
			if n < w.batchSize {
				break
			}
		}
		if total > 0 {
			w.logger.Info("bookings advanced past deadline", "kind", k.name, "count", total)
		}
	}
}
