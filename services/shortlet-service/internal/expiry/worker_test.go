package expiry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/storage"
)

type fakeAdvancer struct {
	pending map[storage.DueKind]int
	fail    map[storage.DueKind]error
	calls   map[storage.DueKind]int
}

func (f *fakeAdvancer) AdvanceDue(_ context.Context, kind storage.DueKind, limit int) (int, error) {
	f.calls[kind]++
	if err := f.fail[kind]; err != nil {
		return 0, err
	}
	n := f.pending[kind]
	if n > limit {
		n = limit
	}
	f.pending[kind] -= n
	return n, nil
}

func TestSweepDrainsInBatches(t *testing.T) {
	f := &fakeAdvancer{
		pending: map[storage.DueKind]int{storage.DuePaymentWindow: 25, storage.DueStayEnded: 3},
		fail:    map[storage.DueKind]error{storage.DueHostResponse: errors.New("db down")},
		calls:   map[storage.DueKind]int{},
	}
	w := NewWorker(f, slog.New(slog.NewTextHandler(io.Discard, nil)), WorkerConfig{BatchSize: 10})
	w.sweep(context.Background())

	if f.pending[storage.DuePaymentWindow] != 0 {
		t.Fatalf("payment window not drained: %d left", f.pending[storage.DuePaymentWindow])
	}
	if f.calls[storage.DuePaymentWindow] != 3 {
		t.Fatalf("expected 3 batches, got %d", f.calls[storage.DuePaymentWindow])
	}
	if f.calls[storage.DueHostResponse] != 1 {
		t.Fatalf("failing kind should be tried once, got %d", f.calls[storage.DueHostResponse])
	}
	if f.pending[storage.DueStayEnded] != 0 {
		t.Fatalf("later kinds must still run after a failure")
	}
}
