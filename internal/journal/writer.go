package journal

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/example/court-scheduler/internal/booking"
	"go.uber.org/zap"
)

// Writer is a booking.Sink that persists outcomes off the caller's
// goroutine. When its buffer is full, outcomes are dropped and counted.
type Writer struct {
	store   Store
	ch      chan Entry
	log     *zap.Logger
	dropped atomic.Int64
}

var _ booking.Sink = (*Writer)(nil)

func NewWriter(store Store, buffer int, log *zap.Logger) *Writer {
	if buffer <= 0 {
		buffer = 128
	}
	return &Writer{store: store, ch: make(chan Entry, buffer), log: log}
}

func (w *Writer) Record(o booking.Outcome) {
	select {
	case w.ch <- FromOutcome(o):
	default:
		w.dropped.Add(1)
		w.log.Warn("journal full, dropping outcome",
			zap.String("account", o.AccountID), zap.Stringer("result", o.Result))
	}
}

func (w *Writer) Dropped() int64 { return w.dropped.Load() }

// Run writes entries until ctx is done, then flushes what is buffered.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case e := <-w.ch:
			w.write(ctx, e)
		case <-ctx.Done():
			w.flush()
			return ctx.Err()
		}
	}
}

func (w *Writer) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case e := <-w.ch:
			w.write(ctx, e)
		default:
			return
		}
	}
}

func (w *Writer) write(ctx context.Context, e Entry) {
	if err := w.store.Insert(ctx, e); err != nil {
		w.log.Error("journal insert failed", zap.String("account", e.AccountID), zap.Error(err))
	}
}
