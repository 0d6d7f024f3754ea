package store

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically expires timed-out delivered notifications. A
// notification can time out with no further events arriving, so the sweep
// runs on its own ticker independent of the transport.
type Sweeper struct {
	store    *Service
	interval time.Duration
}

// NewSweeper creates a sweeper. Interval defaults to 30s.
func NewSweeper(s *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{store: s, interval: interval}
}

// Run starts the sweep loop. Blocks until the context is cancelled.
func (w *Sweeper) Run(ctx context.Context) error {
	slog.Info("Sweeper started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sweeper stopped")
			return ctx.Err()
		case t := <-ticker.C:
			w.sweep(t)
		}
	}
}

func (w *Sweeper) sweep(now time.Time) {
	ids, err := w.store.SweepExpired(now)
	if err != nil {
		slog.Error("Sweep failed", "error", err)
		return
	}
	if len(ids) > 0 {
		slog.Info("Notifications expired", "count", len(ids))
	}
}
