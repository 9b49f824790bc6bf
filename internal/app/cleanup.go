package app

import (
	"context"
	"log"
	"time"
)

// Sweeper runs the periodic expiry sweeps: stale quiz sessions and stale
// raffle draws. Both sweeps are idempotent and use the same deadline
// arithmetic as the lazy checks on the request path, so either path may fire
// first without double side effects.
type Sweeper struct {
	sessions SessionStore
	raffles  RaffleStore
	cfg      RaffleConfig
	now      func() time.Time
}

func NewSweeper(sessions SessionStore, raffles RaffleStore, cfg RaffleConfig) *Sweeper {
	return &Sweeper{sessions: sessions, raffles: raffles, cfg: cfg, now: time.Now}
}

// WithClock is test-only for deterministic timestamps.
func (w *Sweeper) WithClock(now func() time.Time) *Sweeper {
	w.now = now
	return w
}

// ExpireStaleSessions marks active sessions past their TTL as expired.
func (w *Sweeper) ExpireStaleSessions(ctx context.Context) (int, error) {
	return w.sessions.ExpireStale(ctx, w.now())
}

// VoidStaleDraws voids pending draws whose phone or question deadline lapsed.
func (w *Sweeper) VoidStaleDraws(ctx context.Context) (int, error) {
	return w.raffles.VoidStaleDraws(ctx, w.now(), w.cfg.PhoneTimeout, w.cfg.QuestionTimeout)
}

// Run sweeps on a fixed cadence until the context is canceled.
func (w *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *Sweeper) sweepOnce(ctx context.Context) {
	if n, err := w.ExpireStaleSessions(ctx); err != nil {
		log.Printf("session expiry sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("expired %d stale quiz sessions", n)
	}
	if n, err := w.VoidStaleDraws(ctx); err != nil {
		log.Printf("draw void sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("voided %d stale raffle draws", n)
	}
}
