// Package cleanup runs the periodic token reaper.
package cleanup

import (
	"context"
	"log"
	"time"
)

// Reaper is the slice of the session service the worker needs.
type Reaper interface {
	CleanupExpired(ctx context.Context) error
}

// Worker ticks in the background and reaps expired refresh-token records and
// stale revocation entries. Failures are logged and swallowed; housekeeping
// never takes the process down.
type Worker struct {
	reaper   Reaper
	interval time.Duration
}

func NewWorker(reaper Reaper, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{reaper: reaper, interval: interval}
}

// Start runs one immediate pass and then ticks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		log.Println("[CLEANUP] Background worker started")
		w.run(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("[CLEANUP] Background worker stopped")
				return
			case <-ticker.C:
				w.run(ctx)
			}
		}
	}()
}

func (w *Worker) run(ctx context.Context) {
	if err := w.reaper.CleanupExpired(ctx); err != nil {
		log.Printf("[CLEANUP] Error cleaning up expired tokens: %v", err)
	}
}
