// Package scheduler runs the periodic recompute trigger.
package scheduler

import (
	"context"
	"time"
)

// Ticker invokes a job on a fixed interval until stopped. The first run
// fires immediately; the batch itself stays idempotent, so overlapping
// triggers are prevented simply by running the job synchronously.
type Ticker struct {
	interval time.Duration
	stop     chan struct{}
}

// NewTicker builds a scheduler with the given interval.
func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{interval: interval}
}

// Start begins ticking. Calling Start twice without Stop is a no-op.
func (t *Ticker) Start(ctx context.Context, job func(time.Time)) {
	if job == nil || t.stop != nil {
		return
	}

	stop := make(chan struct{})
	t.stop = stop
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case now := <-ticker.C:
				job(now)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts the ticker goroutine.
func (t *Ticker) Stop() {
	if t.stop == nil {
		return
	}
	close(t.stop)
	t.stop = nil
}
