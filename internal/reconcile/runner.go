package reconcile

import (
	"context"
	"log"
	"time"
)

// PassLock guards a pass when several monitor instances share the same
// site. Acquire reports false when another holder owns the lock.
type PassLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Runner schedules reconciliation passes on a fixed interval. Passes
// run sequentially on one goroutine, so a slow pass delays the next
// instead of overlapping it.
type Runner struct {
	driver   *Driver
	interval time.Duration
	lock     PassLock
}

func NewRunner(driver *Driver, interval time.Duration, lock PassLock) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{driver: driver, interval: interval, lock: lock}
}

// Run executes passes until the context is cancelled. The first pass
// starts immediately.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if r.lock != nil {
		held, err := r.lock.Acquire(ctx)
		if err != nil {
			log.Printf("reconcile: acquire pass lock: %v", err)
			return
		}
		if !held {
			log.Printf("reconcile: another instance holds the pass lock, skipping")
			return
		}
		defer func() {
			if err := r.lock.Release(ctx); err != nil {
				log.Printf("reconcile: release pass lock: %v", err)
			}
		}()
	}

	summary, err := r.driver.RunPass(ctx)
	if err != nil {
		log.Printf("reconcile: pass failed: %v", err)
		return
	}
	if summary.Done > 0 || summary.Skipped > 0 {
		log.Printf("reconcile: pass finished done=%d skipped=%d pending=%d", summary.Done, summary.Skipped, summary.Pending)
	}
}
