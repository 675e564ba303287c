/*
scheduler.go - Background cache refresh scheduler

PURPOSE:
  Periodically reloads the read cache from the store so long-running
  deployments converge even if a write path ever skips its cache patch
  or the database is modified out of band.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each tick performs one full cache refresh
  - Refresh failures are logged and retried on the next tick

CONFIGURATION:
  - Interval: How often to refresh (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRefreshScheduler(cache)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - cache/cache.go: Refresh coalescing and failure semantics
  - handlers.go: Refresh endpoint (manual refresh)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/logia/treasury-engine/cache"
)

// RefreshScheduler keeps the read cache periodically synchronized
// with the store.
type RefreshScheduler struct {
	Cache    *cache.Cache
	Interval time.Duration
	Enabled  bool

	ticker  *time.Ticker
	stop    chan bool
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastRun time.Time
}

// NewRefreshScheduler creates a new scheduler.
func NewRefreshScheduler(c *cache.Cache) *RefreshScheduler {
	return &RefreshScheduler{
		Cache:    c,
		Interval: 1 * time.Hour,
		Enabled:  true,
		stop:     make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RefreshScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.Interval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Scheduler] Started with refresh interval: %v", rs.Interval)
}

// Stop stops the scheduler.
func (rs *RefreshScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *RefreshScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.refresh()

	for {
		select {
		case <-rs.ticker.C:
			rs.refresh()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RefreshScheduler) refresh() {
	rs.mu.Lock()
	rs.lastRun = time.Now()
	rs.mu.Unlock()

	if err := rs.Cache.Refresh(context.Background()); err != nil {
		log.Printf("[Scheduler] Refresh failed: %v", err)
		return
	}
	log.Println("[Scheduler] Cache refreshed")
}

// RunNow triggers an immediate refresh outside the regular schedule.
func (rs *RefreshScheduler) RunNow() {
	rs.refresh()
}

// GetNextRunTime returns when the next scheduled refresh will occur.
func (rs *RefreshScheduler) GetNextRunTime() time.Time {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.lastRun.IsZero() {
		return time.Now()
	}
	return rs.lastRun.Add(rs.Interval)
}
