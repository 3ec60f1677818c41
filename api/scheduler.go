/*
scheduler.go - Automated rollover scheduler

PURPOSE:
  Periodically checks whether the annual rollover for the current year is
  still outstanding and runs it automatically. In January the previous
  year's unused entitlement rolls into carryover without anyone having to
  hit the admin endpoint.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Delegates to RolloverExecutor, which is idempotent: the policy marker
    and the per-employee audit guard make repeat checks harmless
  - Skips silently while the rollover for the year has already run

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRolloverScheduler(store, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRollover endpoint (manual rollover)
  - entitlement/rollover.go: RolloverExecutor
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/retailhr/vacation-engine/entitlement"
)

// RolloverScheduler handles automated year-end rollover.
type RolloverScheduler struct {
	Executor      *entitlement.RolloverExecutor
	Log           *logrus.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRolloverScheduler creates a new scheduler.
func NewRolloverScheduler(store entitlement.Store, log *logrus.Logger) *RolloverScheduler {
	return &RolloverScheduler{
		Executor:      entitlement.NewRolloverExecutor(store, log),
		Log:           log,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *RolloverScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Log.Info("Rollover scheduler disabled, not starting")
		return
	}

	if rs.CheckInterval <= 0 {
		rs.Log.WithField("interval", rs.CheckInterval).Warn("Invalid scheduler interval, falling back to 1h")
		rs.CheckInterval = 1 * time.Hour
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	rs.Log.WithField("interval", rs.CheckInterval).Info("Rollover scheduler started")
}

// Stop stops the scheduler.
func (rs *RolloverScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.Log.Info("Rollover scheduler stopped")
	}
}

func (rs *RolloverScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndProcess()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndProcess()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RolloverScheduler) checkAndProcess() {
	ctx := context.Background()
	// Close the year that just ended; the executor guards against re-runs.
	year := time.Now().UTC().Year() - 1

	result, err := rs.Executor.Execute(ctx, entitlement.RolloverInput{
		TargetYear: year,
		Actor:      "scheduler",
	})
	if err != nil {
		rs.Log.WithError(err).WithField("year", year).Error("Scheduled rollover failed")
		return
	}
	if result.Skipped {
		return
	}

	rs.Log.WithFields(logrus.Fields{
		"year":       result.Year,
		"updated":    result.UpdatedEmployees,
		"total_days": result.TotalAddedDays.String(),
		"errors":     len(result.Errors),
	}).Info("Scheduled rollover completed")
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *RolloverScheduler) RunNow() {
	rs.checkAndProcess()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (rs *RolloverScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(rs.CheckInterval)
}
