// Package scheduler provides unified scheduler management using gocron v2.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"tally/internal/shared/biztime"
	"tally/internal/shared/goroutine"
	"tally/internal/shared/logger"
)

// SweepJob defines the interface for the daily anniversary reset sweep.
// Execute seeds fresh cycle rows for every user anchored on the given day
// and reports how many accesses were processed and how many failed.
type SweepJob interface {
	Execute(ctx context.Context, now time.Time) (processed, failed int, err error)
}

// SchedulerManager manages all scheduled jobs using gocron v2.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	// Track whether the scheduler has been started
	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a new SchedulerManager instance.
// It initializes gocron with the business timezone for cron expressions.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterAnniversarySweep registers the daily anniversary reset job at the
// configured hour in the business timezone. The sweep is warm-up only
// (the just-in-time reconciler guarantees correctness on its own), so a
// missed run is harmless and a catch-up run fires shortly after startup.
func (m *SchedulerManager) RegisterAnniversarySweep(sweep SweepJob, sweepHour int) error {
	if sweepHour < 0 || sweepHour > 23 {
		return fmt.Errorf("sweep hour must be in [0, 23], got %d", sweepHour)
	}

	_, err := m.scheduler.NewJob(
		gocron.CronJob(fmt.Sprintf("0 %d * * *", sweepHour), false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			m.runSweep(ctx, sweep)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("metering", "anniversary-reset"),
		gocron.WithName("anniversary-reset-sweep"),
	)
	if err != nil {
		return err
	}

	// Catch-up run so a deploy after the sweep hour still seeds today's rows.
	goroutine.SafeGo(m.logger, "anniversary-sweep-startup", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		m.runSweep(ctx, sweep)
	})

	m.logger.Infow("registered anniversary sweep job", "sweep_hour", sweepHour)
	return nil
}

func (m *SchedulerManager) runSweep(ctx context.Context, sweep SweepJob) {
	startTime := biztime.NowUTC()

	m.logger.Debugw("anniversary sweep started")

	processed, failed, err := sweep.Execute(ctx, startTime)
	if err != nil {
		m.logger.Errorw("anniversary sweep failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if processed > 0 || failed > 0 {
		m.logger.Infow("anniversary sweep completed",
			"processed", processed,
			"failed", failed,
			"duration", time.Since(startTime),
		)
	} else {
		m.logger.Debugw("no accesses to sweep",
			"duration", time.Since(startTime),
		)
	}
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler.
// It waits for all running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}
