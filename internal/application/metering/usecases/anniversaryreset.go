package usecases

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/domain/metering"
	"tally/internal/shared/biztime"
	"tally/internal/shared/logger"
)

const defaultSweepConcurrency = 8

// AnniversaryResetResult summarizes one sweep run.
type AnniversaryResetResult struct {
	AnchorDays []int
	Processed  int
	Failed     int
}

// AnniversaryResetUseCase seeds fresh cycle rows for every anchored-plan
// user whose anniversary day is today. The sweep is warm-up only: the
// just-in-time reconciler produces the same rows, so a missed or repeated
// run changes nothing. One user's failure never aborts the batch.
type AnniversaryResetUseCase struct {
	accessRepo  metering.UserAccessRepository
	planRepo    metering.PlanRepository
	usageRepo   metering.UsageCycleRepository
	cache       UsageCacheManager
	logger      logger.Interface
	concurrency int
}

func NewAnniversaryResetUseCase(
	accessRepo metering.UserAccessRepository,
	planRepo metering.PlanRepository,
	usageRepo metering.UsageCycleRepository,
	cache UsageCacheManager,
	logger logger.Interface,
	concurrency int,
) *AnniversaryResetUseCase {
	if concurrency <= 0 {
		concurrency = defaultSweepConcurrency
	}
	return &AnniversaryResetUseCase{
		accessRepo:  accessRepo,
		planRepo:    planRepo,
		usageRepo:   usageRepo,
		cache:       cache,
		logger:      logger,
		concurrency: concurrency,
	}
}

func (uc *AnniversaryResetUseCase) Execute(ctx context.Context, now time.Time) (*AnniversaryResetResult, error) {
	anchorDays := sweepAnchorDays(now)

	uc.logger.Infow("starting anniversary reset sweep",
		"date", biztime.FormatInBizTimezone(now, "2006-01-02"),
		"anchor_days", anchorDays,
	)

	var accesses []*metering.UserAccess
	for _, day := range anchorDays {
		dayAccesses, err := uc.accessRepo.ListForAnniversary(ctx, day, now)
		if err != nil {
			return nil, fmt.Errorf("failed to list accesses for anchor day %d: %w", day, err)
		}
		accesses = append(accesses, dayAccesses...)
	}

	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)

	for _, access := range accesses {
		access := access
		g.Go(func() error {
			if err := uc.resetUser(gctx, access, now); err != nil {
				failed.Add(1)
				uc.logger.Errorw("anniversary reset failed for user",
					"error", err,
					"user_id", access.UserID(),
					"access_id", access.ID(),
				)
			}
			// Item failures are isolated; only a context cancellation
			// stops the sweep.
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("anniversary sweep interrupted: %w", err)
	}

	result := &AnniversaryResetResult{
		AnchorDays: anchorDays,
		Processed:  len(accesses),
		Failed:     int(failed.Load()),
	}

	uc.logger.Infow("anniversary reset sweep completed",
		"processed", result.Processed,
		"failed", result.Failed,
	)

	return result, nil
}

func (uc *AnniversaryResetUseCase) resetUser(ctx context.Context, access *metering.UserAccess, now time.Time) error {
	plan, err := uc.planRepo.GetByID(ctx, access.PlanID())
	if err != nil {
		return fmt.Errorf("failed to get plan %d: %w", access.PlanID(), err)
	}
	if plan == nil {
		return fmt.Errorf("plan %d missing", access.PlanID())
	}

	window := metering.CurrentCycleWindow(plan.BillingCycle(), access, now)

	for feature := range plan.Quotas() {
		fresh, err := metering.NewUsageCycle(access.UserID(), feature, window.Start, window.End)
		if err != nil {
			return fmt.Errorf("failed to build cycle for %s: %w", feature, err)
		}
		if _, err := uc.usageRepo.CreateCycle(ctx, fresh); err != nil {
			return fmt.Errorf("failed to seed cycle for %s: %w", feature, err)
		}
	}

	if err := uc.cache.InvalidateUser(ctx, access.UserID()); err != nil {
		uc.logger.Warnw("failed to invalidate user summaries after reset",
			"error", err, "user_id", access.UserID())
	}

	return nil
}

// sweepAnchorDays returns today's day-of-month plus, on the last day of a
// short month, every phantom day through 31. A user anchored on the 31st
// still resets in February.
func sweepAnchorDays(now time.Time) []int {
	day := biztime.DayOfMonth(now)
	days := []int{day}
	if day == biztime.DaysInMonth(now) {
		for phantom := day + 1; phantom <= 31; phantom++ {
			days = append(days, phantom)
		}
	}
	return days
}
