package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tally/internal/domain/metering"
	vo "tally/internal/domain/metering/valueobjects"
	"tally/internal/shared/logger"
)

// CycleState is the reconciled view of one user/feature pair: the access,
// its plan, the quota, and a usage row guaranteed to cover the current
// cycle window.
type CycleState struct {
	Access *metering.UserAccess
	Plan   *metering.Plan
	Row    *metering.UsageCycle
	Quota  int64
}

// EnsureCurrentCycleUseCase reconciles the usage ledger just in time: it
// loads the active row for a user/feature and, when the newest row belongs
// to an elapsed window, inserts a fresh zeroed row for the current window.
// A user with no ledger rows at all was never seeded and is reported as not
// provisioned rather than silently self-provisioned. No scheduler is needed
// for correctness; the daily sweep only keeps anchored rows warm.
type EnsureCurrentCycleUseCase struct {
	accessRepo metering.UserAccessRepository
	planRepo   metering.PlanRepository
	usageRepo  metering.UsageCycleRepository
	logger     logger.Interface
}

func NewEnsureCurrentCycleUseCase(
	accessRepo metering.UserAccessRepository,
	planRepo metering.PlanRepository,
	usageRepo metering.UsageCycleRepository,
	logger logger.Interface,
) *EnsureCurrentCycleUseCase {
	return &EnsureCurrentCycleUseCase{
		accessRepo: accessRepo,
		planRepo:   planRepo,
		usageRepo:  usageRepo,
		logger:     logger,
	}
}

func (uc *EnsureCurrentCycleUseCase) Execute(ctx context.Context, userID uint, feature vo.FeatureKey, now time.Time) (*CycleState, error) {
	access, err := uc.accessRepo.GetByUserID(ctx, userID)
	if err != nil {
		uc.logger.Errorw("failed to get user access", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to get user access: %w", err)
	}
	if access == nil {
		return nil, metering.ErrNotProvisionedFor(userID, "no access row")
	}
	if access.IsExpired(now) {
		return nil, metering.ErrNotProvisionedFor(userID, "access expired")
	}

	plan, err := uc.planRepo.GetByID(ctx, access.PlanID())
	if err != nil {
		uc.logger.Errorw("failed to get plan", "error", err, "plan_id", access.PlanID())
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if plan == nil {
		return nil, metering.ErrNotProvisionedFor(userID, fmt.Sprintf("plan %d missing", access.PlanID()))
	}

	quota, err := plan.QuotaFor(feature)
	if err != nil {
		return nil, err
	}

	row, err := uc.usageRepo.GetActive(ctx, userID, feature, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get active usage cycle: %w", err)
	}
	if row == nil {
		// No row covers now. The newest ledger row decides whether this user
		// was never seeded (an integrity bug, surfaced as not provisioned) or
		// the window has merely elapsed.
		row, err = uc.usageRepo.GetLatest(ctx, userID, feature)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest usage cycle: %w", err)
		}
	}

	resolved, resolveErr := metering.ResolveActiveCycle(plan.BillingCycle(), access, row, now)
	if resolveErr == nil {
		return &CycleState{Access: access, Plan: plan, Row: resolved, Quota: quota}, nil
	}
	if !errors.Is(resolveErr, metering.ErrCycleStale) {
		return nil, resolveErr
	}
	// Stale row: fall through and roll the cycle forward.

	window := metering.CurrentCycleWindow(plan.BillingCycle(), access, now)
	fresh, err := metering.NewUsageCycle(userID, feature, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to build usage cycle: %w", err)
	}

	created, err := uc.usageRepo.CreateCycle(ctx, fresh)
	if err != nil {
		uc.logger.Errorw("failed to roll usage cycle", "error", err,
			"user_id", userID, "feature_key", feature)
		return nil, fmt.Errorf("failed to roll usage cycle: %w", err)
	}

	uc.logger.Infow("usage cycle rolled",
		"user_id", userID,
		"feature_key", feature,
		"cycle_start", created.CycleStart(),
		"cycle_end", created.CycleEnd(),
	)

	return &CycleState{Access: access, Plan: plan, Row: created, Quota: quota}, nil
}
