package usecases

import (
	"context"
	"fmt"

	"tally/internal/application/metering/dto"
	"tally/internal/domain/metering"
	vo "tally/internal/domain/metering/valueobjects"
	"tally/internal/shared/biztime"
	apperrors "tally/internal/shared/errors"
	"tally/internal/shared/logger"
)

type ConsumeCreditCommand struct {
	UserID     uint
	FeatureKey string
	Cost       int64
}

// ConsumeCreditUseCase atomically burns credits against the current cycle.
// The quota check and the increment are one conditional UPDATE executed by
// the database; this use case never does a read-check-write.
type ConsumeCreditUseCase struct {
	ensureCycle *EnsureCurrentCycleUseCase
	usageRepo   metering.UsageCycleRepository
	cache       UsageCacheManager
	logger      logger.Interface
}

func NewConsumeCreditUseCase(
	ensureCycle *EnsureCurrentCycleUseCase,
	usageRepo metering.UsageCycleRepository,
	cache UsageCacheManager,
	logger logger.Interface,
) *ConsumeCreditUseCase {
	return &ConsumeCreditUseCase{
		ensureCycle: ensureCycle,
		usageRepo:   usageRepo,
		cache:       cache,
		logger:      logger,
	}
}

func (uc *ConsumeCreditUseCase) Execute(ctx context.Context, cmd ConsumeCreditCommand) (*dto.ConsumeResultDTO, error) {
	feature, err := vo.ParseFeatureKey(cmd.FeatureKey)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid feature key", cmd.FeatureKey)
	}
	if cmd.Cost <= 0 {
		return nil, fmt.Errorf("%w: got %d", metering.ErrInvalidCost, cmd.Cost)
	}

	now := biztime.NowUTC()

	state, err := uc.ensureCycle.Execute(ctx, cmd.UserID, feature, now)
	if err != nil {
		return nil, err
	}

	ok, err := uc.usageRepo.Consume(ctx, state.Row.ID(), cmd.Cost, state.Quota)
	if err != nil {
		return nil, fmt.Errorf("failed to consume credits: %w", err)
	}

	if !ok {
		// Re-read for an accurate rejection message; the guard already
		// decided, this is reporting only.
		used := state.Row.UsedAmount()
		if latest, latestErr := uc.usageRepo.GetLatest(ctx, cmd.UserID, feature); latestErr == nil && latest != nil {
			used = latest.UsedAmount()
		}

		uc.logger.Infow("credit consumption rejected",
			"user_id", cmd.UserID,
			"feature_key", feature,
			"cost", cmd.Cost,
			"used_amount", used,
			"quota", state.Quota,
		)
		return nil, metering.ErrQuotaExceededFor(feature.String(), used, state.Quota)
	}

	// Cache staleness only delays the dashboard; consumption must not fail
	// on a cache error.
	if cacheErr := uc.cache.InvalidateSummary(ctx, cmd.UserID, feature); cacheErr != nil {
		uc.logger.Warnw("failed to invalidate usage summary cache",
			"error", cacheErr, "user_id", cmd.UserID, "feature_key", feature)
	}

	// The pre-write snapshot under-reports when concurrent consumers landed
	// between the read and the UPDATE; re-read for the real figure and keep
	// the snapshot sum only as a fallback.
	usedAfter := state.Row.UsedAmount() + cmd.Cost
	if latest, latestErr := uc.usageRepo.GetLatest(ctx, cmd.UserID, feature); latestErr == nil && latest != nil {
		usedAfter = latest.UsedAmount()
	}
	remaining := state.Quota - usedAfter
	if remaining < 0 {
		remaining = 0
	}

	uc.logger.Infow("credits consumed",
		"user_id", cmd.UserID,
		"feature_key", feature,
		"cost", cmd.Cost,
		"used_amount", usedAfter,
		"quota", state.Quota,
	)

	return &dto.ConsumeResultDTO{
		FeatureKey: feature.String(),
		Cost:       cmd.Cost,
		UsedAmount: usedAfter,
		Quota:      state.Quota,
		Remaining:  remaining,
		CycleEnd:   state.Row.CycleEnd(),
	}, nil
}
