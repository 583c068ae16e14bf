package services

import (
	"context"
	"fmt"

	"tally/internal/application/metering/dto"
	vo "tally/internal/domain/metering/valueobjects"
	"tally/internal/infrastructure/cache"
	"tally/internal/shared/logger"
)

// UsageCacheSyncService adapts the Redis usage summary cache to the shape
// the metering use cases consume.
type UsageCacheSyncService struct {
	summaryCache cache.UsageSummaryCache
	logger       logger.Interface
}

// NewUsageCacheSyncService creates a new UsageCacheSyncService
func NewUsageCacheSyncService(summaryCache cache.UsageSummaryCache, logger logger.Interface) *UsageCacheSyncService {
	return &UsageCacheSyncService{
		summaryCache: summaryCache,
		logger:       logger,
	}
}

func (s *UsageCacheSyncService) GetSummary(ctx context.Context, userID uint, feature vo.FeatureKey) (*dto.FeatureUsageDTO, bool, error) {
	cached, err := s.summaryCache.GetSummary(ctx, userID, feature)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read usage summary cache: %w", err)
	}
	if cached == nil {
		return nil, false, nil
	}
	if cached.NotFound {
		return nil, true, nil
	}

	remaining := cached.Quota - cached.UsedAmount
	if remaining < 0 {
		remaining = 0
	}

	return &dto.FeatureUsageDTO{
		FeatureKey: feature.String(),
		Quota:      cached.Quota,
		UsedAmount: cached.UsedAmount,
		Remaining:  remaining,
		CycleStart: cached.CycleStart,
		CycleEnd:   cached.CycleEnd,
	}, false, nil
}

func (s *UsageCacheSyncService) SyncSummary(ctx context.Context, userID uint, feature vo.FeatureKey, summary *dto.FeatureUsageDTO) error {
	if summary == nil {
		return nil
	}

	cached := &cache.CachedUsageSummary{
		Quota:      summary.Quota,
		UsedAmount: summary.UsedAmount,
		CycleStart: summary.CycleStart,
		CycleEnd:   summary.CycleEnd,
	}

	if err := s.summaryCache.SetSummary(ctx, userID, feature, cached); err != nil {
		return fmt.Errorf("failed to cache usage summary: %w", err)
	}

	s.logger.Debugw("usage summary synced to cache",
		"user_id", userID,
		"feature_key", feature,
		"used_amount", summary.UsedAmount,
	)

	return nil
}

func (s *UsageCacheSyncService) MarkNotProvisioned(ctx context.Context, userID uint, feature vo.FeatureKey) error {
	return s.summaryCache.SetNullMarker(ctx, userID, feature)
}

func (s *UsageCacheSyncService) InvalidateSummary(ctx context.Context, userID uint, feature vo.FeatureKey) error {
	return s.summaryCache.InvalidateSummary(ctx, userID, feature)
}

func (s *UsageCacheSyncService) InvalidateUser(ctx context.Context, userID uint) error {
	return s.summaryCache.InvalidateUser(ctx, userID)
}
