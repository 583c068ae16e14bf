package usecases

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tally/internal/application/metering/dto"
	"tally/internal/domain/metering"
	vo "tally/internal/domain/metering/valueobjects"
	"tally/internal/shared/biztime"
	"tally/internal/shared/logger"
)

// GetSubscriptionInfoUseCase projects a user's plan and current usage into
// the dashboard read model. It reads through the summary cache and falls
// back to the ledger, rolling stale cycles just in time so the numbers never
// show an elapsed window.
type GetSubscriptionInfoUseCase struct {
	ensureCycle *EnsureCurrentCycleUseCase
	accessRepo  metering.UserAccessRepository
	planRepo    metering.PlanRepository
	cache       UsageCacheManager
	logger      logger.Interface
}

func NewGetSubscriptionInfoUseCase(
	ensureCycle *EnsureCurrentCycleUseCase,
	accessRepo metering.UserAccessRepository,
	planRepo metering.PlanRepository,
	cache UsageCacheManager,
	logger logger.Interface,
) *GetSubscriptionInfoUseCase {
	return &GetSubscriptionInfoUseCase{
		ensureCycle: ensureCycle,
		accessRepo:  accessRepo,
		planRepo:    planRepo,
		cache:       cache,
		logger:      logger,
	}
}

func (uc *GetSubscriptionInfoUseCase) Execute(ctx context.Context, userID uint) (*dto.SubscriptionInfoDTO, error) {
	now := biztime.NowUTC()

	cached := uc.collectCached(ctx, userID, now)
	if cached == nil {
		return nil, metering.ErrNotProvisionedFor(userID, "cached null marker")
	}

	access, err := uc.accessRepo.GetByUserID(ctx, userID)
	if err != nil {
		uc.logger.Errorw("failed to get user access", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to get user access: %w", err)
	}
	if access == nil || access.IsExpired(now) {
		for _, feature := range vo.AllFeatureKeys() {
			if markErr := uc.cache.MarkNotProvisioned(ctx, userID, feature); markErr != nil {
				uc.logger.Warnw("failed to set null marker", "error", markErr, "user_id", userID)
				break
			}
		}
		return nil, metering.ErrNotProvisionedFor(userID, "no active access")
	}

	plan, err := uc.planRepo.GetByID(ctx, access.PlanID())
	if err != nil {
		uc.logger.Errorw("failed to get plan", "error", err, "plan_id", access.PlanID())
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	if plan == nil {
		return nil, metering.ErrNotProvisionedFor(userID, fmt.Sprintf("plan %d missing", access.PlanID()))
	}

	features := make([]dto.FeatureUsageDTO, 0, len(plan.Quotas()))
	for feature := range plan.Quotas() {
		if summary, ok := cached[feature]; ok {
			features = append(features, *summary)
			continue
		}

		state, err := uc.ensureCycle.Execute(ctx, userID, feature, now)
		if err != nil {
			return nil, err
		}

		summary := dto.FeatureUsageDTO{
			FeatureKey: feature.String(),
			Quota:      state.Quota,
			UsedAmount: state.Row.UsedAmount(),
			Remaining:  state.Row.Remaining(state.Quota),
			CycleStart: state.Row.CycleStart(),
			CycleEnd:   state.Row.CycleEnd(),
		}
		features = append(features, summary)

		if cacheErr := uc.cache.SyncSummary(ctx, userID, feature, &summary); cacheErr != nil {
			uc.logger.Warnw("failed to cache usage summary",
				"error", cacheErr, "user_id", userID, "feature_key", feature)
		}
	}

	sort.Slice(features, func(i, j int) bool {
		return features[i].FeatureKey < features[j].FeatureKey
	})

	info := &dto.SubscriptionInfoDTO{
		UserID:            userID,
		PlanSID:           plan.SID(),
		PlanName:          plan.Name(),
		PlanSlug:          plan.Slug(),
		BillingCycle:      plan.BillingCycle().String(),
		CancelAtPeriodEnd: access.CancelAtPeriodEnd(),
		Features:          features,
	}
	if !access.ExpiresAt().IsZero() {
		expiry := access.ExpiresAt()
		info.ExpiresAt = &expiry
	}

	return info, nil
}

// collectCached gathers still-valid cached summaries. It returns nil when a
// null marker proves the user is not provisioned, avoiding the DB entirely.
func (uc *GetSubscriptionInfoUseCase) collectCached(ctx context.Context, userID uint, now time.Time) map[vo.FeatureKey]*dto.FeatureUsageDTO {
	hits := make(map[vo.FeatureKey]*dto.FeatureUsageDTO)
	for _, feature := range vo.AllFeatureKeys() {
		summary, notProvisioned, err := uc.cache.GetSummary(ctx, userID, feature)
		if err != nil {
			uc.logger.Warnw("failed to read usage summary cache",
				"error", err, "user_id", userID, "feature_key", feature)
			continue
		}
		if notProvisioned {
			return nil
		}
		if summary == nil {
			continue
		}
		// A snapshot of an elapsed window must not be served; the ledger
		// fallback rolls the cycle instead.
		if now.Before(summary.CycleStart) || !now.Before(summary.CycleEnd) {
			continue
		}
		hits[feature] = summary
	}
	return hits
}
