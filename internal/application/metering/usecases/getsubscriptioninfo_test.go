package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tally/internal/application/metering/dto"
	"tally/internal/domain/metering"
	vo "tally/internal/domain/metering/valueobjects"
	"tally/internal/shared/biztime"
)

func infoFixture(t *testing.T) (*GetSubscriptionInfoUseCase, *mockUserAccessRepository, *mockPlanRepository, *mockUsageCycleRepository, *mockUsageCacheManager) {
	t.Helper()
	biztime.MustInit("UTC")

	accessRepo := new(mockUserAccessRepository)
	planRepo := new(mockPlanRepository)
	usageRepo := new(mockUsageCycleRepository)
	cache := new(mockUsageCacheManager)

	ensure := NewEnsureCurrentCycleUseCase(accessRepo, planRepo, usageRepo, newTestLogger())
	uc := NewGetSubscriptionInfoUseCase(ensure, accessRepo, planRepo, cache, newTestLogger())
	return uc, accessRepo, planRepo, usageRepo, cache
}

func TestGetSubscriptionInfo_FallsBackToLedgerAndFillsCache(t *testing.T) {
	uc, accessRepo, planRepo, usageRepo, cache := infoFixture(t)

	expiry := biztime.NowUTC().AddDate(1, 0, 0)
	access := testAccess(t, 1, 2, 15, expiry)
	plan := testPlan(t, 2, vo.BillingCycleMonthly, map[vo.FeatureKey]int64{vo.FeatureAICredits: 50})
	window := metering.CurrentCycleWindow(plan.BillingCycle(), access, biztime.NowUTC())
	row := testRow(t, 7, 1, 12, window.Start, window.End)

	cache.On("GetSummary", mock.Anything, uint(1), mock.Anything).Return(nil, false, nil)
	accessRepo.On("GetByUserID", mock.Anything, uint(1)).Return(access, nil)
	planRepo.On("GetByID", mock.Anything, uint(2)).Return(plan, nil)
	usageRepo.On("GetActive", mock.Anything, uint(1), vo.FeatureAICredits, mock.Anything).Return(row, nil)
	cache.On("SyncSummary", mock.Anything, uint(1), vo.FeatureAICredits, mock.MatchedBy(func(s *dto.FeatureUsageDTO) bool {
		return s.UsedAmount == 12 && s.Quota == 50 && s.Remaining == 38
	})).Return(nil)

	info, err := uc.Execute(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, "test-plan", info.PlanSlug)
	assert.Equal(t, "monthly", info.BillingCycle)
	require.Len(t, info.Features, 1)
	assert.Equal(t, int64(38), info.Features[0].Remaining)
	require.NotNil(t, info.ExpiresAt)
	assert.True(t, info.ExpiresAt.Equal(expiry))
	cache.AssertExpectations(t)
}

func TestGetSubscriptionInfo_ServesValidCachedSummary(t *testing.T) {
	uc, accessRepo, planRepo, usageRepo, cache := infoFixture(t)

	now := biztime.NowUTC()
	access := testAccess(t, 1, 2, 15, time.Time{})
	plan := testPlan(t, 2, vo.BillingCycleMonthly, map[vo.FeatureKey]int64{vo.FeatureAICredits: 50})

	cachedSummary := &dto.FeatureUsageDTO{
		FeatureKey: vo.FeatureAICredits.String(),
		Quota:      50,
		UsedAmount: 20,
		Remaining:  30,
		CycleStart: now.Add(-time.Hour),
		CycleEnd:   now.Add(24 * time.Hour),
	}

	cache.On("GetSummary", mock.Anything, uint(1), vo.FeatureAICredits).Return(cachedSummary, false, nil)
	cache.On("GetSummary", mock.Anything, uint(1), vo.FeatureCrossPosts).Return(nil, false, nil)
	accessRepo.On("GetByUserID", mock.Anything, uint(1)).Return(access, nil)
	planRepo.On("GetByID", mock.Anything, uint(2)).Return(plan, nil)

	info, err := uc.Execute(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, info.Features, 1)
	assert.Equal(t, int64(20), info.Features[0].UsedAmount)
	// Served from cache; the ledger was never touched.
	usageRepo.AssertNotCalled(t, "GetActive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetSubscriptionInfo_ExpiredCachedWindowIsIgnored(t *testing.T) {
	uc, accessRepo, planRepo, usageRepo, cache := infoFixture(t)

	now := biztime.NowUTC()
	access := testAccess(t, 1, 2, 15, time.Time{})
	plan := testPlan(t, 2, vo.BillingCycleMonthly, map[vo.FeatureKey]int64{vo.FeatureAICredits: 50})

	staleSummary := &dto.FeatureUsageDTO{
		FeatureKey: vo.FeatureAICredits.String(),
		Quota:      50,
		UsedAmount: 50,
		CycleStart: now.Add(-48 * time.Hour),
		CycleEnd:   now.Add(-24 * time.Hour),
	}

	window := metering.CurrentCycleWindow(plan.BillingCycle(), access, now)
	fresh := testRow(t, 8, 1, 0, window.Start, window.End)

	cache.On("GetSummary", mock.Anything, uint(1), mock.Anything).Return(staleSummary, false, nil).Once()
	cache.On("GetSummary", mock.Anything, uint(1), mock.Anything).Return(nil, false, nil)
	accessRepo.On("GetByUserID", mock.Anything, uint(1)).Return(access, nil)
	planRepo.On("GetByID", mock.Anything, uint(2)).Return(plan, nil)
	usageRepo.On("GetActive", mock.Anything, uint(1), vo.FeatureAICredits, mock.Anything).Return(fresh, nil)
	cache.On("SyncSummary", mock.Anything, uint(1), vo.FeatureAICredits, mock.Anything).Return(nil)

	info, err := uc.Execute(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, info.Features, 1)
	assert.Equal(t, int64(0), info.Features[0].UsedAmount, "elapsed snapshot must not be served")
}

func TestGetSubscriptionInfo_NotProvisioned(t *testing.T) {
	t.Run("cached null marker short-circuits", func(t *testing.T) {
		uc, accessRepo, _, _, cache := infoFixture(t)

		cache.On("GetSummary", mock.Anything, uint(9), mock.Anything).Return(nil, true, nil)

		_, err := uc.Execute(context.Background(), 9)
		assert.True(t, errors.Is(err, metering.ErrNotProvisioned))
		accessRepo.AssertNotCalled(t, "GetByUserID", mock.Anything, mock.Anything)
	})

	t.Run("missing access sets null markers", func(t *testing.T) {
		uc, accessRepo, _, _, cache := infoFixture(t)

		cache.On("GetSummary", mock.Anything, uint(9), mock.Anything).Return(nil, false, nil)
		accessRepo.On("GetByUserID", mock.Anything, uint(9)).Return(nil, nil)
		cache.On("MarkNotProvisioned", mock.Anything, uint(9), mock.Anything).Return(nil)

		_, err := uc.Execute(context.Background(), 9)
		assert.True(t, errors.Is(err, metering.ErrNotProvisioned))
		cache.AssertCalled(t, "MarkNotProvisioned", mock.Anything, uint(9), vo.FeatureAICredits)
	})
}
