package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tally/internal/domain/metering"
	"tally/internal/infrastructure/persistence/models"
	"tally/internal/shared/logger"
)

func seedPlan(t *testing.T, db *gorm.DB, slug, billingCycle string) *models.PlanModel {
	t.Helper()
	plan := &models.PlanModel{
		SID:          "plan_" + slug,
		Name:         slug,
		Slug:         slug,
		BillingCycle: billingCycle,
		Quotas:       datatypes.JSON([]byte(`{"ai_credits": 50}`)),
	}
	require.NoError(t, db.Create(plan).Error)
	return plan
}

func seedAccess(t *testing.T, db *gorm.DB, repo metering.UserAccessRepository, userID, planID uint, anchorDay int, expiresAt time.Time) *metering.UserAccess {
	t.Helper()
	access, err := metering.NewUserAccess(userID, planID, expiresAt, anchorDay)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), access))
	return access
}

func TestUserAccessRepository_ListForAnniversary(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserAccessRepository(db, logger.NewLogger())
	ctx := context.Background()

	now := time.Date(2025, 6, 15, 0, 30, 0, 0, time.UTC)

	monthly := seedPlan(t, db, "pro-monthly", "monthly")
	daily := seedPlan(t, db, "free", "daily")
	retired := seedPlan(t, db, "legacy-monthly", "monthly")

	anchored := seedAccess(t, db, repo, 1, monthly.ID, 15, time.Time{})
	onRetired := seedAccess(t, db, repo, 5, retired.ID, 15, time.Time{})
	// Different anchor day, a daily plan, and an expired access must all
	// stay out of the day-15 sweep.
	seedAccess(t, db, repo, 2, monthly.ID, 20, time.Time{})
	seedAccess(t, db, repo, 3, daily.ID, 0, time.Time{})
	seedAccess(t, db, repo, 4, monthly.ID, 15, now.AddDate(0, -1, 0))

	t.Run("only live anchored accesses on the day", func(t *testing.T) {
		got, err := repo.ListForAnniversary(ctx, 15, now)
		require.NoError(t, err)
		require.Len(t, got, 2)
		ids := []uint{got[0].UserID(), got[1].UserID()}
		assert.Contains(t, ids, anchored.UserID())
		assert.Contains(t, ids, onRetired.UserID())
	})

	t.Run("soft-deleted plans drop out of the sweep", func(t *testing.T) {
		require.NoError(t, db.Delete(retired).Error)

		got, err := repo.ListForAnniversary(ctx, 15, now)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, anchored.UserID(), got[0].UserID())
	})

	t.Run("future expiry still sweeps", func(t *testing.T) {
		seedAccess(t, db, repo, 6, monthly.ID, 15, now.AddDate(1, 0, 0))

		got, err := repo.ListForAnniversary(ctx, 15, now)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}
