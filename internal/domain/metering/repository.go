package metering

import (
	"context"
	"time"

	vo "tally/internal/domain/metering/valueobjects"
)

// PlanRepository reads plan reference data. Plans are managed externally;
// the metering subsystem never writes them.
type PlanRepository interface {
	GetByID(ctx context.Context, id uint) (*Plan, error)
	GetBySlug(ctx context.Context, slug string) (*Plan, error)
}

// UserAccessRepository persists the one-per-user access rows.
type UserAccessRepository interface {
	Create(ctx context.Context, access *UserAccess) error
	Update(ctx context.Context, access *UserAccess) error
	GetByUserID(ctx context.Context, userID uint) (*UserAccess, error)
	// ListForAnniversary returns non-expired accesses on anchored billing
	// cycles whose anniversary day-of-month matches anchorDay at the given
	// instant. Used by the daily reset sweep.
	ListForAnniversary(ctx context.Context, anchorDay int, now time.Time) ([]*UserAccess, error)
}

// UsageCycleRepository is the storage access layer over the append-only usage
// ledger. It carries no business logic beyond statement construction.
type UsageCycleRepository interface {
	// GetActive returns the newest row whose [cycleStart, cycleEnd) window
	// contains now, or nil when no such row exists.
	GetActive(ctx context.Context, userID uint, feature vo.FeatureKey, now time.Time) (*UsageCycle, error)
	// GetLatest returns the newest row regardless of window, or nil.
	GetLatest(ctx context.Context, userID uint, feature vo.FeatureKey) (*UsageCycle, error)
	// CreateCycle inserts the row. When a row for the same
	// (user, feature, cycleStart) already exists it fetches and returns the
	// winner instead. Idempotent under concurrent invocation.
	CreateCycle(ctx context.Context, row *UsageCycle) (*UsageCycle, error)
	// Consume issues the single atomic conditional increment: add cost to
	// used_amount only while used_amount <= quota - cost, matched by row ID.
	// Returns false when the guard rejected the write.
	Consume(ctx context.Context, rowID uint, cost, quota int64) (bool, error)
	// GetHistory returns ledger rows for a user/feature ordered newest first.
	GetHistory(ctx context.Context, userID uint, feature vo.FeatureKey, from, to time.Time) ([]*UsageCycle, error)
}
