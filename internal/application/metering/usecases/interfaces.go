package usecases

import (
	"context"

	"tally/internal/application/metering/dto"
	vo "tally/internal/domain/metering/valueobjects"
)

// UsageCacheManager defines the interface for the read-side usage summary
// cache. Consumption and resets invalidate through it; the info projector
// reads and refills through it.
type UsageCacheManager interface {
	// GetSummary returns the cached per-feature snapshot. A nil DTO with
	// notProvisioned=false means a cache miss; notProvisioned=true means a
	// cached null marker.
	GetSummary(ctx context.Context, userID uint, feature vo.FeatureKey) (summary *dto.FeatureUsageDTO, notProvisioned bool, err error)
	// SyncSummary stores a fresh snapshot for the feature.
	SyncSummary(ctx context.Context, userID uint, feature vo.FeatureKey, summary *dto.FeatureUsageDTO) error
	// MarkNotProvisioned caches a short-lived not-provisioned marker.
	MarkNotProvisioned(ctx context.Context, userID uint, feature vo.FeatureKey) error
	// InvalidateSummary drops one feature's snapshot.
	InvalidateSummary(ctx context.Context, userID uint, feature vo.FeatureKey) error
	// InvalidateUser drops every feature snapshot of a user.
	InvalidateUser(ctx context.Context, userID uint) error
}
