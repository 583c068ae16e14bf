package metering

import (
	"errors"
	"fmt"
)

var (
	// ErrQuotaExceeded is the expected business rejection: the conditional
	// increment found no headroom. Callers must not retry automatically.
	ErrQuotaExceeded = errors.New("quota exceeded for current cycle")

	// ErrNotProvisioned signals a data-integrity bug: the user has no access
	// row, no plan, or no usage cycle at all. Every user is seeded at signup,
	// so this is never a normal business state.
	ErrNotProvisioned = errors.New("user not provisioned for metering")

	// ErrCycleStale is an internal signal consumed by the cycle reconciler.
	// It is always self-healed and never surfaced to a caller.
	ErrCycleStale = errors.New("active usage cycle is stale")

	ErrFeatureNotMetered = errors.New("feature is not metered by plan")
	ErrInvalidCost       = errors.New("cost must be positive")
	ErrInvalidPeriod     = errors.New("cycle period cannot be zero")
)

func ErrQuotaExceededFor(feature string, used, quota int64) error {
	return fmt.Errorf("%w: %s used=%d, quota=%d", ErrQuotaExceeded, feature, used, quota)
}

func ErrNotProvisionedFor(userID uint, detail string) error {
	return fmt.Errorf("%w: user=%d %s", ErrNotProvisioned, userID, detail)
}
