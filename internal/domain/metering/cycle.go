package metering

import (
	"time"

	vo "tally/internal/domain/metering/valueobjects"
	"tally/internal/shared/biztime"
)

// CycleWindow is a half-open [Start, End) usage accumulation window.
type CycleWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w CycleWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// CurrentCycleStart computes where the cycle containing now begins for the
// given billing cycle and access row. Pure computation, no side effects.
//
// Daily plans start cycles on business-day boundaries. Anchored plans
// (monthly and yearly billing) start cycles on the access row's anniversary
// day-of-month, clamped in shorter months.
func CurrentCycleStart(cycle vo.BillingCycle, access *UserAccess, now time.Time) time.Time {
	if cycle.IsAnchored() {
		return biztime.AnchoredMonthStart(now, access.AnchorDay())
	}
	return biztime.StartOfDayUTC(now)
}

// CurrentCycleWindow computes the full window a fresh cycle would occupy if a
// reset happened at now: [start, min(start+period, access.expiresAt)).
// The period is one business day for daily metering and one calendar month
// (day-of-month clamped) for anchored metering. A zero expiry never clamps.
func CurrentCycleWindow(cycle vo.BillingCycle, access *UserAccess, now time.Time) CycleWindow {
	start := CurrentCycleStart(cycle, access, now)

	var end time.Time
	if cycle.IsAnchored() {
		end = biztime.AddMonthClamped(start)
	} else {
		end = biztime.NextDayStartUTC(start)
	}

	if expiresAt := access.ExpiresAt(); !expiresAt.IsZero() && expiresAt.Before(end) {
		end = expiresAt
	}
	return CycleWindow{Start: start, End: end}
}

// ResolveActiveCycle picks the row acting as the active cycle from the newest
// ledger row, distinguishing three cases:
//   - row is nil            -> never seeded, ErrNotProvisioned at the caller
//   - row contains now and is not stale -> the active row
//   - otherwise             -> ErrCycleStale, repaired by the reconciler
//
// Staleness is judged against the clock, not only the row's own window: a
// yearly row whose anchored month has rolled is stale even while its stored
// end lies in the future.
func ResolveActiveCycle(cycle vo.BillingCycle, access *UserAccess, row *UsageCycle, now time.Time) (*UsageCycle, error) {
	if row == nil {
		return nil, ErrNotProvisionedFor(access.UserID(), "no usage cycle rows")
	}

	currentStart := CurrentCycleStart(cycle, access, now)
	if row.IsStaleFor(currentStart) {
		return nil, ErrCycleStale
	}
	if !row.Contains(now) {
		return nil, ErrCycleStale
	}
	return row, nil
}
