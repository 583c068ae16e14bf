package metering

import (
	"fmt"
	"time"

	vo "tally/internal/domain/metering/valueobjects"
)

// UsageCycle is one row of the append-only usage ledger: the credits a user
// burned for one feature inside one cycle window. Rolling a cycle inserts a
// fresh zeroed row; old rows are immutable history.
type UsageCycle struct {
	id         uint
	sid        string
	userID     uint
	featureKey vo.FeatureKey
	usedAmount int64
	cycleStart time.Time
	cycleEnd   time.Time
	createdAt  time.Time
	updatedAt  time.Time
}

func NewUsageCycle(userID uint, feature vo.FeatureKey, cycleStart, cycleEnd time.Time) (*UsageCycle, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID cannot be zero")
	}
	if !feature.IsValid() {
		return nil, fmt.Errorf("invalid feature key: %s", feature)
	}
	if cycleStart.IsZero() || cycleEnd.IsZero() {
		return nil, ErrInvalidPeriod
	}
	if !cycleEnd.After(cycleStart) {
		return nil, fmt.Errorf("cycle end %v must be after cycle start %v", cycleEnd, cycleStart)
	}

	now := time.Now()
	return &UsageCycle{
		userID:     userID,
		featureKey: feature,
		usedAmount: 0,
		cycleStart: cycleStart,
		cycleEnd:   cycleEnd,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

func ReconstructUsageCycle(id uint, sid string, userID uint, feature vo.FeatureKey,
	usedAmount int64, cycleStart, cycleEnd time.Time, createdAt, updatedAt time.Time) (*UsageCycle, error) {

	if id == 0 {
		return nil, fmt.Errorf("usage cycle ID cannot be zero")
	}
	if userID == 0 {
		return nil, fmt.Errorf("user ID cannot be zero")
	}
	if !feature.IsValid() {
		return nil, fmt.Errorf("invalid feature key: %s", feature)
	}
	if cycleStart.IsZero() || cycleEnd.IsZero() {
		return nil, ErrInvalidPeriod
	}
	if usedAmount < 0 {
		return nil, fmt.Errorf("used amount cannot be negative")
	}

	return &UsageCycle{
		id:         id,
		sid:        sid,
		userID:     userID,
		featureKey: feature,
		usedAmount: usedAmount,
		cycleStart: cycleStart,
		cycleEnd:   cycleEnd,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}, nil
}

func (u *UsageCycle) ID() uint                   { return u.id }
func (u *UsageCycle) SID() string                { return u.sid }
func (u *UsageCycle) UserID() uint               { return u.userID }
func (u *UsageCycle) FeatureKey() vo.FeatureKey  { return u.featureKey }
func (u *UsageCycle) UsedAmount() int64          { return u.usedAmount }
func (u *UsageCycle) CycleStart() time.Time      { return u.cycleStart }
func (u *UsageCycle) CycleEnd() time.Time        { return u.cycleEnd }
func (u *UsageCycle) CreatedAt() time.Time       { return u.createdAt }
func (u *UsageCycle) UpdatedAt() time.Time       { return u.updatedAt }

// Contains reports whether now falls inside the half-open [start, end) window.
func (u *UsageCycle) Contains(now time.Time) bool {
	return !now.Before(u.cycleStart) && now.Before(u.cycleEnd)
}

// IsStaleFor reports whether this row predates the given current-cycle start
// and therefore needs a just-in-time roll.
func (u *UsageCycle) IsStaleFor(currentCycleStart time.Time) bool {
	return u.cycleStart.Before(currentCycleStart)
}

// Remaining returns the headroom left against a quota, never negative.
func (u *UsageCycle) Remaining(quota int64) int64 {
	remaining := quota - u.usedAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (u *UsageCycle) SetID(id uint) error {
	if id == 0 {
		return fmt.Errorf("usage cycle ID cannot be zero")
	}
	u.id = id
	return nil
}

func (u *UsageCycle) SetSID(sid string) {
	u.sid = sid
}
