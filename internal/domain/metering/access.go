package metering

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserAccess is the single per-user row binding a user to a plan: expiry,
// cancel-at-period-end flag, and (for anchored plans) the anniversary
// day-of-month used to schedule resets. Created at signup, mutated on
// renewal/upgrade/cancellation, kept for the user's lifetime.
type UserAccess struct {
	id                uint
	sid               string
	uuid              string
	userID            uint
	planID            uint
	expiresAt         time.Time
	cancelAtPeriodEnd bool
	anchorDay         int
	createdAt         time.Time
	updatedAt         time.Time
}

func NewUserAccess(userID, planID uint, expiresAt time.Time, anchorDay int) (*UserAccess, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID cannot be zero")
	}
	if planID == 0 {
		return nil, fmt.Errorf("plan ID cannot be zero")
	}
	if anchorDay < 0 || anchorDay > 31 {
		return nil, fmt.Errorf("anchor day must be in [0, 31], got %d", anchorDay)
	}

	now := time.Now()
	return &UserAccess{
		uuid:      uuid.New().String(),
		userID:    userID,
		planID:    planID,
		expiresAt: expiresAt,
		anchorDay: anchorDay,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func ReconstructUserAccess(id uint, sid, accessUUID string, userID, planID uint,
	expiresAt time.Time, cancelAtPeriodEnd bool, anchorDay int,
	createdAt, updatedAt time.Time) (*UserAccess, error) {

	if id == 0 {
		return nil, fmt.Errorf("access ID cannot be zero")
	}
	if userID == 0 {
		return nil, fmt.Errorf("user ID cannot be zero")
	}
	if planID == 0 {
		return nil, fmt.Errorf("plan ID cannot be zero")
	}
	if anchorDay < 0 || anchorDay > 31 {
		return nil, fmt.Errorf("anchor day must be in [0, 31], got %d", anchorDay)
	}

	return &UserAccess{
		id:                id,
		sid:               sid,
		uuid:              accessUUID,
		userID:            userID,
		planID:            planID,
		expiresAt:         expiresAt,
		cancelAtPeriodEnd: cancelAtPeriodEnd,
		anchorDay:         anchorDay,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}, nil
}

func (a *UserAccess) ID() uint                { return a.id }
func (a *UserAccess) SID() string             { return a.sid }
func (a *UserAccess) UUID() string            { return a.uuid }
func (a *UserAccess) UserID() uint            { return a.userID }
func (a *UserAccess) PlanID() uint            { return a.planID }
func (a *UserAccess) ExpiresAt() time.Time    { return a.expiresAt }
func (a *UserAccess) CancelAtPeriodEnd() bool { return a.cancelAtPeriodEnd }
func (a *UserAccess) AnchorDay() int          { return a.anchorDay }
func (a *UserAccess) CreatedAt() time.Time    { return a.createdAt }
func (a *UserAccess) UpdatedAt() time.Time    { return a.updatedAt }

// IsExpired reports whether access has lapsed. A zero expiry never expires
// (free-tier rows have no end date).
func (a *UserAccess) IsExpired(now time.Time) bool {
	return !a.expiresAt.IsZero() && !now.Before(a.expiresAt)
}

// ChangePlan moves the access to a new plan, recording the anniversary anchor
// day for anchored billing cycles.
func (a *UserAccess) ChangePlan(planID uint, expiresAt time.Time, anchorDay int) error {
	if planID == 0 {
		return fmt.Errorf("plan ID cannot be zero")
	}
	if anchorDay < 0 || anchorDay > 31 {
		return fmt.Errorf("anchor day must be in [0, 31], got %d", anchorDay)
	}
	a.planID = planID
	a.expiresAt = expiresAt
	a.anchorDay = anchorDay
	a.cancelAtPeriodEnd = false
	a.updatedAt = time.Now()
	return nil
}

// MarkCancelAtPeriodEnd flags the access to lapse at its current expiry
// instead of renewing.
func (a *UserAccess) MarkCancelAtPeriodEnd() {
	a.cancelAtPeriodEnd = true
	a.updatedAt = time.Now()
}

func (a *UserAccess) SetID(id uint) error {
	if id == 0 {
		return fmt.Errorf("access ID cannot be zero")
	}
	a.id = id
	return nil
}

func (a *UserAccess) SetSID(sid string) {
	a.sid = sid
}
