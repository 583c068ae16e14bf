package models

import (
	"time"

	"tally/internal/shared/constants"
)

// UsageCycleModel represents the database persistence model for usage cycles.
// One row per (user, feature, cycle window); the unique index makes cycle
// creation idempotent under concurrent resets.
type UsageCycleModel struct {
	ID         uint      `gorm:"primarykey"`
	SID        string    `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: uc_xxx"`
	UserID     uint      `gorm:"uniqueIndex:idx_user_feature_cycle,priority:1;not null"`
	FeatureKey string    `gorm:"uniqueIndex:idx_user_feature_cycle,priority:2;not null;size:50"`
	UsedAmount int64     `gorm:"not null;default:0"`
	CycleStart time.Time `gorm:"uniqueIndex:idx_user_feature_cycle,priority:3;not null"`
	CycleEnd   time.Time `gorm:"not null;index:idx_cycle_end"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName specifies the table name for GORM
func (UsageCycleModel) TableName() string {
	return constants.TableUsageCycles
}
