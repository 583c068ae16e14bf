package models

import (
	"time"

	"gorm.io/gorm"

	"tally/internal/shared/constants"
)

// UserAccessModel represents the database persistence model for user accesses
// This is the anti-corruption layer between domain and database
type UserAccessModel struct {
	ID                uint      `gorm:"primarykey"`
	SID               string    `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: acc_xxx"`
	UUID              string    `gorm:"uniqueIndex;not null;size:36"`
	UserID            uint      `gorm:"uniqueIndex:idx_user_access;not null"`
	PlanID            uint      `gorm:"not null;index:idx_plan_access"`
	ExpiresAt         *time.Time `gorm:"index:idx_expires_at"`
	CancelAtPeriodEnd bool      `gorm:"default:false"`
	AnchorDay         int       `gorm:"not null;default:0;index:idx_anchor_day;comment:anniversary day-of-month, 0 for daily plans"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (UserAccessModel) TableName() string {
	return constants.TableUserAccesses
}
