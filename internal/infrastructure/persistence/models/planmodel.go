package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tally/internal/domain/metering"
	"tally/internal/shared/constants"
)

// PlanModel represents the database persistence model for plans
// This is the anti-corruption layer between domain and database
type PlanModel struct {
	ID           uint   `gorm:"primarykey"`
	SID          string `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: plan_xxx"`
	Name         string `gorm:"not null;size:100"`
	Slug         string `gorm:"uniqueIndex;not null;size:50"`
	BillingCycle string `gorm:"not null;size:20"`
	Status       string `gorm:"not null;size:20;default:active"`
	Quotas       datatypes.JSON
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (PlanModel) TableName() string {
	return constants.TablePlans
}

// BeforeCreate hook for GORM
func (p *PlanModel) BeforeCreate(tx *gorm.DB) error {
	if p.Status == "" {
		p.Status = string(metering.PlanStatusActive)
	}
	return nil
}
