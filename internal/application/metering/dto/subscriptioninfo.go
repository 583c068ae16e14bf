package dto

import "time"

// FeatureUsageDTO is the per-feature slice of the subscription info read
// model: quota, spend, and the live cycle window.
type FeatureUsageDTO struct {
	FeatureKey string    `json:"feature_key"`
	Quota      int64     `json:"quota"`
	UsedAmount int64     `json:"used_amount"`
	Remaining  int64     `json:"remaining"`
	CycleStart time.Time `json:"cycle_start"`
	CycleEnd   time.Time `json:"cycle_end"`
}

// SubscriptionInfoDTO aggregates a user's plan and current usage into the
// shape dashboard callers consume.
type SubscriptionInfoDTO struct {
	UserID            uint              `json:"user_id"`
	PlanSID           string            `json:"plan_sid"`
	PlanName          string            `json:"plan_name"`
	PlanSlug          string            `json:"plan_slug"`
	BillingCycle      string            `json:"billing_cycle"`
	ExpiresAt         *time.Time        `json:"expires_at,omitempty"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	Features          []FeatureUsageDTO `json:"features"`
}

// ConsumeResultDTO reports the outcome of a successful credit consumption.
type ConsumeResultDTO struct {
	FeatureKey string    `json:"feature_key"`
	Cost       int64     `json:"cost"`
	UsedAmount int64     `json:"used_amount"`
	Quota      int64     `json:"quota"`
	Remaining  int64     `json:"remaining"`
	CycleEnd   time.Time `json:"cycle_end"`
}
