package valueobjects

import (
	"fmt"
	"strings"
)

// BillingCycle determines how a plan's usage cycles are scheduled.
// Daily plans (the free tier) reset on business-day boundaries; monthly and
// yearly plans reset on anniversary-anchored month boundaries clamped to the
// access expiry.
type BillingCycle string

const (
	BillingCycleDaily   BillingCycle = "daily"
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

var validBillingCycles = map[BillingCycle]bool{
	BillingCycleDaily:   true,
	BillingCycleMonthly: true,
	BillingCycleYearly:  true,
}

// ParseBillingCycle normalizes and validates a billing cycle string.
func ParseBillingCycle(value string) (BillingCycle, error) {
	normalized := BillingCycle(strings.ToLower(strings.TrimSpace(value)))

	if normalized == "" {
		return "", fmt.Errorf("billing cycle cannot be empty")
	}
	if !validBillingCycles[normalized] {
		return "", fmt.Errorf("invalid billing cycle: %s", value)
	}
	return normalized, nil
}

func (b BillingCycle) String() string {
	return string(b)
}

func (b BillingCycle) IsValid() bool {
	return validBillingCycles[b]
}

// IsDaily reports whether usage resets every business day.
func (b BillingCycle) IsDaily() bool {
	return b == BillingCycleDaily
}

// IsAnchored reports whether cycles are anchored to the subscription's
// anniversary day-of-month.
func (b BillingCycle) IsAnchored() bool {
	return b == BillingCycleMonthly || b == BillingCycleYearly
}
