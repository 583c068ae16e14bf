package constants

// Database table names
const (
	TablePlans        = "plans"
	TableUserAccesses = "user_accesses"
	TableUsageCycles  = "usage_cycles"
)
