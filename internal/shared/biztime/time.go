// Package biztime provides utilities for business timezone calculations.
// All storage and transport use UTC. The business timezone is only used for
// calculating date boundaries (start of day, anchored month starts).
//
// Design principles:
// - All time storage is in UTC
// - Cycle boundary math must explicitly go through the business timezone
// - Implicit Local timezone is prohibited
package biztime

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultTimezone is the default business timezone.
	DefaultTimezone = "UTC"
)

var (
	bizLocation     *time.Location
	bizLocationOnce sync.Once
	initErr         error
)

// Init initializes the business timezone. Should be called once at startup.
// If tz is empty, defaults to UTC.
func Init(tz string) error {
	bizLocationOnce.Do(func() {
		if tz == "" {
			tz = DefaultTimezone
		}
		bizLocation, initErr = time.LoadLocation(tz)
	})
	return initErr
}

// MustInit initializes the business timezone and panics on error.
func MustInit(tz string) {
	if err := Init(tz); err != nil {
		panic(fmt.Sprintf("failed to initialize business timezone %q: %v", tz, err))
	}
}

// Location returns the business timezone location, auto-initializing with the
// default timezone when Init was never called.
func Location() *time.Location {
	if bizLocation == nil {
		if err := Init(""); err != nil {
			panic(fmt.Sprintf("biztime: failed to auto-initialize with default timezone: %v", err))
		}
	}
	return bizLocation
}

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// StartOfDayUTC returns the start of day (00:00:00) in business timezone,
// converted to UTC. Daily metering cycles start on these boundaries.
func StartOfDayUTC(t time.Time) time.Time {
	bizTime := t.In(Location())
	startOfDay := time.Date(bizTime.Year(), bizTime.Month(), bizTime.Day(), 0, 0, 0, 0, Location())
	return startOfDay.UTC()
}

// NextDayStartUTC returns the start of the business day following the one
// containing t, converted to UTC.
func NextDayStartUTC(t time.Time) time.Time {
	bizTime := t.In(Location())
	next := time.Date(bizTime.Year(), bizTime.Month(), bizTime.Day()+1, 0, 0, 0, 0, Location())
	return next.UTC()
}

// EndOfDayUTC returns the end of day (23:59:59.999999999) in business
// timezone, converted to UTC.
func EndOfDayUTC(t time.Time) time.Time {
	bizTime := t.In(Location())
	endOfDay := time.Date(bizTime.Year(), bizTime.Month(), bizTime.Day(), 23, 59, 59, 999999999, Location())
	return endOfDay.UTC()
}

// StartOfMonthUTC returns the start of month in business timezone, converted to UTC.
func StartOfMonthUTC(year int, month time.Month) time.Time {
	startOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, Location())
	return startOfMonth.UTC()
}

// DayOfMonth returns the day-of-month of t in the business timezone.
func DayOfMonth(t time.Time) int {
	return t.In(Location()).Day()
}

// DaysInMonth returns the number of days of t's month in the business
// timezone.
func DaysInMonth(t time.Time) int {
	local := t.In(Location())
	return lastDayOfMonth(local.Year(), local.Month())
}

// AddMonthClamped advances t by one calendar month in the business timezone,
// clamping the day-of-month when the target month is shorter. Unlike
// time.AddDate, Jan 31 + 1 month yields Feb 28/29 rather than Mar 2/3.
func AddMonthClamped(t time.Time) time.Time {
	bizTime := t.In(Location())
	year, month, day := bizTime.Date()

	month++
	if month > time.December {
		month = time.January
		year++
	}
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}

	next := time.Date(year, month, day,
		bizTime.Hour(), bizTime.Minute(), bizTime.Second(), bizTime.Nanosecond(), Location())
	return next.UTC()
}

// AnchoredMonthStart returns the start of the anchored month window containing
// t: the most recent day-of-month == anchorDay at 00:00 business timezone, on
// or before t. Anchor days past the end of a short month clamp to its last day.
func AnchoredMonthStart(t time.Time, anchorDay int) time.Time {
	if anchorDay < 1 {
		anchorDay = 1
	}
	bizTime := t.In(Location())
	year, month := bizTime.Year(), bizTime.Month()

	day := clampDay(year, month, anchorDay)
	start := time.Date(year, month, day, 0, 0, 0, 0, Location())
	if start.After(bizTime) {
		month--
		if month < time.January {
			month = time.December
			year--
		}
		day = clampDay(year, month, anchorDay)
		start = time.Date(year, month, day, 0, 0, 0, 0, Location())
	}
	return start.UTC()
}

// ToBizTimezone converts a UTC time to business timezone for display.
func ToBizTimezone(t time.Time) time.Time {
	return t.In(Location())
}

// ParseDateInBizTimezone parses a date string (YYYY-MM-DD) as business
// timezone midnight, then returns the UTC equivalent.
func ParseDateInBizTimezone(dateStr string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", dateStr, Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format %q: %w", dateStr, err)
	}
	return t.UTC(), nil
}

// FormatInBizTimezone formats a UTC time as a string in business timezone.
func FormatInBizTimezone(t time.Time, layout string) string {
	return t.In(Location()).Format(layout)
}

func clampDay(year int, month time.Month, day int) int {
	if last := lastDayOfMonth(year, month); day > last {
		return last
	}
	return day
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, Location()).Day()
}
