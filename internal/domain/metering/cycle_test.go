package metering

import (
	"errors"
	"testing"
	"time"

	vo "tally/internal/domain/metering/valueobjects"
	"tally/internal/shared/biztime"
)

func mustAccess(t *testing.T, userID, planID uint, expiresAt time.Time, anchorDay int) *UserAccess {
	t.Helper()
	access, err := NewUserAccess(userID, planID, expiresAt, anchorDay)
	if err != nil {
		t.Fatalf("NewUserAccess failed: %v", err)
	}
	return access
}

func TestCurrentCycleStart(t *testing.T) {
	biztime.MustInit("UTC")

	now := time.Date(2025, 6, 20, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		cycle     vo.BillingCycle
		anchorDay int
		want      time.Time
	}{
		{
			name:  "daily cycle starts at start of day",
			cycle: vo.BillingCycleDaily,
			want:  time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "yearly cycle anchors to day 15",
			cycle:     vo.BillingCycleYearly,
			anchorDay: 15,
			want:      time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "monthly cycle anchors to day 25 of previous month",
			cycle:     vo.BillingCycleMonthly,
			anchorDay: 25,
			want:      time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			access := mustAccess(t, 1, 1, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), tt.anchorDay)
			got := CurrentCycleStart(tt.cycle, access, now)
			if !got.Equal(tt.want) {
				t.Errorf("CurrentCycleStart() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCurrentCycleWindow(t *testing.T) {
	biztime.MustInit("UTC")

	tests := []struct {
		name      string
		cycle     vo.BillingCycle
		now       time.Time
		expiresAt time.Time
		anchorDay int
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "daily window is one business day",
			cycle:     vo.BillingCycleDaily,
			now:       time.Date(2025, 6, 20, 15, 30, 0, 0, time.UTC),
			wantStart: time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "yearly window is one anchored month",
			cycle:     vo.BillingCycleYearly,
			now:       time.Date(2025, 6, 20, 15, 30, 0, 0, time.UTC),
			expiresAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			anchorDay: 15,
			wantStart: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "yearly window clamps to access expiry",
			cycle:     vo.BillingCycleYearly,
			now:       time.Date(2025, 12, 16, 10, 0, 0, 0, time.UTC),
			expiresAt: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
			anchorDay: 15,
			wantStart: time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "anchor 31 clamps in february",
			cycle:     vo.BillingCycleMonthly,
			now:       time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC),
			expiresAt: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
			anchorDay: 31,
			wantStart: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "daily window clamps to expiry inside the day",
			cycle:     vo.BillingCycleDaily,
			now:       time.Date(2025, 6, 20, 8, 0, 0, 0, time.UTC),
			expiresAt: time.Date(2025, 6, 20, 18, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 6, 20, 18, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			access := mustAccess(t, 1, 1, tt.expiresAt, tt.anchorDay)
			got := CurrentCycleWindow(tt.cycle, access, tt.now)
			if !got.Start.Equal(tt.wantStart) {
				t.Errorf("window start = %v, want %v", got.Start, tt.wantStart)
			}
			if !got.End.Equal(tt.wantEnd) {
				t.Errorf("window end = %v, want %v", got.End, tt.wantEnd)
			}
			if !got.Contains(got.Start) {
				t.Errorf("window should contain its own start")
			}
			if got.Contains(got.End) {
				t.Errorf("window end should be exclusive")
			}
		})
	}
}

func TestResolveActiveCycle(t *testing.T) {
	biztime.MustInit("UTC")

	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	expiry := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	freshRow := func(t *testing.T, start, end time.Time) *UsageCycle {
		t.Helper()
		row, err := ReconstructUsageCycle(7, "uc_test", 1, vo.FeatureAICredits, 3, start, end, start, start)
		if err != nil {
			t.Fatalf("ReconstructUsageCycle failed: %v", err)
		}
		return row
	}

	t.Run("nil row is not provisioned", func(t *testing.T) {
		access := mustAccess(t, 1, 1, expiry, 0)
		_, err := ResolveActiveCycle(vo.BillingCycleDaily, access, nil, now)
		if !errors.Is(err, ErrNotProvisioned) {
			t.Errorf("expected ErrNotProvisioned, got %v", err)
		}
	})

	t.Run("current daily row is returned", func(t *testing.T) {
		access := mustAccess(t, 1, 1, expiry, 0)
		row := freshRow(t,
			time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC))

		got, err := ResolveActiveCycle(vo.BillingCycleDaily, access, row, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ID() != row.ID() {
			t.Errorf("expected row %d, got %d", row.ID(), got.ID())
		}
	})

	t.Run("yesterday's daily row is stale", func(t *testing.T) {
		access := mustAccess(t, 1, 1, expiry, 0)
		row := freshRow(t,
			time.Date(2025, 6, 19, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC))

		_, err := ResolveActiveCycle(vo.BillingCycleDaily, access, row, now)
		if !errors.Is(err, ErrCycleStale) {
			t.Errorf("expected ErrCycleStale, got %v", err)
		}
	})

	t.Run("yearly row past its anchored month is stale even with future end", func(t *testing.T) {
		access := mustAccess(t, 1, 1, expiry, 15)
		// Row anchored to May 15 with an end mistakenly stretching past June 15.
		row := freshRow(t,
			time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC))

		_, err := ResolveActiveCycle(vo.BillingCycleYearly, access, row, now)
		if !errors.Is(err, ErrCycleStale) {
			t.Errorf("expected ErrCycleStale, got %v", err)
		}
	})

	t.Run("current anchored row is returned", func(t *testing.T) {
		access := mustAccess(t, 1, 1, expiry, 15)
		row := freshRow(t,
			time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC))

		got, err := ResolveActiveCycle(vo.BillingCycleYearly, access, row, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.CycleStart().Equal(row.CycleStart()) {
			t.Errorf("unexpected row returned: %v", got.CycleStart())
		}
	})
}
