package usecases

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"tally/internal/application/metering/dto"
	"tally/internal/domain/metering"
	vo "tally/internal/domain/metering/valueobjects"
	"tally/internal/shared/logger"
)

// testLogger is a no-op logger; log output is not asserted on.
type testLogger struct{}

func newTestLogger() logger.Interface { return &testLogger{} }

func (l *testLogger) Debug(msg string, args ...any)                   {}
func (l *testLogger) Info(msg string, args ...any)                    {}
func (l *testLogger) Warn(msg string, args ...any)                    {}
func (l *testLogger) Error(msg string, args ...any)                   {}
func (l *testLogger) Fatal(msg string, args ...any)                   {}
func (l *testLogger) With(args ...any) logger.Interface               { return l }
func (l *testLogger) Named(name string) logger.Interface              { return l }
func (l *testLogger) Debugw(msg string, keysAndValues ...interface{}) {}
func (l *testLogger) Infow(msg string, keysAndValues ...interface{})  {}
func (l *testLogger) Warnw(msg string, keysAndValues ...interface{})  {}
func (l *testLogger) Errorw(msg string, keysAndValues ...interface{}) {}
func (l *testLogger) Fatalw(msg string, keysAndValues ...interface{}) {}

type mockUserAccessRepository struct {
	mock.Mock
}

func (m *mockUserAccessRepository) Create(ctx context.Context, access *metering.UserAccess) error {
	args := m.Called(ctx, access)
	return args.Error(0)
}

func (m *mockUserAccessRepository) Update(ctx context.Context, access *metering.UserAccess) error {
	args := m.Called(ctx, access)
	return args.Error(0)
}

func (m *mockUserAccessRepository) GetByUserID(ctx context.Context, userID uint) (*metering.UserAccess, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.UserAccess), args.Error(1)
}

func (m *mockUserAccessRepository) ListForAnniversary(ctx context.Context, anchorDay int, now time.Time) ([]*metering.UserAccess, error) {
	args := m.Called(ctx, anchorDay, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*metering.UserAccess), args.Error(1)
}

type mockPlanRepository struct {
	mock.Mock
}

func (m *mockPlanRepository) GetByID(ctx context.Context, id uint) (*metering.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.Plan), args.Error(1)
}

func (m *mockPlanRepository) GetBySlug(ctx context.Context, slug string) (*metering.Plan, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.Plan), args.Error(1)
}

type mockUsageCycleRepository struct {
	mock.Mock
}

func (m *mockUsageCycleRepository) GetActive(ctx context.Context, userID uint, feature vo.FeatureKey, now time.Time) (*metering.UsageCycle, error) {
	args := m.Called(ctx, userID, feature, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.UsageCycle), args.Error(1)
}

func (m *mockUsageCycleRepository) GetLatest(ctx context.Context, userID uint, feature vo.FeatureKey) (*metering.UsageCycle, error) {
	args := m.Called(ctx, userID, feature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.UsageCycle), args.Error(1)
}

func (m *mockUsageCycleRepository) CreateCycle(ctx context.Context, row *metering.UsageCycle) (*metering.UsageCycle, error) {
	args := m.Called(ctx, row)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metering.UsageCycle), args.Error(1)
}

func (m *mockUsageCycleRepository) Consume(ctx context.Context, rowID uint, cost, quota int64) (bool, error) {
	args := m.Called(ctx, rowID, cost, quota)
	return args.Bool(0), args.Error(1)
}

func (m *mockUsageCycleRepository) GetHistory(ctx context.Context, userID uint, feature vo.FeatureKey, from, to time.Time) ([]*metering.UsageCycle, error) {
	args := m.Called(ctx, userID, feature, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*metering.UsageCycle), args.Error(1)
}

type mockUsageCacheManager struct {
	mock.Mock
}

func (m *mockUsageCacheManager) GetSummary(ctx context.Context, userID uint, feature vo.FeatureKey) (*dto.FeatureUsageDTO, bool, error) {
	args := m.Called(ctx, userID, feature)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*dto.FeatureUsageDTO), args.Bool(1), args.Error(2)
}

func (m *mockUsageCacheManager) SyncSummary(ctx context.Context, userID uint, feature vo.FeatureKey, summary *dto.FeatureUsageDTO) error {
	args := m.Called(ctx, userID, feature, summary)
	return args.Error(0)
}

func (m *mockUsageCacheManager) MarkNotProvisioned(ctx context.Context, userID uint, feature vo.FeatureKey) error {
	args := m.Called(ctx, userID, feature)
	return args.Error(0)
}

func (m *mockUsageCacheManager) InvalidateSummary(ctx context.Context, userID uint, feature vo.FeatureKey) error {
	args := m.Called(ctx, userID, feature)
	return args.Error(0)
}

func (m *mockUsageCacheManager) InvalidateUser(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
