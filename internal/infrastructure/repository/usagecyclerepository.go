package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tally/internal/domain/metering"
	vo "tally/internal/domain/metering/valueobjects"
	"tally/internal/infrastructure/persistence/models"
	apperrors "tally/internal/shared/errors"
	"tally/internal/shared/id"
	"tally/internal/shared/logger"
)

type UsageCycleRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUsageCycleRepository(db *gorm.DB, logger logger.Interface) metering.UsageCycleRepository {
	return &UsageCycleRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

func (r *UsageCycleRepositoryImpl) GetActive(ctx context.Context, userID uint, feature vo.FeatureKey, now time.Time) (*metering.UsageCycle, error) {
	var model models.UsageCycleModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND feature_key = ? AND cycle_start <= ? AND cycle_end > ?",
			userID, feature.String(), now, now).
		Order("cycle_start DESC").
		First(&model).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get active usage cycle", "error", err,
			"user_id", userID, "feature_key", feature)
		return nil, fmt.Errorf("failed to get active usage cycle: %w", err)
	}

	return r.toEntity(&model)
}

func (r *UsageCycleRepositoryImpl) GetLatest(ctx context.Context, userID uint, feature vo.FeatureKey) (*metering.UsageCycle, error) {
	var model models.UsageCycleModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND feature_key = ?", userID, feature.String()).
		Order("cycle_start DESC").
		First(&model).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get latest usage cycle", "error", err,
			"user_id", userID, "feature_key", feature)
		return nil, fmt.Errorf("failed to get latest usage cycle: %w", err)
	}

	return r.toEntity(&model)
}

// CreateCycle inserts a fresh ledger row. Concurrent callers racing on the
// same (user, feature, cycle_start) all converge on a single winner: the
// unique index rejects duplicates and the loser re-reads the winning row.
func (r *UsageCycleRepositoryImpl) CreateCycle(ctx context.Context, row *metering.UsageCycle) (*metering.UsageCycle, error) {
	model := r.toModel(row)
	if model.SID == "" {
		sid, err := id.NewUsageCycleID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate usage cycle SID: %w", err)
		}
		model.SID = sid
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "feature_key"}, {Name: "cycle_start"}},
			DoNothing: true,
		}).
		Create(model)

	if result.Error != nil && !apperrors.IsDuplicateError(result.Error) {
		r.logger.Errorw("failed to create usage cycle", "error", result.Error,
			"user_id", row.UserID(), "feature_key", row.FeatureKey())
		return nil, fmt.Errorf("failed to create usage cycle: %w", result.Error)
	}

	if result.Error != nil || result.RowsAffected == 0 {
		// Lost the race; return the row the winner inserted.
		var existing models.UsageCycleModel
		err := r.db.WithContext(ctx).
			Where("user_id = ? AND feature_key = ? AND cycle_start = ?",
				row.UserID(), row.FeatureKey().String(), row.CycleStart()).
			First(&existing).Error
		if err != nil {
			r.logger.Errorw("failed to fetch winning usage cycle after conflict", "error", err,
				"user_id", row.UserID(), "feature_key", row.FeatureKey())
			return nil, fmt.Errorf("failed to fetch usage cycle after conflict: %w", err)
		}
		return r.toEntity(&existing)
	}

	r.logger.Infow("usage cycle created", "cycle_id", model.ID,
		"user_id", row.UserID(), "feature_key", row.FeatureKey(),
		"cycle_start", row.CycleStart())

	return r.toEntity(model)
}

// Consume is the whole overspend defense: one conditional UPDATE whose guard
// and increment execute atomically inside the database. No read-check-write.
func (r *UsageCycleRepositoryImpl) Consume(ctx context.Context, rowID uint, cost, quota int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.UsageCycleModel{}).
		Where("id = ? AND used_amount <= ?", rowID, quota-cost).
		Update("used_amount", gorm.Expr("used_amount + ?", cost))

	if result.Error != nil {
		r.logger.Errorw("failed to consume from usage cycle", "error", result.Error,
			"cycle_id", rowID, "cost", cost)
		return false, fmt.Errorf("failed to consume from usage cycle: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *UsageCycleRepositoryImpl) GetHistory(ctx context.Context, userID uint, feature vo.FeatureKey, from, to time.Time) ([]*metering.UsageCycle, error) {
	var cycleModels []*models.UsageCycleModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND feature_key = ? AND cycle_start >= ? AND cycle_start < ?",
			userID, feature.String(), from, to).
		Order("cycle_start DESC").
		Find(&cycleModels).Error

	if err != nil {
		r.logger.Errorw("failed to get usage history", "error", err,
			"user_id", userID, "feature_key", feature)
		return nil, fmt.Errorf("failed to get usage history: %w", err)
	}

	return r.toEntities(cycleModels)
}

func (r *UsageCycleRepositoryImpl) toEntity(model *models.UsageCycleModel) (*metering.UsageCycle, error) {
	feature, err := vo.ParseFeatureKey(model.FeatureKey)
	if err != nil {
		return nil, fmt.Errorf("invalid feature key in usage cycle %d: %w", model.ID, err)
	}

	return metering.ReconstructUsageCycle(
		model.ID,
		model.SID,
		model.UserID,
		feature,
		model.UsedAmount,
		model.CycleStart,
		model.CycleEnd,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func (r *UsageCycleRepositoryImpl) toEntities(cycleModels []*models.UsageCycleModel) ([]*metering.UsageCycle, error) {
	entities := make([]*metering.UsageCycle, 0, len(cycleModels))
	for _, model := range cycleModels {
		entity, err := r.toEntity(model)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func (r *UsageCycleRepositoryImpl) toModel(row *metering.UsageCycle) *models.UsageCycleModel {
	return &models.UsageCycleModel{
		ID:         row.ID(),
		SID:        row.SID(),
		UserID:     row.UserID(),
		FeatureKey: row.FeatureKey().String(),
		UsedAmount: row.UsedAmount(),
		CycleStart: row.CycleStart(),
		CycleEnd:   row.CycleEnd(),
		CreatedAt:  row.CreatedAt(),
		UpdatedAt:  row.UpdatedAt(),
	}
}
