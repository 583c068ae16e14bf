package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"tally/internal/domain/metering"
	vo "tally/internal/domain/metering/valueobjects"
	"tally/internal/infrastructure/persistence/models"
	"tally/internal/shared/logger"
)

type PlanRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewPlanRepository(db *gorm.DB, logger logger.Interface) metering.PlanRepository {
	return &PlanRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

func (r *PlanRepositoryImpl) GetByID(ctx context.Context, id uint) (*metering.Plan, error) {
	var model models.PlanModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get plan by ID", "error", err, "plan_id", id)
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return r.toEntity(&model)
}

func (r *PlanRepositoryImpl) GetBySlug(ctx context.Context, slug string) (*metering.Plan, error) {
	var model models.PlanModel
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get plan by slug", "error", err, "slug", slug)
		return nil, fmt.Errorf("failed to get plan by slug: %w", err)
	}

	return r.toEntity(&model)
}

func (r *PlanRepositoryImpl) toEntity(model *models.PlanModel) (*metering.Plan, error) {
	billingCycle, err := vo.ParseBillingCycle(model.BillingCycle)
	if err != nil {
		return nil, fmt.Errorf("invalid billing cycle in plan %d: %w", model.ID, err)
	}

	quotas := make(map[vo.FeatureKey]int64)
	if len(model.Quotas) > 0 {
		raw := make(map[string]int64)
		if err := json.Unmarshal(model.Quotas, &raw); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quotas for plan %d: %w", model.ID, err)
		}
		for key, quota := range raw {
			feature, err := vo.ParseFeatureKey(key)
			if err != nil {
				// Unknown keys are tolerated so new features can ship
				// ahead of a binary rollout.
				r.logger.Warnw("skipping unknown feature key in plan quotas",
					"plan_id", model.ID, "feature_key", key)
				continue
			}
			quotas[feature] = quota
		}
	}

	return metering.ReconstructPlan(
		model.ID,
		model.SID,
		model.Name,
		model.Slug,
		billingCycle,
		model.Status,
		quotas,
		model.CreatedAt,
		model.UpdatedAt,
	)
}
