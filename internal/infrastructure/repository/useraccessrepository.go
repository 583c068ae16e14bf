package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tally/internal/domain/metering"
	vo "tally/internal/domain/metering/valueobjects"
	"tally/internal/infrastructure/persistence/models"
	"tally/internal/shared/constants"
	"tally/internal/shared/id"
	"tally/internal/shared/logger"
)

type UserAccessRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUserAccessRepository(db *gorm.DB, logger logger.Interface) metering.UserAccessRepository {
	return &UserAccessRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

func (r *UserAccessRepositoryImpl) Create(ctx context.Context, access *metering.UserAccess) error {
	model := r.toModel(access)
	if model.SID == "" {
		sid, err := id.NewAccessID()
		if err != nil {
			return fmt.Errorf("failed to generate access SID: %w", err)
		}
		model.SID = sid
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create user access", "error", err, "user_id", access.UserID())
		return fmt.Errorf("failed to create user access: %w", err)
	}

	if err := access.SetID(model.ID); err != nil {
		return err
	}
	access.SetSID(model.SID)

	r.logger.Infow("user access created", "access_id", model.ID, "user_id", access.UserID())
	return nil
}

func (r *UserAccessRepositoryImpl) Update(ctx context.Context, access *metering.UserAccess) error {
	model := r.toModel(access)

	result := r.db.WithContext(ctx).Model(&models.UserAccessModel{}).
		Where("id = ?", access.ID()).
		Updates(map[string]interface{}{
			"plan_id":              model.PlanID,
			"expires_at":           model.ExpiresAt,
			"cancel_at_period_end": model.CancelAtPeriodEnd,
			"anchor_day":           model.AnchorDay,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update user access", "error", result.Error, "access_id", access.ID())
		return fmt.Errorf("failed to update user access: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user access %d not found", access.ID())
	}

	return nil
}

func (r *UserAccessRepositoryImpl) GetByUserID(ctx context.Context, userID uint) (*metering.UserAccess, error) {
	var model models.UserAccessModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get user access", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to get user access: %w", err)
	}

	return r.toEntity(&model)
}

func (r *UserAccessRepositoryImpl) ListForAnniversary(ctx context.Context, anchorDay int, now time.Time) ([]*metering.UserAccess, error) {
	var accessModels []*models.UserAccessModel

	// Anchored plans only: daily plans keep anchor_day at 0 and roll their
	// cycles just in time instead of through the sweep.
	err := r.db.WithContext(ctx).
		Joins(fmt.Sprintf("JOIN %s ON %s.id = %s.plan_id AND %s.deleted_at IS NULL",
			constants.TablePlans, constants.TablePlans, constants.TableUserAccesses, constants.TablePlans)).
		Where(constants.TableUserAccesses+".anchor_day = ?", anchorDay).
		Where(constants.TablePlans+".billing_cycle IN ?", []string{
			vo.BillingCycleMonthly.String(),
			vo.BillingCycleYearly.String(),
		}).
		Where(constants.TableUserAccesses+".expires_at IS NULL OR "+constants.TableUserAccesses+".expires_at > ?", now).
		Find(&accessModels).Error

	if err != nil {
		r.logger.Errorw("failed to list accesses for anniversary", "error", err, "anchor_day", anchorDay)
		return nil, fmt.Errorf("failed to list accesses for anniversary: %w", err)
	}

	return r.toEntities(accessModels)
}

func (r *UserAccessRepositoryImpl) toEntity(model *models.UserAccessModel) (*metering.UserAccess, error) {
	var expiresAt time.Time
	if model.ExpiresAt != nil {
		expiresAt = *model.ExpiresAt
	}

	return metering.ReconstructUserAccess(
		model.ID,
		model.SID,
		model.UUID,
		model.UserID,
		model.PlanID,
		expiresAt,
		model.CancelAtPeriodEnd,
		model.AnchorDay,
		model.CreatedAt,
		model.UpdatedAt,
	)
}

func (r *UserAccessRepositoryImpl) toEntities(accessModels []*models.UserAccessModel) ([]*metering.UserAccess, error) {
	entities := make([]*metering.UserAccess, 0, len(accessModels))
	for _, model := range accessModels {
		entity, err := r.toEntity(model)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func (r *UserAccessRepositoryImpl) toModel(access *metering.UserAccess) *models.UserAccessModel {
	var expiresAt *time.Time
	if !access.ExpiresAt().IsZero() {
		expiry := access.ExpiresAt()
		expiresAt = &expiry
	}

	return &models.UserAccessModel{
		ID:                access.ID(),
		SID:               access.SID(),
		UUID:              access.UUID(),
		UserID:            access.UserID(),
		PlanID:            access.PlanID(),
		ExpiresAt:         expiresAt,
		CancelAtPeriodEnd: access.CancelAtPeriodEnd(),
		AnchorDay:         access.AnchorDay(),
		CreatedAt:         access.CreatedAt(),
		UpdatedAt:         access.UpdatedAt(),
	}
}
