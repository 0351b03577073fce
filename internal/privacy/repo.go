package privacy

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/internal/repo"
	"github.com/mercatolabs/storefront-backend/pkg/db/models"
)

// Repository persists privacy settings and user preferences.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.PrivacySetting, error)
	Create(ctx context.Context, setting *models.PrivacySetting) error
	Update(ctx context.Context, setting *models.PrivacySetting) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	FindPreferencesByUser(ctx context.Context, userID uuid.UUID) (*models.UserPreference, error)
	DeletePreferencesByUser(ctx context.Context, userID uuid.UUID) error
}

type repository struct {
	base repo.Base
}

// NewRepository builds a privacy repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.Rebind(tx)}
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.PrivacySetting, error) {
	var setting models.PrivacySetting
	if err := r.base.DB(ctx).First(&setting, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repository) Create(ctx context.Context, setting *models.PrivacySetting) error {
	return r.base.DB(ctx).Create(setting).Error
}

func (r *repository) Update(ctx context.Context, setting *models.PrivacySetting) error {
	return r.base.DB(ctx).Save(setting).Error
}

func (r *repository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.base.DB(ctx).Delete(&models.PrivacySetting{}, "user_id = ?", userID).Error
}

func (r *repository) FindPreferencesByUser(ctx context.Context, userID uuid.UUID) (*models.UserPreference, error) {
	var pref models.UserPreference
	if err := r.base.DB(ctx).First(&pref, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *repository) DeletePreferencesByUser(ctx context.Context, userID uuid.UUID) error {
	return r.base.DB(ctx).Delete(&models.UserPreference{}, "user_id = ?", userID).Error
}
