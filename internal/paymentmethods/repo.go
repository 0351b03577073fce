package paymentmethods

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/internal/repo"
	"github.com/mercatolabs/storefront-backend/pkg/db/models"
)

// Repository persists payment methods.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, method *models.PaymentMethod) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)
	FindByCode(ctx context.Context, code string) (*models.PaymentMethod, error)
	List(ctx context.Context, activeOnly bool) ([]models.PaymentMethod, error)
	Update(ctx context.Context, method *models.PaymentMethod) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	base repo.Base
}

// NewRepository builds a payment method repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.Rebind(tx)}
}

func (r *repository) Create(ctx context.Context, method *models.PaymentMethod) error {
	return r.base.DB(ctx).Create(method).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := r.base.DB(ctx).First(&method, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	if err := r.base.DB(ctx).First(&method, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]models.PaymentMethod, error) {
	q := r.base.DB(ctx)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.PaymentMethod
	err := q.
		Order("position ASC").
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, method *models.PaymentMethod) error {
	return r.base.DB(ctx).Save(method).Error
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.base.DB(ctx).
		Model(&models.PaymentMethod{}).
		Where("id = ?", id).
		UpdateColumn("is_active", active).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.base.DB(ctx).Delete(&models.PaymentMethod{}, "id = ?", id).Error
}
