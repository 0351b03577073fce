package addresses

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/internal/repo"
	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
	"github.com/mercatolabs/storefront-backend/pkg/types"
)

// Repository defines persistence operations for addresses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, address *models.Address) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Address, error)
	ListByOwner(ctx context.Context, owner types.Owner, typeFilter *enums.AddressType) ([]models.Address, error)
	Update(ctx context.Context, address *models.Address) error
	Delete(ctx context.Context, id uuid.UUID) error
	ClearDefaults(ctx context.Context, owner types.Owner, class enums.AddressType, excludeID uuid.UUID) error
	SetDefaultFlag(ctx context.Context, id uuid.UUID, value bool) error
	FindLatestInClass(ctx context.Context, owner types.Owner, class enums.AddressType, excludeID uuid.UUID) (*models.Address, error)
	CountInClass(ctx context.Context, owner types.Owner, class enums.AddressType) (int64, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type repository struct {
	base repo.Base
}

// NewRepository builds an addresses repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.Rebind(tx)}
}

// classTypes expands a type-class into the stored types that satisfy it. An
// address typed "both" belongs to every class.
func classTypes(class enums.AddressType) []enums.AddressType {
	switch class {
	case enums.AddressTypeShipping:
		return []enums.AddressType{enums.AddressTypeShipping, enums.AddressTypeBoth}
	case enums.AddressTypeBilling:
		return []enums.AddressType{enums.AddressTypeBilling, enums.AddressTypeBoth}
	default:
		return []enums.AddressType{enums.AddressTypeShipping, enums.AddressTypeBilling, enums.AddressTypeBoth}
	}
}

func ownerScope(q *gorm.DB, owner types.Owner) *gorm.DB {
	if owner.IsUser() {
		return q.Where("user_id = ?", *owner.UserID)
	}
	return q.Where("session_id = ?", *owner.SessionID)
}

func (r *repository) Create(ctx context.Context, address *models.Address) error {
	return r.base.DB(ctx).Create(address).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var address models.Address
	if err := r.base.DB(ctx).First(&address, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *repository) ListByOwner(ctx context.Context, owner types.Owner, typeFilter *enums.AddressType) ([]models.Address, error) {
	q := ownerScope(r.base.DB(ctx).Model(&models.Address{}), owner)
	if typeFilter != nil {
		q = q.Where("type IN ?", classTypes(*typeFilter))
	}

	var rows []models.Address
	if err := q.Order("is_default DESC").Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, address *models.Address) error {
	return r.base.DB(ctx).Save(address).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.base.DB(ctx).Delete(&models.Address{}, "id = ?", id).Error
}

func (r *repository) ClearDefaults(ctx context.Context, owner types.Owner, class enums.AddressType, excludeID uuid.UUID) error {
	q := ownerScope(r.base.DB(ctx).Model(&models.Address{}), owner).
		Where("type IN ?", classTypes(class)).
		Where("is_default = ?", true)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	return q.UpdateColumn("is_default", false).Error
}

func (r *repository) SetDefaultFlag(ctx context.Context, id uuid.UUID, value bool) error {
	return r.base.DB(ctx).
		Model(&models.Address{}).
		Where("id = ?", id).
		UpdateColumn("is_default", value).Error
}

func (r *repository) FindLatestInClass(ctx context.Context, owner types.Owner, class enums.AddressType, excludeID uuid.UUID) (*models.Address, error) {
	q := ownerScope(r.base.DB(ctx).Model(&models.Address{}), owner).
		Where("type IN ?", classTypes(class))
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}

	var address models.Address
	err := q.Order("created_at DESC").Order("id DESC").First(&address).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &address, nil
}

func (r *repository) CountInClass(ctx context.Context, owner types.Owner, class enums.AddressType) (int64, error) {
	var count int64
	err := ownerScope(r.base.DB(ctx).Model(&models.Address{}), owner).
		Where("type IN ?", classTypes(class)).
		Count(&count).Error
	return count, err
}

func (r *repository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.base.DB(ctx).Delete(&models.Address{}, "user_id = ?", userID).Error
}
