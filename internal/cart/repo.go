package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/internal/repo"
	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
	"github.com/mercatolabs/storefront-backend/pkg/types"
)

// Repository defines persistence operations for carts and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cart *models.Cart) error
	FindActiveByOwner(ctx context.Context, owner types.Owner) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	UpdateOwner(ctx context.Context, cartID, userID uuid.UUID) error
	UpdateStatus(ctx context.Context, cartID uuid.UUID, status enums.CartStatus) error
	Delete(ctx context.Context, cartID uuid.UUID) error
	CreateItem(ctx context.Context, item *models.CartItem) error
	FindItemByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error)
	UpdateItemQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	DeleteItemsByCart(ctx context.Context, cartID uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type repository struct {
	base repo.Base
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.Rebind(tx)}
}

func (r *repository) Create(ctx context.Context, cart *models.Cart) error {
	return r.base.DB(ctx).Create(cart).Error
}

func (r *repository) FindActiveByOwner(ctx context.Context, owner types.Owner) (*models.Cart, error) {
	q := r.base.DB(ctx).Preload("Items").Where("status = ?", enums.CartStatusActive)
	if owner.IsUser() {
		q = q.Where("user_id = ?", *owner.UserID)
	} else {
		q = q.Where("session_id = ?", *owner.SessionID)
	}

	var cart models.Cart
	if err := q.Order("created_at DESC").First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.base.DB(ctx).Preload("Items").First(&cart, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) UpdateOwner(ctx context.Context, cartID, userID uuid.UUID) error {
	return r.base.DB(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Updates(map[string]any{"user_id": userID, "session_id": nil}).Error
}

func (r *repository) UpdateStatus(ctx context.Context, cartID uuid.UUID, status enums.CartStatus) error {
	return r.base.DB(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("status", status).Error
}

func (r *repository) Delete(ctx context.Context, cartID uuid.UUID) error {
	return r.base.DB(ctx).Delete(&models.Cart{}, "id = ?", cartID).Error
}

func (r *repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.base.DB(ctx).Create(item).Error
}

func (r *repository) FindItemByID(ctx context.Context, id uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.base.DB(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateItemQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.base.DB(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", id).
		UpdateColumn("quantity", quantity).Error
}

func (r *repository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return r.base.DB(ctx).Delete(&models.CartItem{}, "id = ?", id).Error
}

func (r *repository) DeleteItemsByCart(ctx context.Context, cartID uuid.UUID) error {
	return r.base.DB(ctx).Delete(&models.CartItem{}, "cart_id = ?", cartID).Error
}

// DeleteByUser removes every cart the user owns along with its lines.
func (r *repository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	db := r.base.DB(ctx)
	err := db.
		Where("cart_id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Cart{}).
			Select("id").
			Where("user_id = ?", userID)).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return err
	}
	return db.Delete(&models.Cart{}, "user_id = ?", userID).Error
}
