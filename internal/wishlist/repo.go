package wishlist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/internal/repo"
	"github.com/mercatolabs/storefront-backend/pkg/db/models"
)

// Repository persists per-user wishlist rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.WishlistItem) error
	FindByUserAndListing(ctx context.Context, userID, listingID uuid.UUID) (*models.WishlistItem, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error)
	DeleteByUserAndListing(ctx context.Context, userID, listingID uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type repository struct {
	base repo.Base
}

// NewRepository builds a wishlist repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.Rebind(tx)}
}

func (r *repository) Create(ctx context.Context, item *models.WishlistItem) error {
	return r.base.DB(ctx).Create(item).Error
}

func (r *repository) FindByUserAndListing(ctx context.Context, userID, listingID uuid.UUID) (*models.WishlistItem, error) {
	var item models.WishlistItem
	err := r.base.DB(ctx).
		First(&item, "user_id = ? AND listing_id = ?", userID, listingID).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	var rows []models.WishlistItem
	err := r.base.DB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeleteByUserAndListing(ctx context.Context, userID, listingID uuid.UUID) error {
	return r.base.DB(ctx).
		Delete(&models.WishlistItem{}, "user_id = ? AND listing_id = ?", userID, listingID).Error
}

func (r *repository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.base.DB(ctx).
		Delete(&models.WishlistItem{}, "user_id = ?", userID).Error
}
