package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/internal/repo"
	"github.com/mercatolabs/storefront-backend/pkg/db/models"
)

// Repository exposes read/maintenance operations over the product catalog
// used by carts, categories and variant management.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindListingByID(ctx context.Context, id uuid.UUID) (*models.ProductListing, error)
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductListingVariant, error)
	ListListingsByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.ProductListing, error)
	CountListingsByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
	UpdateListingCategory(ctx context.Context, listingID uuid.UUID, categoryID *uuid.UUID) error
}

type repository struct {
	base repo.Base
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.Rebind(tx)}
}

func (r *repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.base.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindListingByID(ctx context.Context, id uuid.UUID) (*models.ProductListing, error) {
	var listing models.ProductListing
	if err := r.base.DB(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductListingVariant, error) {
	var variant models.ProductListingVariant
	if err := r.base.DB(ctx).Preload("OptionValues").First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) ListListingsByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.ProductListing, error) {
	var rows []models.ProductListing
	err := r.base.DB(ctx).
		Where("category_id = ?", categoryID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountListingsByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.ProductListing{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}

func (r *repository) UpdateListingCategory(ctx context.Context, listingID uuid.UUID, categoryID *uuid.UUID) error {
	return r.base.DB(ctx).
		Model(&models.ProductListing{}).
		Where("id = ?", listingID).
		UpdateColumn("category_id", categoryID).Error
}
