package options

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/internal/repo"
	"github.com/mercatolabs/storefront-backend/pkg/db/models"
)

// Repository persists option groups, option values and listing variants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateGroup(ctx context.Context, group *models.OptionGroup) error
	FindGroupByID(ctx context.Context, id uuid.UUID) (*models.OptionGroup, error)
	FindGroupByCode(ctx context.Context, code string) (*models.OptionGroup, error)
	ListGroups(ctx context.Context) ([]models.OptionGroup, error)
	UpdateGroup(ctx context.Context, group *models.OptionGroup) error
	DeleteGroup(ctx context.Context, id uuid.UUID) error

	CreateValue(ctx context.Context, value *models.OptionValue) error
	CreateValues(ctx context.Context, values []models.OptionValue) error
	FindValueByID(ctx context.Context, id uuid.UUID) (*models.OptionValue, error)
	FindValueByGroupAndCode(ctx context.Context, groupID uuid.UUID, code string) (*models.OptionValue, error)
	ListValuesByGroup(ctx context.Context, groupID uuid.UUID) ([]models.OptionValue, error)
	ListValuesByListing(ctx context.Context, listingID uuid.UUID) ([]models.OptionValue, error)
	UpdateValue(ctx context.Context, value *models.OptionValue) error
	DeleteValue(ctx context.Context, id uuid.UUID) error

	CreateVariant(ctx context.Context, variant *models.ProductListingVariant) error
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductListingVariant, error)
	FindVariantBySKU(ctx context.Context, sku string) (*models.ProductListingVariant, error)
	ListVariantsByListing(ctx context.Context, listingID uuid.UUID) ([]models.ProductListingVariant, error)
	UpdateVariant(ctx context.Context, variant *models.ProductListingVariant) error
	ReplaceVariantValues(ctx context.Context, variant *models.ProductListingVariant, values []models.OptionValue) error
}

type repository struct {
	base repo.Base
}

// NewRepository builds an options repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.Rebind(tx)}
}

func (r *repository) CreateGroup(ctx context.Context, group *models.OptionGroup) error {
	return r.base.DB(ctx).Create(group).Error
}

func (r *repository) FindGroupByID(ctx context.Context, id uuid.UUID) (*models.OptionGroup, error) {
	var group models.OptionGroup
	err := r.base.DB(ctx).
		Preload("Values", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&group, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repository) FindGroupByCode(ctx context.Context, code string) (*models.OptionGroup, error) {
	var group models.OptionGroup
	if err := r.base.DB(ctx).First(&group, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *repository) ListGroups(ctx context.Context) ([]models.OptionGroup, error) {
	var rows []models.OptionGroup
	err := r.base.DB(ctx).
		Preload("Values", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("position ASC").
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateGroup(ctx context.Context, group *models.OptionGroup) error {
	return r.base.DB(ctx).Omit("Values").Save(group).Error
}

func (r *repository) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	return r.base.DB(ctx).Delete(&models.OptionGroup{}, "id = ?", id).Error
}

func (r *repository) CreateValue(ctx context.Context, value *models.OptionValue) error {
	return r.base.DB(ctx).Create(value).Error
}

func (r *repository) CreateValues(ctx context.Context, values []models.OptionValue) error {
	if len(values) == 0 {
		return nil
	}
	return r.base.DB(ctx).Create(&values).Error
}

func (r *repository) FindValueByID(ctx context.Context, id uuid.UUID) (*models.OptionValue, error) {
	var value models.OptionValue
	if err := r.base.DB(ctx).First(&value, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &value, nil
}

func (r *repository) FindValueByGroupAndCode(ctx context.Context, groupID uuid.UUID, code string) (*models.OptionValue, error) {
	var value models.OptionValue
	err := r.base.DB(ctx).
		First(&value, "group_id = ? AND code = ?", groupID, code).Error
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (r *repository) ListValuesByGroup(ctx context.Context, groupID uuid.UUID) ([]models.OptionValue, error) {
	var rows []models.OptionValue
	err := r.base.DB(ctx).
		Where("group_id = ?", groupID).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListValuesByListing resolves the distinct option values used by any variant
// of the listing.
func (r *repository) ListValuesByListing(ctx context.Context, listingID uuid.UUID) ([]models.OptionValue, error) {
	var rows []models.OptionValue
	err := r.base.DB(ctx).
		Distinct("option_values.*").
		Joins("JOIN variant_option_values vov ON vov.option_value_id = option_values.id").
		Joins("JOIN product_listing_variants v ON v.id = vov.product_listing_variant_id").
		Where("v.listing_id = ?", listingID).
		Order("option_values.position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateValue(ctx context.Context, value *models.OptionValue) error {
	return r.base.DB(ctx).Save(value).Error
}

func (r *repository) DeleteValue(ctx context.Context, id uuid.UUID) error {
	return r.base.DB(ctx).Delete(&models.OptionValue{}, "id = ?", id).Error
}

func (r *repository) CreateVariant(ctx context.Context, variant *models.ProductListingVariant) error {
	return r.base.DB(ctx).Create(variant).Error
}

func (r *repository) FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductListingVariant, error) {
	var variant models.ProductListingVariant
	err := r.base.DB(ctx).
		Preload("OptionValues").
		First(&variant, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) FindVariantBySKU(ctx context.Context, sku string) (*models.ProductListingVariant, error) {
	var variant models.ProductListingVariant
	if err := r.base.DB(ctx).First(&variant, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *repository) ListVariantsByListing(ctx context.Context, listingID uuid.UUID) ([]models.ProductListingVariant, error) {
	var rows []models.ProductListingVariant
	err := r.base.DB(ctx).
		Preload("OptionValues").
		Where("listing_id = ?", listingID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateVariant(ctx context.Context, variant *models.ProductListingVariant) error {
	return r.base.DB(ctx).Omit("OptionValues").Save(variant).Error
}

func (r *repository) ReplaceVariantValues(ctx context.Context, variant *models.ProductListingVariant, values []models.OptionValue) error {
	return r.base.DB(ctx).Model(variant).Association("OptionValues").Replace(values)
}
