package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the physical good; listings describe how it is sold.
type Product struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title     string    `gorm:"column:title;not null"`
	SKU       string    `gorm:"column:sku;not null;uniqueIndex"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductListing is a sellable presentation of a product, optionally placed
// in a category.
type ProductListing struct {
	ID         uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID  uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	CategoryID *uuid.UUID              `gorm:"column:category_id;type:uuid;index"`
	Title      string                  `gorm:"column:title;not null"`
	Slug       string                  `gorm:"column:slug;not null;uniqueIndex"`
	BasePrice  decimal.Decimal         `gorm:"column:base_price;type:numeric(12,2);not null"`
	IsActive   bool                    `gorm:"column:is_active;not null;default:true"`
	Variants   []ProductListingVariant `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductListingVariant is identified by its listing plus a set of option
// values; the SKU is globally unique.
type ProductListingVariant struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID    uuid.UUID       `gorm:"column:listing_id;type:uuid;not null;index"`
	SKU          string          `gorm:"column:sku;not null;uniqueIndex"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	OptionValues []OptionValue   `gorm:"many2many:variant_option_values;"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
