package options

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
)

type CreateGroupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Code     string `json:"code" validate:"omitempty,max=100"`
	Position int    `json:"position" validate:"gte=0"`
}

type UpdateGroupRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Position *int    `json:"position" validate:"omitempty,gte=0"`
}

type CreateValueRequest struct {
	GroupID  uuid.UUID `json:"group_id" validate:"required"`
	Value    string    `json:"value" validate:"required,max=100"`
	Code     string    `json:"code" validate:"omitempty,max=100"`
	Position int       `json:"position" validate:"gte=0"`
}

type BulkCreateValuesRequest struct {
	GroupID uuid.UUID       `json:"group_id" validate:"required"`
	Values  []BulkValueItem `json:"values" validate:"required,min=1,dive"`
}

type BulkValueItem struct {
	Value    string `json:"value" validate:"required,max=100"`
	Code     string `json:"code" validate:"omitempty,max=100"`
	Position int    `json:"position" validate:"gte=0"`
}

type UpdateValueRequest struct {
	Value    *string `json:"value" validate:"omitempty,max=100"`
	Position *int    `json:"position" validate:"omitempty,gte=0"`
}

type CreateVariantRequest struct {
	ListingID      uuid.UUID       `json:"listing_id" validate:"required"`
	SKU            string          `json:"sku" validate:"required,max=100"`
	Price          decimal.Decimal `json:"price" validate:"required"`
	OptionValueIDs []uuid.UUID     `json:"option_value_ids" validate:"required,min=1"`
}

type UpdateVariantRequest struct {
	SKU            *string          `json:"sku" validate:"omitempty,max=100"`
	Price          *decimal.Decimal `json:"price"`
	IsActive       *bool            `json:"is_active"`
	OptionValueIDs []uuid.UUID      `json:"option_value_ids"`
}

type OptionGroupDTO struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Code      string           `json:"code"`
	Position  int              `json:"position"`
	Values    []OptionValueDTO `json:"values,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type OptionValueDTO struct {
	ID        uuid.UUID `json:"id"`
	GroupID   uuid.UUID `json:"group_id"`
	Value     string    `json:"value"`
	Code      string    `json:"code"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

type VariantDTO struct {
	ID           uuid.UUID        `json:"id"`
	ListingID    uuid.UUID        `json:"listing_id"`
	SKU          string           `json:"sku"`
	Price        decimal.Decimal  `json:"price"`
	IsActive     bool             `json:"is_active"`
	OptionValues []OptionValueDTO `json:"option_values"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func GroupFromModel(group *models.OptionGroup) *OptionGroupDTO {
	if group == nil {
		return nil
	}
	return &OptionGroupDTO{
		ID:        group.ID,
		Name:      group.Name,
		Code:      group.Code,
		Position:  group.Position,
		Values:    ValuesFromModels(group.Values),
		CreatedAt: group.CreatedAt,
		UpdatedAt: group.UpdatedAt,
	}
}

func GroupsFromModels(groups []models.OptionGroup) []OptionGroupDTO {
	out := make([]OptionGroupDTO, 0, len(groups))
	for i := range groups {
		out = append(out, *GroupFromModel(&groups[i]))
	}
	return out
}

func ValueFromModel(value *models.OptionValue) *OptionValueDTO {
	if value == nil {
		return nil
	}
	return &OptionValueDTO{
		ID:        value.ID,
		GroupID:   value.GroupID,
		Value:     value.Value,
		Code:      value.Code,
		Position:  value.Position,
		CreatedAt: value.CreatedAt,
	}
}

func ValuesFromModels(values []models.OptionValue) []OptionValueDTO {
	out := make([]OptionValueDTO, 0, len(values))
	for i := range values {
		out = append(out, *ValueFromModel(&values[i]))
	}
	return out
}

func VariantFromModel(variant *models.ProductListingVariant) *VariantDTO {
	if variant == nil {
		return nil
	}
	return &VariantDTO{
		ID:           variant.ID,
		ListingID:    variant.ListingID,
		SKU:          variant.SKU,
		Price:        variant.Price,
		IsActive:     variant.IsActive,
		OptionValues: ValuesFromModels(variant.OptionValues),
		CreatedAt:    variant.CreatedAt,
		UpdatedAt:    variant.UpdatedAt,
	}
}
