package categories

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
)

type CreateCategoryRequest struct {
	Name        string     `json:"name" validate:"required,max=150"`
	Slug        string     `json:"slug" validate:"omitempty,max=150"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	ParentID    *uuid.UUID `json:"parent_id"`
	IsActive    *bool      `json:"is_active"`
	Position    int        `json:"position" validate:"gte=0"`
}

type UpdateCategoryRequest struct {
	Name        *string    `json:"name" validate:"omitempty,max=150"`
	Slug        *string    `json:"slug" validate:"omitempty,max=150"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	ParentID    *uuid.UUID `json:"parent_id"`
	ClearParent bool       `json:"clear_parent"`
	IsActive    *bool      `json:"is_active"`
	Position    *int       `json:"position" validate:"omitempty,gte=0"`
}

type AssignProductsRequest struct {
	ListingIDs []uuid.UUID `json:"listing_ids" validate:"required,min=1"`
}

type MoveProductsRequest struct {
	TargetCategoryID uuid.UUID `json:"target_category_id" validate:"required"`
}

type CategoryDTO struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description *string    `json:"description,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TreeNode is a category with its resolved children, used by the tree and
// navigation reads.
type TreeNode struct {
	CategoryDTO
	Children []TreeNode `json:"children"`
}

type CategoryStats struct {
	CategoryID   uuid.UUID `json:"category_id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	ListingCount int64     `json:"listing_count"`
}

func FromModel(category *models.Category) *CategoryDTO {
	if category == nil {
		return nil
	}
	return &CategoryDTO{
		ID:          category.ID,
		Name:        category.Name,
		Slug:        category.Slug,
		Description: category.Description,
		ParentID:    category.ParentID,
		IsActive:    category.IsActive,
		Position:    category.Position,
		CreatedAt:   category.CreatedAt,
		UpdatedAt:   category.UpdatedAt,
	}
}

func FromModels(categories []models.Category) []CategoryDTO {
	out := make([]CategoryDTO, 0, len(categories))
	for i := range categories {
		out = append(out, *FromModel(&categories[i]))
	}
	return out
}
