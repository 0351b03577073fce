package wishlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
)

type AddItemRequest struct {
	ListingID uuid.UUID `json:"listing_id" validate:"required"`
}

type ItemDTO struct {
	ID        uuid.UUID `json:"id"`
	ListingID uuid.UUID `json:"listing_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func FromModel(item *models.WishlistItem, title string) *ItemDTO {
	if item == nil {
		return nil
	}
	return &ItemDTO{
		ID:        item.ID,
		ListingID: item.ListingID,
		Title:     title,
		CreatedAt: item.CreatedAt,
	}
}
