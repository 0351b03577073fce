package models

import (
	"time"

	"github.com/google/uuid"
)

// WishlistItem links a user to a saved product listing.
type WishlistItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index;uniqueIndex:idx_wishlist_user_listing"`
	ListingID uuid.UUID `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:idx_wishlist_user_listing"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
