package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
)

// AddItemRequest adds a listing (optionally a specific variant) to the cart.
type AddItemRequest struct {
	ListingID uuid.UUID  `json:"listing_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,gt=0"`
}

// UpdateItemRequest replaces the quantity of an existing line.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// MigrateRequest carries the guest session whose cart should move to the
// authenticated caller.
type MigrateRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// CartItemDTO is the transport shape of one cart line.
type CartItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	ListingID uuid.UUID       `json:"listing_id"`
	VariantID *uuid.UUID      `json:"variant_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	CreatedAt time.Time       `json:"created_at"`
}

// CartDTO is the transport shape of the caller's cart.
type CartDTO struct {
	ID       *uuid.UUID       `json:"id,omitempty"`
	Status   enums.CartStatus `json:"status"`
	Items    []CartItemDTO    `json:"items"`
	Subtotal decimal.Decimal  `json:"subtotal"`
}

// EmptyCart is returned when the owner has no active cart yet.
func EmptyCart() *CartDTO {
	return &CartDTO{
		Status:   enums.CartStatusActive,
		Items:    []CartItemDTO{},
		Subtotal: decimal.Zero,
	}
}

// FromModel maps a persisted cart with items to its transport shape.
func FromModel(c *models.Cart) *CartDTO {
	if c == nil {
		return EmptyCart()
	}

	items := make([]CartItemDTO, 0, len(c.Items))
	subtotal := decimal.Zero
	for _, item := range c.Items {
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, CartItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			ListingID: item.ListingID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: lineTotal,
			CreatedAt: item.CreatedAt,
		})
	}

	id := c.ID
	return &CartDTO{
		ID:       &id,
		Status:   c.Status,
		Items:    items,
		Subtotal: subtotal,
	}
}
