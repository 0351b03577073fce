package addresses

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
)

// CreateAddressRequest carries the fields accepted when storing a new address.
type CreateAddressRequest struct {
	Type       string  `json:"type" validate:"required"`
	FullName   string  `json:"full_name" validate:"required,max=255"`
	Line1      string  `json:"line1" validate:"required,max=255"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=255"`
	City       string  `json:"city" validate:"required,max=100"`
	State      string  `json:"state" validate:"required,max=100"`
	PostalCode string  `json:"postal_code" validate:"required,max=20"`
	Country    string  `json:"country" validate:"required,max=100"`
	Phone      string  `json:"phone" validate:"required,max=30"`
	IsDefault  bool    `json:"is_default"`
}

// UpdateAddressRequest patches an existing address. Nil fields are untouched.
type UpdateAddressRequest struct {
	Type       *string `json:"type,omitempty"`
	FullName   *string `json:"full_name,omitempty" validate:"omitempty,max=255"`
	Line1      *string `json:"line1,omitempty" validate:"omitempty,max=255"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=255"`
	City       *string `json:"city,omitempty" validate:"omitempty,max=100"`
	State      *string `json:"state,omitempty" validate:"omitempty,max=100"`
	PostalCode *string `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	Country    *string `json:"country,omitempty" validate:"omitempty,max=100"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	IsDefault  *bool   `json:"is_default,omitempty"`
}

// AddressDTO is the transport shape of a stored address.
type AddressDTO struct {
	ID         uuid.UUID         `json:"id"`
	Type       enums.AddressType `json:"type"`
	IsDefault  bool              `json:"is_default"`
	FullName   string            `json:"full_name"`
	Line1      string            `json:"line1"`
	Line2      *string           `json:"line2,omitempty"`
	City       string            `json:"city"`
	State      string            `json:"state"`
	PostalCode string            `json:"postal_code"`
	Country    string            `json:"country"`
	Phone      string            `json:"phone"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// FromModel maps a persisted address to its transport shape.
func FromModel(a *models.Address) *AddressDTO {
	if a == nil {
		return nil
	}
	return &AddressDTO{
		ID:         a.ID,
		Type:       a.Type,
		IsDefault:  a.IsDefault,
		FullName:   a.FullName,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// FromModels maps a slice of address rows.
func FromModels(rows []models.Address) []AddressDTO {
	out := make([]AddressDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
