package paymentmethods

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
)

type CreateMethodRequest struct {
	Name        string         `json:"name" validate:"required,max=100"`
	Code        string         `json:"code" validate:"omitempty,max=100"`
	Type        string         `json:"type" validate:"required"`
	Description *string        `json:"description" validate:"omitempty,max=2000"`
	IsActive    *bool          `json:"is_active"`
	Position    int            `json:"position" validate:"gte=0"`
	Config      map[string]any `json:"config"`
}

type UpdateMethodRequest struct {
	Name        *string        `json:"name" validate:"omitempty,max=100"`
	Description *string        `json:"description" validate:"omitempty,max=2000"`
	Position    *int           `json:"position" validate:"omitempty,gte=0"`
	Config      map[string]any `json:"config"`
}

type MethodDTO struct {
	ID          uuid.UUID               `json:"id"`
	Name        string                  `json:"name"`
	Code        string                  `json:"code"`
	Type        enums.PaymentMethodType `json:"type"`
	Description *string                 `json:"description,omitempty"`
	IsActive    bool                    `json:"is_active"`
	Position    int                     `json:"position"`
	Config      map[string]any          `json:"config,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// MethodStats reports how many orders have settled (or attempted to settle)
// through each method.
type MethodStats struct {
	MethodID     uuid.UUID `json:"method_id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	IsActive     bool      `json:"is_active"`
	PaymentCount int64     `json:"payment_count"`
}

func FromModel(method *models.PaymentMethod) *MethodDTO {
	if method == nil {
		return nil
	}
	return &MethodDTO{
		ID:          method.ID,
		Name:        method.Name,
		Code:        method.Code,
		Type:        method.Type,
		Description: method.Description,
		IsActive:    method.IsActive,
		Position:    method.Position,
		Config:      method.Config,
		CreatedAt:   method.CreatedAt,
		UpdatedAt:   method.UpdatedAt,
	}
}

func FromModels(methods []models.PaymentMethod) []MethodDTO {
	out := make([]MethodDTO, 0, len(methods))
	for i := range methods {
		out = append(out, *FromModel(&methods[i]))
	}
	return out
}
