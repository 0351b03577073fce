package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatolabs/storefront-backend/pkg/enums"
)

// PaymentMethod is a manually settled method offered at checkout.
type PaymentMethod struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string                  `gorm:"column:name;not null"`
	Code        string                  `gorm:"column:code;not null;uniqueIndex"`
	Type        enums.PaymentMethodType `gorm:"column:type;type:text;not null"`
	Description *string                 `gorm:"column:description"`
	IsActive    bool                    `gorm:"column:is_active;not null;default:true"`
	Position    int                     `gorm:"column:position;not null;default:0"`
	Config      map[string]any          `gorm:"column:config;type:jsonb;serializer:json"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
