package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatolabs/storefront-backend/pkg/enums"
)

// Address stores a structured postal address owned by a user or a guest
// session. At most one row per (owner, type-class) carries IsDefault.
type Address struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     *uuid.UUID        `gorm:"column:user_id;type:uuid;index"`
	SessionID  *string           `gorm:"column:session_id;index"`
	Type       enums.AddressType `gorm:"column:type;type:text;not null"`
	IsDefault  bool              `gorm:"column:is_default;not null;default:false"`
	FullName   string            `gorm:"column:full_name;not null"`
	Line1      string            `gorm:"column:line1;not null"`
	Line2      *string           `gorm:"column:line2"`
	City       string            `gorm:"column:city;not null"`
	State      string            `gorm:"column:state;not null"`
	PostalCode string            `gorm:"column:postal_code;not null"`
	Country    string            `gorm:"column:country;not null"`
	Phone      string            `gorm:"column:phone;not null"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
