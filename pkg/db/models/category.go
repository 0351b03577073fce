package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a node in the storefront navigation tree. The parent chain
// must stay acyclic; slug matching is case-sensitive exact.
type Category struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	Slug        string     `gorm:"column:slug;not null;uniqueIndex"`
	Description *string    `gorm:"column:description"`
	ParentID    *uuid.UUID `gorm:"column:parent_id;type:uuid;index"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	Position    int        `gorm:"column:position;not null;default:0"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
