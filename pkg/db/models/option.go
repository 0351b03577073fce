package models

import (
	"time"

	"github.com/google/uuid"
)

// OptionGroup names a variant axis such as "size" or "color".
type OptionGroup struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string        `gorm:"column:name;not null"`
	Code      string        `gorm:"column:code;not null;uniqueIndex"`
	Position  int           `gorm:"column:position;not null;default:0"`
	Values    []OptionValue `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// OptionValue is one selectable value within a group; its code is unique
// within the group.
type OptionValue struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID   uuid.UUID `gorm:"column:group_id;type:uuid;not null;index;uniqueIndex:idx_option_values_group_code"`
	Value     string    `gorm:"column:value;not null"`
	Code      string    `gorm:"column:code;not null;uniqueIndex:idx_option_values_group_code"`
	Position  int       `gorm:"column:position;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
