package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityLog is an append-only audit trail. Rows are never updated.
type ActivityLog struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    *uuid.UUID     `gorm:"column:user_id;type:uuid;index"`
	SessionID *string        `gorm:"column:session_id"`
	Action    string         `gorm:"column:action;not null;index"`
	Detail    map[string]any `gorm:"column:detail;type:jsonb;serializer:json"`
	IPAddress *string        `gorm:"column:ip_address"`
	UserAgent *string        `gorm:"column:user_agent"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}
