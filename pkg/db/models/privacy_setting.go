package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatolabs/storefront-backend/pkg/enums"
)

// PrivacySetting holds a user's consent flags plus the audit metadata
// stamped on every accepted mutation. IP addresses are stored anonymized.
type PrivacySetting struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID             uuid.UUID           `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	AnalyticsConsent   bool                `gorm:"column:analytics_consent;not null;default:false"`
	MarketingConsent   bool                `gorm:"column:marketing_consent;not null;default:false"`
	DataSharing        bool                `gorm:"column:data_sharing;not null;default:false"`
	ThirdPartySharing  bool                `gorm:"column:third_party_sharing;not null;default:false"`
	ProfileVisibility  string              `gorm:"column:profile_visibility;not null;default:'private'"`
	LastConsentUpdate  *time.Time          `gorm:"column:last_consent_update"`
	ConsentSource      enums.ConsentSource `gorm:"column:consent_source;type:text;not null;default:'api'"`
	IPAddressAtConsent *string             `gorm:"column:ip_address_at_consent"`
	UserAgentAtConsent *string             `gorm:"column:user_agent_at_consent"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// UserPreference keeps per-user storefront settings; part of the GDPR
// deletion cascade.
type UserPreference struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Locale     string    `gorm:"column:locale;not null;default:'en'"`
	Currency   string    `gorm:"column:currency;not null;default:'USD'"`
	Newsletter bool      `gorm:"column:newsletter;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
