package privacy

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercatolabs/storefront-backend/internal/addresses"
	"github.com/mercatolabs/storefront-backend/internal/orders"
	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
)

type UpdateSettingsRequest struct {
	AnalyticsConsent  *bool   `json:"analytics_consent"`
	MarketingConsent  *bool   `json:"marketing_consent"`
	DataSharing       *bool   `json:"data_sharing"`
	ThirdPartySharing *bool   `json:"third_party_sharing"`
	ProfileVisibility *string `json:"profile_visibility" validate:"omitempty,oneof=private public"`
	GDPRConsent       bool    `json:"gdpr_consent"`
	ConsentSource     string  `json:"consent_source" validate:"omitempty,max=20"`
}

// RequestMeta carries the caller context stamped on accepted consent
// mutations. The IP is anonymized before storage.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type SettingsDTO struct {
	AnalyticsConsent   bool                `json:"analytics_consent"`
	MarketingConsent   bool                `json:"marketing_consent"`
	DataSharing        bool                `json:"data_sharing"`
	ThirdPartySharing  bool                `json:"third_party_sharing"`
	ProfileVisibility  string              `json:"profile_visibility"`
	LastConsentUpdate  *time.Time          `json:"last_consent_update,omitempty"`
	ConsentSource      enums.ConsentSource `json:"consent_source"`
	IPAddressAtConsent *string             `json:"ip_address_at_consent,omitempty"`
	UserAgentAtConsent *string             `json:"user_agent_at_consent,omitempty"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type PreferencesDTO struct {
	Locale     string `json:"locale"`
	Currency   string `json:"currency"`
	Newsletter bool   `json:"newsletter"`
}

type ExportedUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportBundle is the JSON document returned by the data export endpoint.
type ExportBundle struct {
	ExportedAt  time.Time              `json:"exported_at"`
	User        ExportedUser           `json:"user"`
	Preferences *PreferencesDTO        `json:"preferences,omitempty"`
	Privacy     *SettingsDTO           `json:"privacy"`
	Addresses   []addresses.AddressDTO `json:"addresses"`
	Orders      []orders.OrderDTO      `json:"orders"`
	WishlistIDs []uuid.UUID            `json:"wishlist_listing_ids"`
}

func FromModel(setting *models.PrivacySetting) *SettingsDTO {
	if setting == nil {
		return nil
	}
	return &SettingsDTO{
		AnalyticsConsent:   setting.AnalyticsConsent,
		MarketingConsent:   setting.MarketingConsent,
		DataSharing:        setting.DataSharing,
		ThirdPartySharing:  setting.ThirdPartySharing,
		ProfileVisibility:  setting.ProfileVisibility,
		LastConsentUpdate:  setting.LastConsentUpdate,
		ConsentSource:      setting.ConsentSource,
		IPAddressAtConsent: setting.IPAddressAtConsent,
		UserAgentAtConsent: setting.UserAgentAtConsent,
		UpdatedAt:          setting.UpdatedAt,
	}
}
