package privacy

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/internal/addresses"
	"github.com/mercatolabs/storefront-backend/internal/orders"
	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
	"github.com/mercatolabs/storefront-backend/pkg/logger"
	"github.com/mercatolabs/storefront-backend/pkg/pagination"
	"github.com/mercatolabs/storefront-backend/pkg/types"
)

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type addressStore interface {
	ListByOwner(ctx context.Context, owner types.Owner, typeFilter *enums.AddressType) ([]models.Address, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type wishlistStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type cartPurger interface {
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type orderLister interface {
	ListByOwner(ctx context.Context, owner types.Owner, params pagination.Params, status *enums.OrderStatus) (*orders.OrderPage, error)
}

type auditAppender interface {
	Append(ctx context.Context, entry *models.ActivityLog) error
}

// Service implements the privacy and data-subject-rights surface.
type Service interface {
	GetMy(ctx context.Context, userID uuid.UUID) (*SettingsDTO, error)
	UpdateMy(ctx context.Context, userID uuid.UUID, req UpdateSettingsRequest, meta RequestMeta) (*SettingsDTO, error)
	ResetMy(ctx context.Context, userID uuid.UUID, meta RequestMeta) (*SettingsDTO, error)
	ExportMyData(ctx context.Context, userID uuid.UUID) (*ExportBundle, error)
	DeleteMyData(ctx context.Context, userID uuid.UUID, meta RequestMeta) error
}

type ServiceParams struct {
	Repo          Repository
	Users         userStore
	Addresses     addressStore
	Wishlist      wishlistStore
	Carts         cartPurger
	Orders        orderLister
	Audit         auditAppender
	Log           *logger.Logger
	DefaultSource enums.ConsentSource
}

type service struct {
	repo          Repository
	users         userStore
	addresses     addressStore
	wishlist      wishlistStore
	carts         cartPurger
	orders        orderLister
	audit         auditAppender
	log           *logger.Logger
	defaultSource enums.ConsentSource
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("privacy repository is required")
	}
	if params.Users == nil {
		return nil, errors.New("user store is required")
	}
	if params.Addresses == nil {
		return nil, errors.New("address store is required")
	}
	if params.Wishlist == nil {
		return nil, errors.New("wishlist store is required")
	}
	if params.Carts == nil {
		return nil, errors.New("cart purger is required")
	}
	if params.Orders == nil {
		return nil, errors.New("order lister is required")
	}
	if params.Audit == nil {
		return nil, errors.New("audit appender is required")
	}
	if params.Log == nil {
		return nil, errors.New("logger is required")
	}
	source := params.DefaultSource
	if !source.IsValid() {
		source = enums.ConsentSourceAPI
	}
	return &service{
		repo:          params.Repo,
		users:         params.Users,
		addresses:     params.Addresses,
		wishlist:      params.Wishlist,
		carts:         params.Carts,
		orders:        params.Orders,
		audit:         params.Audit,
		log:           params.Log,
		defaultSource: source,
	}, nil
}

// GetMy returns the user's settings, creating the default row on first
// access.
func (s *service) GetMy(ctx context.Context, userID uuid.UUID) (*SettingsDTO, error) {
	setting, err := s.loadOrInit(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(setting), nil
}

func (s *service) UpdateMy(ctx context.Context, userID uuid.UUID, req UpdateSettingsRequest, meta RequestMeta) (*SettingsDTO, error) {
	setting, err := s.loadOrInit(ctx, userID)
	if err != nil {
		return nil, err
	}

	touchesConsent := req.AnalyticsConsent != nil || req.MarketingConsent != nil ||
		req.DataSharing != nil || req.ThirdPartySharing != nil
	if touchesConsent && !req.GDPRConsent {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gdpr_consent must be true to change consent settings")
	}

	changed := map[string]any{}
	if req.AnalyticsConsent != nil && *req.AnalyticsConsent != setting.AnalyticsConsent {
		setting.AnalyticsConsent = *req.AnalyticsConsent
		changed["analytics_consent"] = *req.AnalyticsConsent
	}
	if req.MarketingConsent != nil && *req.MarketingConsent != setting.MarketingConsent {
		setting.MarketingConsent = *req.MarketingConsent
		changed["marketing_consent"] = *req.MarketingConsent
	}
	if req.DataSharing != nil && *req.DataSharing != setting.DataSharing {
		setting.DataSharing = *req.DataSharing
		changed["data_sharing"] = *req.DataSharing
	}
	if req.ThirdPartySharing != nil && *req.ThirdPartySharing != setting.ThirdPartySharing {
		setting.ThirdPartySharing = *req.ThirdPartySharing
		changed["third_party_sharing"] = *req.ThirdPartySharing
	}
	if req.ProfileVisibility != nil {
		visibility := strings.TrimSpace(*req.ProfileVisibility)
		if visibility != "private" && visibility != "public" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile_visibility must be private or public")
		}
		if visibility != setting.ProfileVisibility {
			setting.ProfileVisibility = visibility
			changed["profile_visibility"] = visibility
		}
	}

	if len(changed) == 0 {
		return FromModel(setting), nil
	}

	s.stampConsent(setting, req.ConsentSource, meta)
	if err := s.repo.Update(ctx, setting); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update privacy settings")
	}
	s.appendAudit(ctx, userID, "privacy.settings_updated", changed, meta)
	return FromModel(setting), nil
}

// ResetMy withdraws every consent and returns the settings to their
// defaults; the reset itself is an auditable consent event.
func (s *service) ResetMy(ctx context.Context, userID uuid.UUID, meta RequestMeta) (*SettingsDTO, error) {
	setting, err := s.loadOrInit(ctx, userID)
	if err != nil {
		return nil, err
	}

	setting.AnalyticsConsent = false
	setting.MarketingConsent = false
	setting.DataSharing = false
	setting.ThirdPartySharing = false
	setting.ProfileVisibility = "private"
	s.stampConsent(setting, "", meta)

	if err := s.repo.Update(ctx, setting); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reset privacy settings")
	}
	s.appendAudit(ctx, userID, "privacy.settings_reset", nil, meta)
	return FromModel(setting), nil
}

func (s *service) ExportMyData(ctx context.Context, userID uuid.UUID) (*ExportBundle, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	bundle := &ExportBundle{
		ExportedAt: time.Now().UTC(),
		User: ExportedUser{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Phone:     user.Phone,
			CreatedAt: user.CreatedAt,
		},
	}

	if pref, err := s.repo.FindPreferencesByUser(ctx, userID); err == nil {
		bundle.Preferences = &PreferencesDTO{
			Locale:     pref.Locale,
			Currency:   pref.Currency,
			Newsletter: pref.Newsletter,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load preferences")
	}

	setting, err := s.loadOrInit(ctx, userID)
	if err != nil {
		return nil, err
	}
	bundle.Privacy = FromModel(setting)

	owner := types.UserOwner(userID)
	addressRows, err := s.addresses.ListByOwner(ctx, owner, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load addresses")
	}
	bundle.Addresses = addresses.FromModels(addressRows)

	page, err := s.orders.ListByOwner(ctx, owner, pagination.Params{Limit: pagination.MaxLimit}, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load orders")
	}
	bundle.Orders = page.Orders

	wishlistRows, err := s.wishlist.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wishlist")
	}
	bundle.WishlistIDs = make([]uuid.UUID, 0, len(wishlistRows))
	for i := range wishlistRows {
		bundle.WishlistIDs = append(bundle.WishlistIDs, wishlistRows[i].ListingID)
	}

	s.appendAudit(ctx, userID, "privacy.data_exported", nil, RequestMeta{})
	return bundle, nil
}

// DeleteMyData runs the erasure cascade. Steps run sequentially and are not
// rolled back on partial failure; every failure is collected and the call
// reports INTERNAL if any step failed.
func (s *service) DeleteMyData(ctx context.Context, userID uuid.UUID, meta RequestMeta) error {
	if _, err := s.loadUser(ctx, userID); err != nil {
		return err
	}

	s.appendAudit(ctx, userID, "privacy.data_deleted", nil, meta)

	var errs error
	steps := []struct {
		name string
		run  func() error
	}{
		{"preferences", func() error { return s.repo.DeletePreferencesByUser(ctx, userID) }},
		{"privacy_settings", func() error { return s.repo.DeleteByUser(ctx, userID) }},
		{"addresses", func() error { return s.addresses.DeleteByUser(ctx, userID) }},
		{"wishlist", func() error { return s.wishlist.DeleteByUser(ctx, userID) }},
		{"carts", func() error { return s.carts.DeleteByUser(ctx, userID) }},
		{"user", func() error { return s.users.Delete(ctx, userID) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			s.log.Error(ctx, "gdpr delete step failed: "+step.name, err)
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, errs, "delete user data")
	}
	return nil
}

func (s *service) loadOrInit(ctx context.Context, userID uuid.UUID) (*models.PrivacySetting, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "privacy settings require an authenticated user")
	}
	setting, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return setting, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load privacy settings")
	}

	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	setting = &models.PrivacySetting{
		UserID:            userID,
		ProfileVisibility: "private",
		ConsentSource:     s.defaultSource,
	}
	if err := s.repo.Create(ctx, setting); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "init privacy settings")
	}
	return setting, nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "privacy settings require an authenticated user")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

func (s *service) stampConsent(setting *models.PrivacySetting, rawSource string, meta RequestMeta) {
	now := time.Now().UTC()
	setting.LastConsentUpdate = &now

	source := s.defaultSource
	if parsed, err := enums.ParseConsentSource(strings.TrimSpace(rawSource)); err == nil {
		source = parsed
	}
	setting.ConsentSource = source

	if anon := AnonymizeIP(meta.IPAddress); anon != "" {
		setting.IPAddressAtConsent = &anon
	}
	if ua := strings.TrimSpace(meta.UserAgent); ua != "" {
		setting.UserAgentAtConsent = &ua
	}
}

func (s *service) appendAudit(ctx context.Context, userID uuid.UUID, action string, detail map[string]any, meta RequestMeta) {
	entry := &models.ActivityLog{
		UserID: &userID,
		Action: action,
		Detail: detail,
	}
	if anon := AnonymizeIP(meta.IPAddress); anon != "" {
		entry.IPAddress = &anon
	}
	if ua := strings.TrimSpace(meta.UserAgent); ua != "" {
		entry.UserAgent = &ua
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Error(ctx, "append activity log", err)
	}
}

// AnonymizeIP zeroes the host part of an address before storage: the last
// octet for IPv4, the last 64 bits for IPv6. Unparseable input yields "".
func AnonymizeIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	ip := net.ParseIP(raw)
	if ip == nil {
		return ""
	}
	if v4 := ip.To4(); v4 != nil {
		v4[3] = 0
		return v4.String()
	}
	v6 := ip.To16()
	for i := 8; i < 16; i++ {
		v6[i] = 0
	}
	return v6.String()
}
