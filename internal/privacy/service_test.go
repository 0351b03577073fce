package privacy

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/internal/orders"
	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
	"github.com/mercatolabs/storefront-backend/pkg/logger"
	"github.com/mercatolabs/storefront-backend/pkg/pagination"
	"github.com/mercatolabs/storefront-backend/pkg/types"
)

type stubPrivacyRepo struct {
	settings    map[uuid.UUID]*models.PrivacySetting
	preferences map[uuid.UUID]*models.UserPreference
	prefsErr    error
}

func newStubPrivacyRepo() *stubPrivacyRepo {
	return &stubPrivacyRepo{
		settings:    map[uuid.UUID]*models.PrivacySetting{},
		preferences: map[uuid.UUID]*models.UserPreference{},
	}
}

func (s *stubPrivacyRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubPrivacyRepo) FindByUser(_ context.Context, userID uuid.UUID) (*models.PrivacySetting, error) {
	setting, ok := s.settings[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *setting
	return &copied, nil
}

func (s *stubPrivacyRepo) Create(_ context.Context, setting *models.PrivacySetting) error {
	setting.ID = uuid.New()
	copied := *setting
	s.settings[setting.UserID] = &copied
	return nil
}

func (s *stubPrivacyRepo) Update(_ context.Context, setting *models.PrivacySetting) error {
	if _, ok := s.settings[setting.UserID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *setting
	s.settings[setting.UserID] = &copied
	return nil
}

func (s *stubPrivacyRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	delete(s.settings, userID)
	return nil
}

func (s *stubPrivacyRepo) FindPreferencesByUser(_ context.Context, userID uuid.UUID) (*models.UserPreference, error) {
	pref, ok := s.preferences[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *pref
	return &copied, nil
}

func (s *stubPrivacyRepo) DeletePreferencesByUser(_ context.Context, userID uuid.UUID) error {
	if s.prefsErr != nil {
		return s.prefsErr
	}
	delete(s.preferences, userID)
	return nil
}

type stubUserStore struct {
	users   map[uuid.UUID]*models.User
	deleted []uuid.UUID
}

func (s *stubUserStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUserStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.users, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type stubAddressStore struct {
	rows    map[uuid.UUID][]models.Address
	deleted []uuid.UUID
}

func (s *stubAddressStore) ListByOwner(_ context.Context, owner types.Owner, _ *enums.AddressType) ([]models.Address, error) {
	if owner.UserID == nil {
		return nil, nil
	}
	return s.rows[*owner.UserID], nil
}

func (s *stubAddressStore) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	delete(s.rows, userID)
	s.deleted = append(s.deleted, userID)
	return nil
}

type stubWishlistStore struct {
	rows    map[uuid.UUID][]models.WishlistItem
	deleted []uuid.UUID
}

func (s *stubWishlistStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	return s.rows[userID], nil
}

func (s *stubWishlistStore) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	delete(s.rows, userID)
	s.deleted = append(s.deleted, userID)
	return nil
}

type stubCartPurger struct {
	deleted []uuid.UUID
}

func (s *stubCartPurger) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	s.deleted = append(s.deleted, userID)
	return nil
}

type stubOrderLister struct {
	pages map[uuid.UUID]*orders.OrderPage
}

func (s *stubOrderLister) ListByOwner(_ context.Context, owner types.Owner, _ pagination.Params, _ *enums.OrderStatus) (*orders.OrderPage, error) {
	if owner.UserID != nil {
		if page, ok := s.pages[*owner.UserID]; ok {
			return page, nil
		}
	}
	return &orders.OrderPage{}, nil
}

type stubAudit struct {
	entries []*models.ActivityLog
}

func (s *stubAudit) Append(_ context.Context, entry *models.ActivityLog) error {
	s.entries = append(s.entries, entry)
	return nil
}

type privacyFixture struct {
	svc      Service
	repo     *stubPrivacyRepo
	users    *stubUserStore
	address  *stubAddressStore
	wishlist *stubWishlistStore
	carts    *stubCartPurger
	orders   *stubOrderLister
	audit    *stubAudit
}

func buildPrivacyService(t *testing.T) privacyFixture {
	t.Helper()
	f := privacyFixture{
		repo:     newStubPrivacyRepo(),
		users:    &stubUserStore{users: map[uuid.UUID]*models.User{}},
		address:  &stubAddressStore{rows: map[uuid.UUID][]models.Address{}},
		wishlist: &stubWishlistStore{rows: map[uuid.UUID][]models.WishlistItem{}},
		carts:    &stubCartPurger{},
		orders:   &stubOrderLister{pages: map[uuid.UUID]*orders.OrderPage{}},
		audit:    &stubAudit{},
	}
	svc, err := NewService(ServiceParams{
		Repo:          f.repo,
		Users:         f.users,
		Addresses:     f.address,
		Wishlist:      f.wishlist,
		Carts:         f.carts,
		Orders:        f.orders,
		Audit:         f.audit,
		Log:           logger.New(logger.Options{Output: io.Discard}),
		DefaultSource: enums.ConsentSourceAPI,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	f.svc = svc
	return f
}

func (f privacyFixture) seedUser(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	f.users.users[id] = &models.User{ID: id, Email: "user@example.com", FirstName: "Ada", LastName: "Lovelace"}
	return id
}

func boolPtr(v bool) *bool { return &v }

func TestGetMyCreatesDefaultSettings(t *testing.T) {
	t.Parallel()

	f := buildPrivacyService(t)
	userID := f.seedUser(t)

	dto, err := f.svc.GetMy(context.Background(), userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if dto.AnalyticsConsent || dto.MarketingConsent || dto.DataSharing || dto.ThirdPartySharing {
		t.Fatalf("expected all consents false by default")
	}
	if dto.ProfileVisibility != "private" {
		t.Fatalf("expected private default visibility, got %q", dto.ProfileVisibility)
	}
	if _, ok := f.repo.settings[userID]; !ok {
		t.Fatalf("expected settings row persisted")
	}
}

func TestUpdateConsentRequiresGDPRConsent(t *testing.T) {
	t.Parallel()

	f := buildPrivacyService(t)
	userID := f.seedUser(t)

	_, err := f.svc.UpdateMy(context.Background(), userID, UpdateSettingsRequest{
		AnalyticsConsent: boolPtr(true),
	}, RequestMeta{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error without gdpr_consent, got %v", err)
	}

	stored := f.repo.settings[userID]
	if stored.AnalyticsConsent {
		t.Fatalf("expected consent unchanged on rejected update")
	}
}

func TestUpdateStampsAuditMetadata(t *testing.T) {
	t.Parallel()

	f := buildPrivacyService(t)
	userID := f.seedUser(t)

	dto, err := f.svc.UpdateMy(context.Background(), userID, UpdateSettingsRequest{
		AnalyticsConsent: boolPtr(true),
		GDPRConsent:      true,
		ConsentSource:    "web",
	}, RequestMeta{IPAddress: "203.0.113.42", UserAgent: "storefront-test/1.0"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if !dto.AnalyticsConsent {
		t.Fatalf("expected analytics consent granted")
	}
	if dto.LastConsentUpdate == nil {
		t.Fatalf("expected last_consent_update stamped")
	}
	if dto.ConsentSource != enums.ConsentSourceWeb {
		t.Fatalf("expected web consent source, got %s", dto.ConsentSource)
	}
	if dto.IPAddressAtConsent == nil || *dto.IPAddressAtConsent != "203.0.113.0" {
		t.Fatalf("expected anonymized IPv4, got %v", dto.IPAddressAtConsent)
	}
	if dto.UserAgentAtConsent == nil || *dto.UserAgentAtConsent != "storefront-test/1.0" {
		t.Fatalf("expected user agent stamped, got %v", dto.UserAgentAtConsent)
	}

	if len(f.audit.entries) != 1 || f.audit.entries[0].Action != "privacy.settings_updated" {
		t.Fatalf("expected one audit entry, got %v", f.audit.entries)
	}
}

func TestUpdateNonConsentFieldSkipsGate(t *testing.T) {
	t.Parallel()

	f := buildPrivacyService(t)
	userID := f.seedUser(t)

	visibility := "public"
	dto, err := f.svc.UpdateMy(context.Background(), userID, UpdateSettingsRequest{
		ProfileVisibility: &visibility,
	}, RequestMeta{})
	if err != nil {
		t.Fatalf("update visibility: %v", err)
	}
	if dto.ProfileVisibility != "public" {
		t.Fatalf("expected public visibility, got %q", dto.ProfileVisibility)
	}
}

func TestResetWithdrawsAllConsents(t *testing.T) {
	t.Parallel()

	f := buildPrivacyService(t)
	userID := f.seedUser(t)

	if _, err := f.svc.UpdateMy(context.Background(), userID, UpdateSettingsRequest{
		AnalyticsConsent: boolPtr(true),
		MarketingConsent: boolPtr(true),
		GDPRConsent:      true,
	}, RequestMeta{}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	dto, err := f.svc.ResetMy(context.Background(), userID, RequestMeta{IPAddress: "2001:db8::dead:beef"})
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if dto.AnalyticsConsent || dto.MarketingConsent {
		t.Fatalf("expected consents withdrawn")
	}
	if dto.IPAddressAtConsent == nil || *dto.IPAddressAtConsent != "2001:db8::" {
		t.Fatalf("expected anonymized IPv6, got %v", dto.IPAddressAtConsent)
	}
}

func TestExportBundlesUserData(t *testing.T) {
	t.Parallel()

	f := buildPrivacyService(t)
	userID := f.seedUser(t)
	listingID := uuid.New()

	f.repo.preferences[userID] = &models.UserPreference{UserID: userID, Locale: "de", Currency: "EUR"}
	f.address.rows[userID] = []models.Address{{ID: uuid.New(), UserID: &userID, City: "Berlin"}}
	f.wishlist.rows[userID] = []models.WishlistItem{{ID: uuid.New(), UserID: userID, ListingID: listingID}}
	f.orders.pages[userID] = &orders.OrderPage{Orders: []orders.OrderDTO{{ID: uuid.New(), Number: "SF-TEST"}}, Total: 1}

	bundle, err := f.svc.ExportMyData(context.Background(), userID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if bundle.User.Email != "user@example.com" {
		t.Fatalf("expected user email in bundle")
	}
	if bundle.Preferences == nil || bundle.Preferences.Locale != "de" {
		t.Fatalf("expected preferences in bundle, got %v", bundle.Preferences)
	}
	if len(bundle.Addresses) != 1 || len(bundle.Orders) != 1 {
		t.Fatalf("expected addresses and orders in bundle")
	}
	if len(bundle.WishlistIDs) != 1 || bundle.WishlistIDs[0] != listingID {
		t.Fatalf("expected wishlist listing ids, got %v", bundle.WishlistIDs)
	}
}

func TestDeleteMyDataRunsFullCascade(t *testing.T) {
	t.Parallel()

	f := buildPrivacyService(t)
	userID := f.seedUser(t)
	f.repo.settings[userID] = &models.PrivacySetting{UserID: userID}
	f.repo.preferences[userID] = &models.UserPreference{UserID: userID}

	if err := f.svc.DeleteMyData(context.Background(), userID, RequestMeta{}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(f.repo.settings) != 0 || len(f.repo.preferences) != 0 {
		t.Fatalf("expected privacy rows removed")
	}
	if len(f.address.deleted) != 1 || len(f.wishlist.deleted) != 1 || len(f.carts.deleted) != 1 {
		t.Fatalf("expected cascade to hit every store")
	}
	if len(f.users.deleted) != 1 || f.users.deleted[0] != userID {
		t.Fatalf("expected user deleted last")
	}
}

func TestDeleteMyDataContinuesPastFailures(t *testing.T) {
	t.Parallel()

	f := buildPrivacyService(t)
	userID := f.seedUser(t)
	f.repo.prefsErr = errors.New("preferences table locked")

	err := f.svc.DeleteMyData(context.Background(), userID, RequestMeta{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInternal {
		t.Fatalf("expected internal error on partial failure, got %v", err)
	}

	// Later steps still ran despite the early failure.
	if len(f.users.deleted) != 1 {
		t.Fatalf("expected user deletion attempted after failed step")
	}
}

func TestAnonymizeIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"192.168.1.77", "192.168.1.0"},
		{"203.0.113.42:8443", "203.0.113.0"},
		{"2001:db8:1234:5678:9abc:def0:1234:5678", "2001:db8:1234:5678::"},
		{"not-an-ip", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := AnonymizeIP(tc.in); got != tc.want {
			t.Fatalf("AnonymizeIP(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
