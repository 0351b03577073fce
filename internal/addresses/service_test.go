package addresses

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
	"github.com/mercatolabs/storefront-backend/pkg/types"
)

type stubAddressRepo struct {
	rows []*models.Address
	now  time.Time
}

func newStubAddressRepo() *stubAddressRepo {
	return &stubAddressRepo{now: time.Now().UTC()}
}

func (s *stubAddressRepo) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func (s *stubAddressRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubAddressRepo) Create(_ context.Context, address *models.Address) error {
	address.ID = uuid.New()
	address.CreatedAt = s.tick()
	s.rows = append(s.rows, address)
	return nil
}

func (s *stubAddressRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Address, error) {
	for _, row := range s.rows {
		if row.ID == id {
			copied := *row
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubAddressRepo) matchesOwner(row *models.Address, owner types.Owner) bool {
	return owner.Matches(row.UserID, row.SessionID)
}

func (s *stubAddressRepo) ListByOwner(_ context.Context, owner types.Owner, typeFilter *enums.AddressType) ([]models.Address, error) {
	var out []models.Address
	for _, row := range s.rows {
		if !s.matchesOwner(row, owner) {
			continue
		}
		if typeFilter != nil && !row.Type.Matches(*typeFilter) {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (s *stubAddressRepo) Update(_ context.Context, address *models.Address) error {
	for i, row := range s.rows {
		if row.ID == address.ID {
			copied := *address
			s.rows[i] = &copied
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *stubAddressRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, row := range s.rows {
		if row.ID == id {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *stubAddressRepo) ClearDefaults(_ context.Context, owner types.Owner, class enums.AddressType, excludeID uuid.UUID) error {
	for _, row := range s.rows {
		if row.ID == excludeID || !s.matchesOwner(row, owner) {
			continue
		}
		if row.Type.Matches(class) {
			row.IsDefault = false
		}
	}
	return nil
}

func (s *stubAddressRepo) SetDefaultFlag(_ context.Context, id uuid.UUID, value bool) error {
	for _, row := range s.rows {
		if row.ID == id {
			row.IsDefault = value
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *stubAddressRepo) FindLatestInClass(_ context.Context, owner types.Owner, class enums.AddressType, excludeID uuid.UUID) (*models.Address, error) {
	var candidates []*models.Address
	for _, row := range s.rows {
		if row.ID == excludeID || !s.matchesOwner(row, owner) || !row.Type.Matches(class) {
			continue
		}
		candidates = append(candidates, row)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	copied := *candidates[0]
	return &copied, nil
}

func (s *stubAddressRepo) CountInClass(_ context.Context, owner types.Owner, class enums.AddressType) (int64, error) {
	var count int64
	for _, row := range s.rows {
		if s.matchesOwner(row, owner) && row.Type.Matches(class) {
			count++
		}
	}
	return count, nil
}

func (s *stubAddressRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.UserID == nil || *row.UserID != userID {
			kept = append(kept, row)
		}
	}
	s.rows = kept
	return nil
}

func (s *stubAddressRepo) defaultsInClass(owner types.Owner, class enums.AddressType) int {
	count := 0
	for _, row := range s.rows {
		if s.matchesOwner(row, owner) && row.Type.Matches(class) && row.IsDefault {
			count++
		}
	}
	return count
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func buildAddressService(t *testing.T) (Service, *stubAddressRepo) {
	t.Helper()
	repo := newStubAddressRepo()
	svc, err := NewService(ServiceParams{Repo: repo, Tx: stubTxRunner{}})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, repo
}

func validCreate(addrType string) CreateAddressRequest {
	return CreateAddressRequest{
		Type:       addrType,
		FullName:   "Dana Shopper",
		Line1:      "1 Main St",
		City:       "Springfield",
		State:      "IL",
		PostalCode: "62701",
		Country:    "US",
		Phone:      "+1 (555) 123-4567",
	}
}

func TestCreateFirstAddressBecomesDefault(t *testing.T) {
	t.Parallel()

	svc, repo := buildAddressService(t)
	owner := types.UserOwner(uuid.New())

	first, err := svc.Create(context.Background(), owner, validCreate("shipping"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !first.IsDefault {
		t.Fatalf("expected first shipping address to be default")
	}

	second, err := svc.Create(context.Background(), owner, validCreate("shipping"))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.IsDefault {
		t.Fatalf("expected second address to not be default")
	}
	if repo.defaultsInClass(owner, enums.AddressTypeShipping) != 1 {
		t.Fatalf("expected exactly one shipping default")
	}
}

func TestCreateExplicitDefaultClearsSiblings(t *testing.T) {
	t.Parallel()

	svc, repo := buildAddressService(t)
	owner := types.UserOwner(uuid.New())

	if _, err := svc.Create(context.Background(), owner, validCreate("shipping")); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := validCreate("shipping")
	req.IsDefault = true
	created, err := svc.Create(context.Background(), owner, req)
	if err != nil {
		t.Fatalf("create default: %v", err)
	}
	if !created.IsDefault {
		t.Fatalf("expected explicit default to stick")
	}
	if repo.defaultsInClass(owner, enums.AddressTypeShipping) != 1 {
		t.Fatalf("expected exactly one shipping default after explicit create")
	}
}

func TestBothTypeSharesDefaultWithEitherClass(t *testing.T) {
	t.Parallel()

	svc, repo := buildAddressService(t)
	owner := types.UserOwner(uuid.New())

	if _, err := svc.Create(context.Background(), owner, validCreate("shipping")); err != nil {
		t.Fatalf("create shipping: %v", err)
	}

	req := validCreate("both")
	req.IsDefault = true
	if _, err := svc.Create(context.Background(), owner, req); err != nil {
		t.Fatalf("create both: %v", err)
	}

	if repo.defaultsInClass(owner, enums.AddressTypeShipping) != 1 {
		t.Fatalf("expected one shipping-class default, got %d", repo.defaultsInClass(owner, enums.AddressTypeShipping))
	}
}

func TestDeleteDefaultPromotesLatestSibling(t *testing.T) {
	t.Parallel()

	svc, repo := buildAddressService(t)
	owner := types.UserOwner(uuid.New())

	first, err := svc.Create(context.Background(), owner, validCreate("billing"))
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.Create(context.Background(), owner, validCreate("billing"))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	third, err := svc.Create(context.Background(), owner, validCreate("billing"))
	if err != nil {
		t.Fatalf("create third: %v", err)
	}

	if err := svc.Delete(context.Background(), owner, first.ID); err != nil {
		t.Fatalf("delete default: %v", err)
	}

	promoted, err := repo.FindByID(context.Background(), third.ID)
	if err != nil {
		t.Fatalf("reload third: %v", err)
	}
	if !promoted.IsDefault {
		t.Fatalf("expected most recent sibling to be promoted")
	}
	surviving, err := repo.FindByID(context.Background(), second.ID)
	if err != nil {
		t.Fatalf("reload second: %v", err)
	}
	if surviving.IsDefault {
		t.Fatalf("expected older sibling to stay non-default")
	}
	if repo.defaultsInClass(owner, enums.AddressTypeBilling) != 1 {
		t.Fatalf("expected exactly one billing default after promotion")
	}
}

func TestDeleteNonDefaultLeavesDefaultUntouched(t *testing.T) {
	t.Parallel()

	svc, repo := buildAddressService(t)
	owner := types.UserOwner(uuid.New())

	first, err := svc.Create(context.Background(), owner, validCreate("shipping"))
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.Create(context.Background(), owner, validCreate("shipping"))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	if err := svc.Delete(context.Background(), owner, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	remaining, err := repo.FindByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if !remaining.IsDefault {
		t.Fatalf("expected original default to survive")
	}
}

func TestSetDefaultClearsSiblings(t *testing.T) {
	t.Parallel()

	svc, repo := buildAddressService(t)
	owner := types.GuestOwner("sess-123")

	first, err := svc.Create(context.Background(), owner, validCreate("shipping"))
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.Create(context.Background(), owner, validCreate("shipping"))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	updated, err := svc.SetDefault(context.Background(), owner, second.ID)
	if err != nil {
		t.Fatalf("set default: %v", err)
	}
	if !updated.IsDefault {
		t.Fatalf("expected new default flag")
	}
	old, err := repo.FindByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if old.IsDefault {
		t.Fatalf("expected previous default cleared")
	}
}

func TestCrossOwnerAccessIsForbidden(t *testing.T) {
	t.Parallel()

	svc, _ := buildAddressService(t)
	owner := types.UserOwner(uuid.New())
	other := types.UserOwner(uuid.New())

	created, err := svc.Create(context.Background(), owner, validCreate("shipping"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Get(context.Background(), other, created.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for cross-owner get, got %v", err)
	}

	err = svc.Delete(context.Background(), other, created.ID)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for cross-owner delete, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	svc, _ := buildAddressService(t)
	owner := types.UserOwner(uuid.New())

	cases := []struct {
		name   string
		mutate func(*CreateAddressRequest)
	}{
		{"missing full name", func(r *CreateAddressRequest) { r.FullName = "  " }},
		{"missing line1", func(r *CreateAddressRequest) { r.Line1 = "" }},
		{"postal without digits", func(r *CreateAddressRequest) { r.PostalCode = "ABCDE" }},
		{"phone too short", func(r *CreateAddressRequest) { r.Phone = "123456" }},
		{"phone too long", func(r *CreateAddressRequest) { r.Phone = "1234567890123456" }},
		{"phone bad characters", func(r *CreateAddressRequest) { r.Phone = "555-CALL-NOW" }},
		{"invalid type", func(r *CreateAddressRequest) { r.Type = "warehouse" }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := validCreate("shipping")
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), owner, req)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUpdateToDefaultRebalances(t *testing.T) {
	t.Parallel()

	svc, repo := buildAddressService(t)
	owner := types.UserOwner(uuid.New())

	first, err := svc.Create(context.Background(), owner, validCreate("shipping"))
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.Create(context.Background(), owner, validCreate("shipping"))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	makeDefault := true
	updated, err := svc.Update(context.Background(), owner, second.ID, UpdateAddressRequest{IsDefault: &makeDefault})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.IsDefault {
		t.Fatalf("expected update to set default")
	}
	old, err := repo.FindByID(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if old.IsDefault {
		t.Fatalf("expected prior default cleared by update")
	}
}

func TestUpdateTypeChangeDisplacesDestinationDefault(t *testing.T) {
	t.Parallel()

	svc, repo := buildAddressService(t)
	owner := types.UserOwner(uuid.New())

	shipping, err := svc.Create(context.Background(), owner, validCreate("shipping"))
	if err != nil {
		t.Fatalf("create shipping: %v", err)
	}
	billing, err := svc.Create(context.Background(), owner, validCreate("billing"))
	if err != nil {
		t.Fatalf("create billing: %v", err)
	}
	if !shipping.IsDefault || !billing.IsDefault {
		t.Fatalf("expected both class defaults to start set")
	}

	newType := "billing"
	moved, err := svc.Update(context.Background(), owner, shipping.ID, UpdateAddressRequest{Type: &newType})
	if err != nil {
		t.Fatalf("update type: %v", err)
	}
	if !moved.IsDefault {
		t.Fatalf("expected moved address to stay default in its new class")
	}

	if got := repo.defaultsInClass(owner, enums.AddressTypeBilling); got != 1 {
		t.Fatalf("expected one billing default after type change, got %d", got)
	}
	old, err := repo.FindByID(context.Background(), billing.ID)
	if err != nil {
		t.Fatalf("reload billing: %v", err)
	}
	if old.IsDefault {
		t.Fatalf("expected displaced billing default to be cleared")
	}
}

func TestUpdateTypeChangeToBothDisplacesEveryDefault(t *testing.T) {
	t.Parallel()

	svc, repo := buildAddressService(t)
	owner := types.UserOwner(uuid.New())

	shipping, err := svc.Create(context.Background(), owner, validCreate("shipping"))
	if err != nil {
		t.Fatalf("create shipping: %v", err)
	}
	if _, err := svc.Create(context.Background(), owner, validCreate("billing")); err != nil {
		t.Fatalf("create billing: %v", err)
	}

	newType := "both"
	if _, err := svc.Update(context.Background(), owner, shipping.ID, UpdateAddressRequest{Type: &newType}); err != nil {
		t.Fatalf("update type: %v", err)
	}

	if got := repo.defaultsInClass(owner, enums.AddressTypeShipping); got != 1 {
		t.Fatalf("expected one shipping-class default, got %d", got)
	}
	if got := repo.defaultsInClass(owner, enums.AddressTypeBilling); got != 1 {
		t.Fatalf("expected one billing-class default, got %d", got)
	}
}

func TestDeletePromotingBothTypedHeirKeepsSingleDefaults(t *testing.T) {
	t.Parallel()

	svc, repo := buildAddressService(t)
	owner := types.UserOwner(uuid.New())

	billing, err := svc.Create(context.Background(), owner, validCreate("billing"))
	if err != nil {
		t.Fatalf("create billing: %v", err)
	}
	shipping, err := svc.Create(context.Background(), owner, validCreate("shipping"))
	if err != nil {
		t.Fatalf("create shipping: %v", err)
	}
	heir, err := svc.Create(context.Background(), owner, validCreate("both"))
	if err != nil {
		t.Fatalf("create both: %v", err)
	}
	if heir.IsDefault {
		t.Fatalf("expected both-typed address to start non-default")
	}

	if err := svc.Delete(context.Background(), owner, shipping.ID); err != nil {
		t.Fatalf("delete shipping default: %v", err)
	}

	promoted, err := repo.FindByID(context.Background(), heir.ID)
	if err != nil {
		t.Fatalf("reload heir: %v", err)
	}
	if !promoted.IsDefault {
		t.Fatalf("expected both-typed heir to be promoted")
	}
	if got := repo.defaultsInClass(owner, enums.AddressTypeBilling); got != 1 {
		t.Fatalf("expected one billing-class default after promotion, got %d", got)
	}
	if got := repo.defaultsInClass(owner, enums.AddressTypeShipping); got != 1 {
		t.Fatalf("expected one shipping-class default after promotion, got %d", got)
	}
	displaced, err := repo.FindByID(context.Background(), billing.ID)
	if err != nil {
		t.Fatalf("reload billing: %v", err)
	}
	if displaced.IsDefault {
		t.Fatalf("expected billing default displaced by both-typed heir")
	}
}

func TestListFiltersByTypeClass(t *testing.T) {
	t.Parallel()

	svc, _ := buildAddressService(t)
	owner := types.UserOwner(uuid.New())

	if _, err := svc.Create(context.Background(), owner, validCreate("shipping")); err != nil {
		t.Fatalf("create shipping: %v", err)
	}
	if _, err := svc.Create(context.Background(), owner, validCreate("billing")); err != nil {
		t.Fatalf("create billing: %v", err)
	}
	if _, err := svc.Create(context.Background(), owner, validCreate("both")); err != nil {
		t.Fatalf("create both: %v", err)
	}

	shipping := enums.AddressTypeShipping
	rows, err := svc.List(context.Background(), owner, &shipping)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected shipping filter to include both-typed rows, got %d", len(rows))
	}
}
