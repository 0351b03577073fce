package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
	"github.com/mercatolabs/storefront-backend/pkg/types"
)

type stubCartRepo struct {
	carts map[uuid.UUID]*models.Cart
	items map[uuid.UUID]*models.CartItem
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{
		carts: map[uuid.UUID]*models.Cart{},
		items: map[uuid.UUID]*models.CartItem{},
	}
}

func (s *stubCartRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubCartRepo) Create(_ context.Context, cart *models.Cart) error {
	cart.ID = uuid.New()
	copied := *cart
	s.carts[cart.ID] = &copied
	return nil
}

func (s *stubCartRepo) cartItems(cartID uuid.UUID) []models.CartItem {
	var out []models.CartItem
	for _, item := range s.items {
		if item.CartID == cartID {
			out = append(out, *item)
		}
	}
	return out
}

func (s *stubCartRepo) FindActiveByOwner(_ context.Context, owner types.Owner) (*models.Cart, error) {
	for _, cart := range s.carts {
		if cart.Status != enums.CartStatusActive {
			continue
		}
		if owner.Matches(cart.UserID, cart.SessionID) {
			copied := *cart
			copied.Items = s.cartItems(cart.ID)
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCartRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Cart, error) {
	cart, ok := s.carts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *cart
	copied.Items = s.cartItems(id)
	return &copied, nil
}

func (s *stubCartRepo) UpdateOwner(_ context.Context, cartID, userID uuid.UUID) error {
	cart, ok := s.carts[cartID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	id := userID
	cart.UserID = &id
	cart.SessionID = nil
	return nil
}

func (s *stubCartRepo) UpdateStatus(_ context.Context, cartID uuid.UUID, status enums.CartStatus) error {
	cart, ok := s.carts[cartID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cart.Status = status
	return nil
}

func (s *stubCartRepo) Delete(_ context.Context, cartID uuid.UUID) error {
	delete(s.carts, cartID)
	return nil
}

func (s *stubCartRepo) CreateItem(_ context.Context, item *models.CartItem) error {
	item.ID = uuid.New()
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *stubCartRepo) FindItemByID(_ context.Context, id uuid.UUID) (*models.CartItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *stubCartRepo) UpdateItemQuantity(_ context.Context, id uuid.UUID, quantity int) error {
	item, ok := s.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.Quantity = quantity
	return nil
}

func (s *stubCartRepo) DeleteItem(_ context.Context, id uuid.UUID) error {
	delete(s.items, id)
	return nil
}

func (s *stubCartRepo) DeleteItemsByCart(_ context.Context, cartID uuid.UUID) error {
	for id, item := range s.items {
		if item.CartID == cartID {
			delete(s.items, id)
		}
	}
	return nil
}

func (s *stubCartRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	for id, cart := range s.carts {
		if cart.UserID != nil && *cart.UserID == userID {
			_ = s.DeleteItemsByCart(ctx, id)
			delete(s.carts, id)
		}
	}
	return nil
}

type stubCatalog struct {
	listings map[uuid.UUID]*models.ProductListing
	variants map[uuid.UUID]*models.ProductListingVariant
}

func (s *stubCatalog) FindListingByID(_ context.Context, id uuid.UUID) (*models.ProductListing, error) {
	if listing, ok := s.listings[id]; ok {
		return listing, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalog) FindVariantByID(_ context.Context, id uuid.UUID) (*models.ProductListingVariant, error) {
	if variant, ok := s.variants[id]; ok {
		return variant, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func buildCartService(t *testing.T) (Service, *stubCartRepo, *stubCatalog) {
	t.Helper()

	catalog := &stubCatalog{
		listings: map[uuid.UUID]*models.ProductListing{},
		variants: map[uuid.UUID]*models.ProductListingVariant{},
	}
	repo := newStubCartRepo()
	svc, err := NewService(ServiceParams{Repo: repo, Catalog: catalog, Tx: stubTxRunner{}})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, repo, catalog
}

func seedListing(catalog *stubCatalog, price string) *models.ProductListing {
	listing := &models.ProductListing{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		Title:     "Widget",
		BasePrice: decimal.RequireFromString(price),
		IsActive:  true,
	}
	catalog.listings[listing.ID] = listing
	return listing
}

func seedVariant(catalog *stubCatalog, listing *models.ProductListing, price string) *models.ProductListingVariant {
	variant := &models.ProductListingVariant{
		ID:        uuid.New(),
		ListingID: listing.ID,
		SKU:       "SKU-" + uuid.NewString()[:8],
		Price:     decimal.RequireFromString(price),
		IsActive:  true,
	}
	catalog.variants[variant.ID] = variant
	return variant
}

func TestGetCurrentWithoutCartReturnsEmpty(t *testing.T) {
	t.Parallel()

	svc, _, _ := buildCartService(t)
	dto, err := svc.GetCurrent(context.Background(), types.UserOwner(uuid.New()))
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if dto.ID != nil || len(dto.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", dto)
	}
}

func TestAddItemCreatesCartAndMergesLines(t *testing.T) {
	t.Parallel()

	svc, _, catalog := buildCartService(t)
	owner := types.UserOwner(uuid.New())
	listing := seedListing(catalog, "10.00")

	first, err := svc.AddItem(context.Background(), owner, AddItemRequest{ListingID: listing.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(first.Items) != 1 || first.Items[0].Quantity != 2 {
		t.Fatalf("expected single line qty 2, got %+v", first.Items)
	}

	second, err := svc.AddItem(context.Background(), owner, AddItemRequest{ListingID: listing.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("add same line: %v", err)
	}
	if len(second.Items) != 1 || second.Items[0].Quantity != 5 {
		t.Fatalf("expected merged line qty 5, got %+v", second.Items)
	}
	if !second.Subtotal.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("expected subtotal 50.00, got %s", second.Subtotal)
	}
}

func TestAddItemDistinctVariantsStaySeparate(t *testing.T) {
	t.Parallel()

	svc, _, catalog := buildCartService(t)
	owner := types.UserOwner(uuid.New())
	listing := seedListing(catalog, "10.00")
	small := seedVariant(catalog, listing, "12.00")
	large := seedVariant(catalog, listing, "15.00")

	if _, err := svc.AddItem(context.Background(), owner, AddItemRequest{ListingID: listing.ID, VariantID: &small.ID, Quantity: 1}); err != nil {
		t.Fatalf("add small: %v", err)
	}
	dto, err := svc.AddItem(context.Background(), owner, AddItemRequest{ListingID: listing.ID, VariantID: &large.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("add large: %v", err)
	}
	if len(dto.Items) != 2 {
		t.Fatalf("expected 2 lines for distinct variants, got %d", len(dto.Items))
	}
}

func TestAddItemUnknownListingOrVariant(t *testing.T) {
	t.Parallel()

	svc, _, catalog := buildCartService(t)
	owner := types.UserOwner(uuid.New())

	_, err := svc.AddItem(context.Background(), owner, AddItemRequest{ListingID: uuid.New(), Quantity: 1})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown listing, got %v", err)
	}

	listing := seedListing(catalog, "10.00")
	other := seedListing(catalog, "20.00")
	foreignVariant := seedVariant(catalog, other, "22.00")

	_, err = svc.AddItem(context.Background(), owner, AddItemRequest{ListingID: listing.ID, VariantID: &foreignVariant.ID, Quantity: 1})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for variant of another listing, got %v", err)
	}
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	svc, _, catalog := buildCartService(t)
	listing := seedListing(catalog, "10.00")

	_, err := svc.AddItem(context.Background(), types.UserOwner(uuid.New()), AddItemRequest{ListingID: listing.ID, Quantity: 0})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateItemForeignCartReadsAsMissing(t *testing.T) {
	t.Parallel()

	svc, _, catalog := buildCartService(t)
	listing := seedListing(catalog, "10.00")
	owner := types.UserOwner(uuid.New())
	intruder := types.UserOwner(uuid.New())

	dto, err := svc.AddItem(context.Background(), owner, AddItemRequest{ListingID: listing.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	_, err = svc.UpdateItem(context.Background(), intruder, dto.Items[0].ID, UpdateItemRequest{Quantity: 5})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign cart item, got %v", err)
	}

	_, err = svc.RemoveItem(context.Background(), intruder, dto.Items[0].ID)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign remove, got %v", err)
	}
}

func TestClearEmptiesCart(t *testing.T) {
	t.Parallel()

	svc, _, catalog := buildCartService(t)
	owner := types.GuestOwner("sess-9")
	listing := seedListing(catalog, "10.00")

	if _, err := svc.AddItem(context.Background(), owner, AddItemRequest{ListingID: listing.ID, Quantity: 4}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := svc.Clear(context.Background(), owner); err != nil {
		t.Fatalf("clear: %v", err)
	}
	dto, err := svc.GetCurrent(context.Background(), owner)
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if len(dto.Items) != 0 {
		t.Fatalf("expected empty cart after clear, got %d lines", len(dto.Items))
	}
}

func TestMigrateSwapsOwnerWhenUserHasNoCart(t *testing.T) {
	t.Parallel()

	svc, repo, catalog := buildCartService(t)
	listing := seedListing(catalog, "10.00")
	guest := types.GuestOwner("sess-42")
	userID := uuid.New()

	if _, err := svc.AddItem(context.Background(), guest, AddItemRequest{ListingID: listing.ID, Quantity: 2}); err != nil {
		t.Fatalf("seed guest cart: %v", err)
	}

	dto, err := svc.Migrate(context.Background(), "sess-42", userID)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(dto.Items) != 1 || dto.Items[0].Quantity != 2 {
		t.Fatalf("expected adopted cart with original line, got %+v", dto.Items)
	}

	if _, err := repo.FindActiveByOwner(context.Background(), guest); err == nil {
		t.Fatalf("expected guest cart to stop resolving by session id")
	}
	if _, err := repo.FindActiveByOwner(context.Background(), types.UserOwner(userID)); err != nil {
		t.Fatalf("expected cart to resolve by user id: %v", err)
	}
}

func TestMigrateMergesQuantities(t *testing.T) {
	t.Parallel()

	svc, repo, catalog := buildCartService(t)
	listing := seedListing(catalog, "10.00")
	other := seedListing(catalog, "5.00")
	guest := types.GuestOwner("sess-7")
	userID := uuid.New()
	user := types.UserOwner(userID)

	if _, err := svc.AddItem(context.Background(), guest, AddItemRequest{ListingID: listing.ID, Quantity: 2}); err != nil {
		t.Fatalf("seed guest line: %v", err)
	}
	if _, err := svc.AddItem(context.Background(), guest, AddItemRequest{ListingID: other.ID, Quantity: 1}); err != nil {
		t.Fatalf("seed guest extra line: %v", err)
	}
	if _, err := svc.AddItem(context.Background(), user, AddItemRequest{ListingID: listing.ID, Quantity: 3}); err != nil {
		t.Fatalf("seed user line: %v", err)
	}

	dto, err := svc.Migrate(context.Background(), "sess-7", userID)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(dto.Items) != 2 {
		t.Fatalf("expected 2 lines after merge, got %d", len(dto.Items))
	}
	for _, item := range dto.Items {
		if item.ListingID == listing.ID && item.Quantity != 5 {
			t.Fatalf("expected merged quantity 5, got %d", item.Quantity)
		}
		if item.ListingID == other.ID && item.Quantity != 1 {
			t.Fatalf("expected appended quantity 1, got %d", item.Quantity)
		}
	}

	if _, err := repo.FindActiveByOwner(context.Background(), guest); err == nil {
		t.Fatalf("expected guest cart removed after merge")
	}
}

func TestMigrateMissingGuestCart(t *testing.T) {
	t.Parallel()

	svc, _, _ := buildCartService(t)
	_, err := svc.Migrate(context.Background(), "sess-missing", uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for missing guest cart, got %v", err)
	}
}
