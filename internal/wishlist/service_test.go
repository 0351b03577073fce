package wishlist

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
)

type stubWishlistRepo struct {
	items map[uuid.UUID]*models.WishlistItem
}

func newStubWishlistRepo() *stubWishlistRepo {
	return &stubWishlistRepo{items: map[uuid.UUID]*models.WishlistItem{}}
}

func (s *stubWishlistRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubWishlistRepo) Create(_ context.Context, item *models.WishlistItem) error {
	item.ID = uuid.New()
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *stubWishlistRepo) FindByUserAndListing(_ context.Context, userID, listingID uuid.UUID) (*models.WishlistItem, error) {
	for _, item := range s.items {
		if item.UserID == userID && item.ListingID == listingID {
			copied := *item
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubWishlistRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	var out []models.WishlistItem
	for _, item := range s.items {
		if item.UserID == userID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *stubWishlistRepo) DeleteByUserAndListing(_ context.Context, userID, listingID uuid.UUID) error {
	for id, item := range s.items {
		if item.UserID == userID && item.ListingID == listingID {
			delete(s.items, id)
		}
	}
	return nil
}

func (s *stubWishlistRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	for id, item := range s.items {
		if item.UserID == userID {
			delete(s.items, id)
		}
	}
	return nil
}

type stubListings struct {
	listings map[uuid.UUID]*models.ProductListing
}

func (s *stubListings) FindListingByID(_ context.Context, id uuid.UUID) (*models.ProductListing, error) {
	if listing, ok := s.listings[id]; ok {
		return listing, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func buildWishlistService(t *testing.T) (Service, *stubWishlistRepo, *stubListings) {
	t.Helper()
	repo := newStubWishlistRepo()
	listings := &stubListings{listings: map[uuid.UUID]*models.ProductListing{}}
	svc, err := NewService(ServiceParams{Repo: repo, Catalog: listings})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, repo, listings
}

func TestAddIsIdempotentPerListing(t *testing.T) {
	t.Parallel()

	svc, repo, listings := buildWishlistService(t)
	userID := uuid.New()
	listingID := uuid.New()
	listings.listings[listingID] = &models.ProductListing{ID: listingID, Title: "Widget"}

	first, err := svc.Add(context.Background(), userID, AddItemRequest{ListingID: listingID})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := svc.Add(context.Background(), userID, AddItemRequest{ListingID: listingID})
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if first.ID != second.ID || len(repo.items) != 1 {
		t.Fatalf("expected single wishlist row, got %d", len(repo.items))
	}
	if second.Title != "Widget" {
		t.Fatalf("expected resolved title, got %q", second.Title)
	}
}

func TestAddUnknownListingNotFound(t *testing.T) {
	t.Parallel()

	svc, _, _ := buildWishlistService(t)
	_, err := svc.Add(context.Background(), uuid.New(), AddItemRequest{ListingID: uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRemoveMissingItemNotFound(t *testing.T) {
	t.Parallel()

	svc, _, _ := buildWishlistService(t)
	err := svc.Remove(context.Background(), uuid.New(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListScopedToUser(t *testing.T) {
	t.Parallel()

	svc, _, listings := buildWishlistService(t)
	alice := uuid.New()
	bob := uuid.New()
	listingID := uuid.New()
	listings.listings[listingID] = &models.ProductListing{ID: listingID, Title: "Widget"}

	if _, err := svc.Add(context.Background(), alice, AddItemRequest{ListingID: listingID}); err != nil {
		t.Fatalf("add: %v", err)
	}

	mine, err := svc.List(context.Background(), alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected 1 item for owner, got %d", len(mine))
	}

	theirs, err := svc.List(context.Background(), bob)
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(theirs) != 0 {
		t.Fatalf("expected empty list for other user, got %d", len(theirs))
	}
}
