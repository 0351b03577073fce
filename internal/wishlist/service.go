package wishlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
)

type listingReader interface {
	FindListingByID(ctx context.Context, id uuid.UUID) (*models.ProductListing, error)
}

// Service manages a user's saved listings. Adding an already-saved listing
// is a no-op rather than an error.
type Service interface {
	Add(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*ItemDTO, error)
	Remove(ctx context.Context, userID, listingID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]ItemDTO, error)
}

type ServiceParams struct {
	Repo    Repository
	Catalog listingReader
}

type service struct {
	repo    Repository
	catalog listingReader
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("wishlist repository is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("catalog reader is required")
	}
	return &service{repo: params.Repo, catalog: params.Catalog}, nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*ItemDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "wishlist requires an authenticated user")
	}

	listing, err := s.catalog.FindListingByID(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}

	existing, err := s.repo.FindByUserAndListing(ctx, userID, req.ListingID)
	if err == nil {
		return FromModel(existing, listing.Title), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check wishlist")
	}

	item := &models.WishlistItem{UserID: userID, ListingID: req.ListingID}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add wishlist item")
	}
	return FromModel(item, listing.Title), nil
}

func (s *service) Remove(ctx context.Context, userID, listingID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "wishlist requires an authenticated user")
	}
	if _, err := s.repo.FindByUserAndListing(ctx, userID, listingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check wishlist")
	}
	if err := s.repo.DeleteByUserAndListing(ctx, userID, listingID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove wishlist item")
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ItemDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "wishlist requires an authenticated user")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wishlist")
	}

	out := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		title := ""
		if listing, err := s.catalog.FindListingByID(ctx, rows[i].ListingID); err == nil {
			title = listing.Title
		}
		out = append(out, *FromModel(&rows[i], title))
	}
	return out, nil
}
