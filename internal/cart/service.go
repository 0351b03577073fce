package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
	"github.com/mercatolabs/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type listingReader interface {
	FindListingByID(ctx context.Context, id uuid.UUID) (*models.ProductListing, error)
	FindVariantByID(ctx context.Context, id uuid.UUID) (*models.ProductListingVariant, error)
}

// Service exposes cart operations for users and guest sessions.
type Service interface {
	GetCurrent(ctx context.Context, owner types.Owner) (*CartDTO, error)
	AddItem(ctx context.Context, owner types.Owner, req AddItemRequest) (*CartDTO, error)
	UpdateItem(ctx context.Context, owner types.Owner, itemID uuid.UUID, req UpdateItemRequest) (*CartDTO, error)
	RemoveItem(ctx context.Context, owner types.Owner, itemID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, owner types.Owner) error
	Migrate(ctx context.Context, sessionID string, userID uuid.UUID) (*CartDTO, error)
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Repo    Repository
	Catalog listingReader
	Tx      txRunner
}

type service struct {
	repo    Repository
	catalog listingReader
	tx      txRunner
}

// NewService builds a cart service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{repo: params.Repo, catalog: params.Catalog, tx: params.Tx}, nil
}

// GetCurrent returns the owner's active cart, or an empty cart without
// creating one.
func (s *service) GetCurrent(ctx context.Context, owner types.Owner) (*CartDTO, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	cart, err := s.repo.FindActiveByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EmptyCart(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return FromModel(cart), nil
}

func (s *service) AddItem(ctx context.Context, owner types.Owner, req AddItemRequest) (*CartDTO, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if req.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if req.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id is required")
	}

	listing, err := s.catalog.FindListingByID(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	if !listing.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}

	unitPrice := listing.BasePrice
	if req.VariantID != nil {
		variant, err := s.catalog.FindVariantByID(ctx, *req.VariantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
		}
		if variant.ListingID != listing.ID || !variant.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		unitPrice = variant.Price
	}

	var cartID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindActiveByOwner(ctx, owner)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
			}
			cart = &models.Cart{
				UserID:    owner.UserID,
				SessionID: owner.SessionID,
				Status:    enums.CartStatusActive,
			}
			if err := repo.Create(ctx, cart); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart")
			}
		}
		cartID = cart.ID

		incoming := models.CartItem{
			CartID:    cart.ID,
			ProductID: listing.ProductID,
			ListingID: listing.ID,
			VariantID: req.VariantID,
			Quantity:  req.Quantity,
			UnitPrice: unitPrice,
		}
		for _, existing := range cart.Items {
			if existing.SameLine(incoming) {
				return repoErr(repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+req.Quantity), "merge cart line")
			}
		}
		return repoErr(repo.CreateItem(ctx, &incoming), "create cart line")
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, cartID)
}

func (s *service) UpdateItem(ctx context.Context, owner types.Owner, itemID uuid.UUID, req UpdateItemRequest) (*CartDTO, error) {
	if req.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	cart, item, err := s.loadOwnedItem(ctx, owner, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateItemQuantity(ctx, item.ID, req.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
	}
	return s.reload(ctx, cart.ID)
}

func (s *service) RemoveItem(ctx context.Context, owner types.Owner, itemID uuid.UUID) (*CartDTO, error) {
	cart, item, err := s.loadOwnedItem(ctx, owner, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart line")
	}
	return s.reload(ctx, cart.ID)
}

func (s *service) Clear(ctx context.Context, owner types.Owner) error {
	if !owner.Valid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	cart, err := s.repo.FindActiveByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if err := s.repo.DeleteItemsByCart(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

// Migrate moves the guest cart identified by sessionID to the authenticated
// user: an owner swap when the user has no active cart, otherwise a line
// merge keyed by (product, listing, variant). The guest cart stops resolving
// by session id either way.
func (s *service) Migrate(ctx context.Context, sessionID string, userID uuid.UUID) (*CartDTO, error) {
	guest := types.GuestOwner(sessionID)
	if !guest.IsGuest() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var resultID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		guestCart, err := repo.FindActiveByOwner(ctx, guest)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "guest cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load guest cart")
		}

		userCart, err := repo.FindActiveByOwner(ctx, types.UserOwner(userID))
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user cart")
			}
			// No user cart: adopt the guest cart wholesale.
			if err := repo.UpdateOwner(ctx, guestCart.ID, userID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reassign cart owner")
			}
			resultID = guestCart.ID
			return nil
		}

		for _, guestItem := range guestCart.Items {
			merged := false
			for _, userItem := range userCart.Items {
				if userItem.SameLine(guestItem) {
					if err := repo.UpdateItemQuantity(ctx, userItem.ID, userItem.Quantity+guestItem.Quantity); err != nil {
						return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge cart line")
					}
					merged = true
					break
				}
			}
			if !merged {
				moved := models.CartItem{
					CartID:    userCart.ID,
					ProductID: guestItem.ProductID,
					ListingID: guestItem.ListingID,
					VariantID: guestItem.VariantID,
					Quantity:  guestItem.Quantity,
					UnitPrice: guestItem.UnitPrice,
				}
				if err := repo.CreateItem(ctx, &moved); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "move cart line")
				}
			}
		}

		if err := repo.DeleteItemsByCart(ctx, guestCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop guest cart lines")
		}
		if err := repo.Delete(ctx, guestCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop guest cart")
		}
		resultID = userCart.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, resultID)
}

// loadOwnedItem resolves a cart line within the caller's active cart. Items
// of other carts read as missing.
func (s *service) loadOwnedItem(ctx context.Context, owner types.Owner, itemID uuid.UUID) (*models.Cart, *models.CartItem, error) {
	if !owner.Valid() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if itemID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}

	cart, err := s.repo.FindActiveByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return cart, &cart.Items[i], nil
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

func (s *service) reload(ctx context.Context, cartID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cart")
	}
	return FromModel(cart), nil
}

func repoErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
