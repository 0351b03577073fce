package addresses

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
	"github.com/mercatolabs/storefront-backend/pkg/types"
)

var (
	digitRe      = regexp.MustCompile(`[0-9]`)
	phoneCharsRe = regexp.MustCompile(`^[+0-9()\-\s.]+$`)
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes address book operations for users and guest sessions.
type Service interface {
	Create(ctx context.Context, owner types.Owner, req CreateAddressRequest) (*AddressDTO, error)
	Update(ctx context.Context, owner types.Owner, id uuid.UUID, req UpdateAddressRequest) (*AddressDTO, error)
	Delete(ctx context.Context, owner types.Owner, id uuid.UUID) error
	SetDefault(ctx context.Context, owner types.Owner, id uuid.UUID) (*AddressDTO, error)
	List(ctx context.Context, owner types.Owner, typeFilter *enums.AddressType) ([]AddressDTO, error)
	Get(ctx context.Context, owner types.Owner, id uuid.UUID) (*AddressDTO, error)
}

// ServiceParams groups dependencies for the address service.
type ServiceParams struct {
	Repo Repository
	Tx   txRunner
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an address service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("addresses repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{repo: params.Repo, tx: params.Tx}, nil
}

func (s *service) Create(ctx context.Context, owner types.Owner, req CreateAddressRequest) (*AddressDTO, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address owner is required")
	}

	addrType, err := enums.ParseAddressType(strings.TrimSpace(req.Type))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "type must be shipping, billing or both")
	}
	if err := validateAddressFields(req.FullName, req.Line1, req.City, req.State, req.PostalCode, req.Country, req.Phone); err != nil {
		return nil, err
	}

	address := &models.Address{
		UserID:     owner.UserID,
		SessionID:  owner.SessionID,
		Type:       addrType,
		FullName:   strings.TrimSpace(req.FullName),
		Line1:      strings.TrimSpace(req.Line1),
		Line2:      trimPtr(req.Line2),
		City:       strings.TrimSpace(req.City),
		State:      strings.TrimSpace(req.State),
		PostalCode: strings.TrimSpace(req.PostalCode),
		Country:    strings.TrimSpace(req.Country),
		Phone:      strings.TrimSpace(req.Phone),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		count, err := repo.CountInClass(ctx, owner, addrType)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count addresses")
		}
		address.IsDefault = req.IsDefault || count == 0

		if address.IsDefault {
			if err := repo.ClearDefaults(ctx, owner, addrType, uuid.Nil); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear defaults")
			}
		}
		if err := repo.Create(ctx, address); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(address), nil
}

func (s *service) Update(ctx context.Context, owner types.Owner, id uuid.UUID, req UpdateAddressRequest) (*AddressDTO, error) {
	address, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	typeChanged := false
	if req.Type != nil {
		addrType, err := enums.ParseAddressType(strings.TrimSpace(*req.Type))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "type must be shipping, billing or both")
		}
		typeChanged = addrType != address.Type
		address.Type = addrType
	}
	applyString(&address.FullName, req.FullName)
	applyString(&address.Line1, req.Line1)
	if req.Line2 != nil {
		address.Line2 = trimPtr(req.Line2)
	}
	applyString(&address.City, req.City)
	applyString(&address.State, req.State)
	applyString(&address.PostalCode, req.PostalCode)
	applyString(&address.Country, req.Country)
	applyString(&address.Phone, req.Phone)

	if err := validateAddressFields(address.FullName, address.Line1, address.City, address.State, address.PostalCode, address.Country, address.Phone); err != nil {
		return nil, err
	}

	makeDefault := req.IsDefault != nil && *req.IsDefault && !address.IsDefault
	if req.IsDefault != nil && !*req.IsDefault {
		address.IsDefault = false
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		// A default address carried into another type-class must displace
		// that class's current default, same as an explicit set-default.
		if makeDefault || (typeChanged && address.IsDefault) {
			if err := repo.ClearDefaults(ctx, owner, address.Type, address.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear defaults")
			}
			address.IsDefault = true
		}
		if err := repo.Update(ctx, address); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(address), nil
}

// Delete removes the address; when the default is deleted the most recently
// created surviving address of the same class is promoted.
func (s *service) Delete(ctx context.Context, owner types.Owner, id uuid.UUID) error {
	address, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Delete(ctx, address.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete address")
		}
		if !address.IsDefault {
			return nil
		}
		heir, err := repo.FindLatestInClass(ctx, owner, address.Type, address.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find replacement default")
		}
		if heir == nil {
			return nil
		}
		// A both-typed heir becomes default for every class it spans, so any
		// default it would collide with has to be cleared first.
		if err := repo.ClearDefaults(ctx, owner, heir.Type, heir.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear defaults for heir")
		}
		if err := repo.SetDefaultFlag(ctx, heir.ID, true); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "promote default")
		}
		return nil
	})
}

func (s *service) SetDefault(ctx context.Context, owner types.Owner, id uuid.UUID) (*AddressDTO, error) {
	address, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearDefaults(ctx, owner, address.Type, address.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear defaults")
		}
		if err := repo.SetDefaultFlag(ctx, address.ID, true); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set default")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	address.IsDefault = true
	return FromModel(address), nil
}

func (s *service) List(ctx context.Context, owner types.Owner, typeFilter *enums.AddressType) ([]AddressDTO, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address owner is required")
	}
	if typeFilter != nil && !typeFilter.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "type must be shipping, billing or both")
	}
	rows, err := s.repo.ListByOwner(ctx, owner, typeFilter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list addresses")
	}
	return FromModels(rows), nil
}

func (s *service) Get(ctx context.Context, owner types.Owner, id uuid.UUID) (*AddressDTO, error) {
	address, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return FromModel(address), nil
}

// loadOwned loads an address and checks ownership. A cross-owner hit is an
// authorization failure, not a lookup miss.
func (s *service) loadOwned(ctx context.Context, owner types.Owner, id uuid.UUID) (*models.Address, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address owner is required")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	address, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
	}
	if !owner.Matches(address.UserID, address.SessionID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address does not belong to caller")
	}
	return address, nil
}

func validateAddressFields(fullName, line1, city, state, postal, country, phone string) error {
	required := map[string]string{
		"full_name":   fullName,
		"line1":       line1,
		"city":        city,
		"state":       state,
		"postal_code": postal,
		"country":     country,
		"phone":       phone,
	}
	for _, field := range []string{"full_name", "line1", "city", "state", "postal_code", "country", "phone"} {
		if strings.TrimSpace(required[field]) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, field+" is required")
		}
	}

	if !digitRe.MatchString(postal) {
		return pkgerrors.New(pkgerrors.CodeValidation, "postal_code must contain at least one digit")
	}

	trimmedPhone := strings.TrimSpace(phone)
	if !phoneCharsRe.MatchString(trimmedPhone) {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone contains invalid characters")
	}
	digits := len(digitRe.FindAllString(trimmedPhone, -1))
	if digits < 7 || digits > 15 {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone must contain 7 to 15 digits")
	}
	return nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
