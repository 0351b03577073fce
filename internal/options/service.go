package options

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type listingReader interface {
	FindListingByID(ctx context.Context, id uuid.UUID) (*models.ProductListing, error)
}

// Service manages option groups, their values and listing variants.
type Service interface {
	CreateGroup(ctx context.Context, req CreateGroupRequest) (*OptionGroupDTO, error)
	UpdateGroup(ctx context.Context, id uuid.UUID, req UpdateGroupRequest) (*OptionGroupDTO, error)
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	GetGroup(ctx context.Context, id uuid.UUID) (*OptionGroupDTO, error)
	ListGroups(ctx context.Context) ([]OptionGroupDTO, error)

	CreateValue(ctx context.Context, req CreateValueRequest) (*OptionValueDTO, error)
	BulkCreateValues(ctx context.Context, req BulkCreateValuesRequest) ([]OptionValueDTO, error)
	UpdateValue(ctx context.Context, id uuid.UUID, req UpdateValueRequest) (*OptionValueDTO, error)
	DeleteValue(ctx context.Context, id uuid.UUID) error
	ListValuesByGroup(ctx context.Context, groupID uuid.UUID) ([]OptionValueDTO, error)
	ListValuesByListing(ctx context.Context, listingID uuid.UUID) ([]OptionValueDTO, error)

	CreateVariant(ctx context.Context, req CreateVariantRequest) (*VariantDTO, error)
	UpdateVariant(ctx context.Context, id uuid.UUID, req UpdateVariantRequest) (*VariantDTO, error)
	GetVariant(ctx context.Context, id uuid.UUID) (*VariantDTO, error)
	ListVariantsByListing(ctx context.Context, listingID uuid.UUID) ([]VariantDTO, error)
}

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

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("options repository is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("catalog reader is required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	return &service{repo: params.Repo, catalog: params.Catalog, tx: params.Tx}, nil
}

func (s *service) CreateGroup(ctx context.Context, req CreateGroupRequest) (*OptionGroupDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = slug.Make(name)
	}

	if _, err := s.repo.FindGroupByCode(ctx, code); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("option group code %q already exists", code))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check group code")
	}

	group := &models.OptionGroup{Name: name, Code: code, Position: req.Position}
	if err := s.repo.CreateGroup(ctx, group); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create option group")
	}
	return GroupFromModel(group), nil
}

func (s *service) UpdateGroup(ctx context.Context, id uuid.UUID, req UpdateGroupRequest) (*OptionGroupDTO, error) {
	group, err := s.loadGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		group.Name = name
	}
	if req.Position != nil {
		group.Position = *req.Position
	}
	if err := s.repo.UpdateGroup(ctx, group); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update option group")
	}
	return GroupFromModel(group), nil
}

func (s *service) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	if _, err := s.loadGroup(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteGroup(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete option group")
	}
	return nil
}

func (s *service) GetGroup(ctx context.Context, id uuid.UUID) (*OptionGroupDTO, error) {
	group, err := s.loadGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	return GroupFromModel(group), nil
}

func (s *service) ListGroups(ctx context.Context) ([]OptionGroupDTO, error) {
	rows, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list option groups")
	}
	return GroupsFromModels(rows), nil
}

func (s *service) CreateValue(ctx context.Context, req CreateValueRequest) (*OptionValueDTO, error) {
	if _, err := s.loadGroup(ctx, req.GroupID); err != nil {
		return nil, err
	}
	value, err := s.buildValue(ctx, req.GroupID, req.Value, req.Code, req.Position, nil)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateValue(ctx, value); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create option value")
	}
	return ValueFromModel(value), nil
}

// BulkCreateValues validates the whole payload before inserting anything, so
// a duplicate in row three leaves rows one and two unwritten.
func (s *service) BulkCreateValues(ctx context.Context, req BulkCreateValuesRequest) ([]OptionValueDTO, error) {
	if _, err := s.loadGroup(ctx, req.GroupID); err != nil {
		return nil, err
	}
	if len(req.Values) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "values are required")
	}

	seen := make(map[string]struct{}, len(req.Values))
	values := make([]models.OptionValue, 0, len(req.Values))
	for _, item := range req.Values {
		value, err := s.buildValue(ctx, req.GroupID, item.Value, item.Code, item.Position, seen)
		if err != nil {
			return nil, err
		}
		values = append(values, *value)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateValues(ctx, values); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create option values")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ValuesFromModels(values), nil
}

func (s *service) UpdateValue(ctx context.Context, id uuid.UUID, req UpdateValueRequest) (*OptionValueDTO, error) {
	value, err := s.loadValue(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Value != nil {
		next := strings.TrimSpace(*req.Value)
		if next == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "value cannot be empty")
		}
		value.Value = next
	}
	if req.Position != nil {
		value.Position = *req.Position
	}
	if err := s.repo.UpdateValue(ctx, value); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update option value")
	}
	return ValueFromModel(value), nil
}

func (s *service) DeleteValue(ctx context.Context, id uuid.UUID) error {
	if _, err := s.loadValue(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteValue(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete option value")
	}
	return nil
}

func (s *service) ListValuesByGroup(ctx context.Context, groupID uuid.UUID) ([]OptionValueDTO, error) {
	if _, err := s.loadGroup(ctx, groupID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListValuesByGroup(ctx, groupID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list option values")
	}
	return ValuesFromModels(rows), nil
}

func (s *service) ListValuesByListing(ctx context.Context, listingID uuid.UUID) ([]OptionValueDTO, error) {
	if _, err := s.catalog.FindListingByID(ctx, listingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	rows, err := s.repo.ListValuesByListing(ctx, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list listing values")
	}
	return ValuesFromModels(rows), nil
}

func (s *service) CreateVariant(ctx context.Context, req CreateVariantRequest) (*VariantDTO, error) {
	if _, err := s.catalog.FindListingByID(ctx, req.ListingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}

	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if req.Price.IsNegative() || req.Price.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if err := s.ensureSKUFree(ctx, sku, uuid.Nil); err != nil {
		return nil, err
	}

	values, err := s.resolveValueSet(ctx, req.OptionValueIDs)
	if err != nil {
		return nil, err
	}
	if err := s.ensureValueSetFree(ctx, req.ListingID, values, uuid.Nil); err != nil {
		return nil, err
	}

	variant := &models.ProductListingVariant{
		ListingID:    req.ListingID,
		SKU:          sku,
		Price:        req.Price,
		IsActive:     true,
		OptionValues: values,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateVariant(ctx, variant); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create variant")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return VariantFromModel(variant), nil
}

func (s *service) UpdateVariant(ctx context.Context, id uuid.UUID, req UpdateVariantRequest) (*VariantDTO, error) {
	variant, err := s.loadVariant(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.SKU != nil {
		sku := strings.TrimSpace(*req.SKU)
		if sku == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
		}
		if sku != variant.SKU {
			if err := s.ensureSKUFree(ctx, sku, variant.ID); err != nil {
				return nil, err
			}
		}
		variant.SKU = sku
	}
	if req.Price != nil {
		if req.Price.IsNegative() || req.Price.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		variant.Price = *req.Price
	}
	if req.IsActive != nil {
		variant.IsActive = *req.IsActive
	}

	var nextValues []models.OptionValue
	if req.OptionValueIDs != nil {
		nextValues, err = s.resolveValueSet(ctx, req.OptionValueIDs)
		if err != nil {
			return nil, err
		}
		if err := s.ensureValueSetFree(ctx, variant.ListingID, nextValues, variant.ID); err != nil {
			return nil, err
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateVariant(ctx, variant); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update variant")
		}
		if nextValues != nil {
			if err := repo.ReplaceVariantValues(ctx, variant, nextValues); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace variant values")
			}
			variant.OptionValues = nextValues
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return VariantFromModel(variant), nil
}

func (s *service) GetVariant(ctx context.Context, id uuid.UUID) (*VariantDTO, error) {
	variant, err := s.loadVariant(ctx, id)
	if err != nil {
		return nil, err
	}
	return VariantFromModel(variant), nil
}

func (s *service) ListVariantsByListing(ctx context.Context, listingID uuid.UUID) ([]VariantDTO, error) {
	if _, err := s.catalog.FindListingByID(ctx, listingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	rows, err := s.repo.ListVariantsByListing(ctx, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list variants")
	}
	out := make([]VariantDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *VariantFromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) loadGroup(ctx context.Context, id uuid.UUID) (*models.OptionGroup, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group id is required")
	}
	group, err := s.repo.FindGroupByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "option group not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load option group")
	}
	return group, nil
}

func (s *service) loadValue(ctx context.Context, id uuid.UUID) (*models.OptionValue, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value id is required")
	}
	value, err := s.repo.FindValueByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "option value not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load option value")
	}
	return value, nil
}

func (s *service) loadVariant(ctx context.Context, id uuid.UUID) (*models.ProductListingVariant, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id is required")
	}
	variant, err := s.repo.FindVariantByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load variant")
	}
	return variant, nil
}

// buildValue normalizes one option value and checks its code against the
// group; seen carries codes already taken by earlier rows of a bulk payload.
func (s *service) buildValue(ctx context.Context, groupID uuid.UUID, rawValue, rawCode string, position int, seen map[string]struct{}) (*models.OptionValue, error) {
	valueText := strings.TrimSpace(rawValue)
	if valueText == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "value is required")
	}
	code := strings.TrimSpace(rawCode)
	if code == "" {
		code = slug.Make(valueText)
	}

	if seen != nil {
		if _, dup := seen[code]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("option value code %q repeated in payload", code))
		}
		seen[code] = struct{}{}
	}

	if _, err := s.repo.FindValueByGroupAndCode(ctx, groupID, code); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("option value code %q already exists in group", code))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check value code")
	}

	return &models.OptionValue{
		GroupID:  groupID,
		Value:    valueText,
		Code:     code,
		Position: position,
	}, nil
}

func (s *service) ensureSKUFree(ctx context.Context, sku string, selfID uuid.UUID) error {
	existing, err := s.repo.FindVariantBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check sku")
	}
	if existing.ID == selfID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("sku %q already exists", sku))
}

// resolveValueSet loads and dedupes the requested option values and rejects
// two values drawn from the same group.
func (s *service) resolveValueSet(ctx context.Context, ids []uuid.UUID) ([]models.OptionValue, error) {
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "option_value_ids is required")
	}

	seenIDs := make(map[uuid.UUID]struct{}, len(ids))
	seenGroups := make(map[uuid.UUID]string, len(ids))
	values := make([]models.OptionValue, 0, len(ids))
	for _, id := range ids {
		if _, dup := seenIDs[id]; dup {
			continue
		}
		seenIDs[id] = struct{}{}

		value, err := s.loadValue(ctx, id)
		if err != nil {
			return nil, err
		}
		if prior, dup := seenGroups[value.GroupID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("values %q and %q belong to the same group", prior, value.Code))
		}
		seenGroups[value.GroupID] = value.Code
		values = append(values, *value)
	}
	return values, nil
}

// ensureValueSetFree rejects a second variant of the listing carrying the
// exact same option value set.
func (s *service) ensureValueSetFree(ctx context.Context, listingID uuid.UUID, values []models.OptionValue, selfID uuid.UUID) error {
	variants, err := s.repo.ListVariantsByListing(ctx, listingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list variants")
	}

	key := valueSetKey(values)
	for i := range variants {
		if variants[i].ID == selfID {
			continue
		}
		if valueSetKey(variants[i].OptionValues) == key {
			return pkgerrors.New(pkgerrors.CodeConflict, "variant with the same option values already exists")
		}
	}
	return nil
}

func valueSetKey(values []models.OptionValue) string {
	ids := make([]string, 0, len(values))
	for i := range values {
		ids = append(ids, values[i].ID.String())
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
