package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
)

// maxTreeDepth bounds ancestor walks so a corrupt hierarchy cannot spin the
// request forever.
const maxTreeDepth = 64

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type listingCatalog interface {
	FindListingByID(ctx context.Context, id uuid.UUID) (*models.ProductListing, error)
	ListListingsByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.ProductListing, error)
	CountListingsByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
	UpdateListingCategory(ctx context.Context, listingID uuid.UUID, categoryID *uuid.UUID) error
}

// Service manages the category hierarchy and its product membership.
type Service interface {
	Create(ctx context.Context, req CreateCategoryRequest) (*CategoryDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*CategoryDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*CategoryDTO, error)
	List(ctx context.Context) ([]CategoryDTO, error)
	Tree(ctx context.Context) ([]TreeNode, error)
	Breadcrumbs(ctx context.Context, id uuid.UUID) ([]CategoryDTO, error)
	Siblings(ctx context.Context, id uuid.UUID) ([]CategoryDTO, error)
	Navigation(ctx context.Context) ([]TreeNode, error)
	Search(ctx context.Context, query string) ([]CategoryDTO, error)
	Stats(ctx context.Context) ([]CategoryStats, error)
	AssignProducts(ctx context.Context, id uuid.UUID, req AssignProductsRequest) error
	RemoveProducts(ctx context.Context, id uuid.UUID, req AssignProductsRequest) error
	MoveProducts(ctx context.Context, id uuid.UUID, req MoveProductsRequest) error
}

type ServiceParams struct {
	Repo    Repository
	Catalog listingCatalog
	Tx      txRunner
}

type service struct {
	repo    Repository
	catalog listingCatalog
	tx      txRunner
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("category repository is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("catalog reader is required")
	}
	if params.Tx == nil {
		return nil, errors.New("transaction runner is required")
	}
	return &service{repo: params.Repo, catalog: params.Catalog, tx: params.Tx}, nil
}

func (s *service) Create(ctx context.Context, req CreateCategoryRequest) (*CategoryDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	categorySlug := strings.TrimSpace(req.Slug)
	if categorySlug == "" {
		categorySlug = slug.Make(name)
	}
	if err := s.ensureSlugFree(ctx, categorySlug, uuid.Nil); err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if _, err := s.load(ctx, *req.ParentID); err != nil {
			return nil, err
		}
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	category := &models.Category{
		Name:        name,
		Slug:        categorySlug,
		Description: req.Description,
		ParentID:    req.ParentID,
		IsActive:    isActive,
		Position:    req.Position,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create category")
	}
	return FromModel(category), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*CategoryDTO, error) {
	category, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		category.Name = name
	}
	if req.Slug != nil {
		next := strings.TrimSpace(*req.Slug)
		if next == "" {
			next = slug.Make(category.Name)
		}
		if next != category.Slug {
			if err := s.ensureSlugFree(ctx, next, category.ID); err != nil {
				return nil, err
			}
		}
		category.Slug = next
	}
	if req.Description != nil {
		category.Description = req.Description
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if req.Position != nil {
		category.Position = *req.Position
	}

	switch {
	case req.ClearParent:
		category.ParentID = nil
	case req.ParentID != nil:
		if err := s.ensureParentAllowed(ctx, category.ID, *req.ParentID); err != nil {
			return nil, err
		}
		category.ParentID = req.ParentID
	}

	if err := s.repo.Update(ctx, category); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update category")
	}
	return FromModel(category), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete category")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CategoryDTO, error) {
	category, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(category), nil
}

func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	return FromModels(rows), nil
}

func (s *service) Tree(ctx context.Context) ([]TreeNode, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	return buildTree(rows, false), nil
}

// Navigation is the storefront menu: active roots with their active
// descendants.
func (s *service) Navigation(ctx context.Context) ([]TreeNode, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	return buildTree(rows, true), nil
}

func (s *service) Breadcrumbs(ctx context.Context, id uuid.UUID) ([]CategoryDTO, error) {
	category, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	chain := []CategoryDTO{*FromModel(category)}
	cursor := category.ParentID
	for depth := 0; cursor != nil; depth++ {
		if depth >= maxTreeDepth {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "category hierarchy too deep")
		}
		parent, err := s.load(ctx, *cursor)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *FromModel(parent))
		cursor = parent.ParentID
	}

	// Root first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (s *service) Siblings(ctx context.Context, id uuid.UUID) ([]CategoryDTO, error) {
	category, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var rows []models.Category
	if category.ParentID == nil {
		rows, err = s.repo.ListRoots(ctx, false)
	} else {
		rows, err = s.repo.ListChildren(ctx, *category.ParentID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list siblings")
	}

	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		if rows[i].ID == category.ID {
			continue
		}
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Search(ctx context.Context, query string) ([]CategoryDTO, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	rows, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search categories")
	}
	return FromModels(rows), nil
}

func (s *service) Stats(ctx context.Context) ([]CategoryStats, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}

	out := make([]CategoryStats, 0, len(rows))
	for i := range rows {
		count, err := s.catalog.CountListingsByCategory(ctx, rows[i].ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count category listings")
		}
		out = append(out, CategoryStats{
			CategoryID:   rows[i].ID,
			Name:         rows[i].Name,
			Slug:         rows[i].Slug,
			ListingCount: count,
		})
	}
	return out, nil
}

func (s *service) AssignProducts(ctx context.Context, id uuid.UUID, req AssignProductsRequest) error {
	category, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if len(req.ListingIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "listing_ids is required")
	}

	for _, listingID := range req.ListingIDs {
		if _, err := s.catalog.FindListingByID(ctx, listingID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("listing %s not found", listingID))
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
		}
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, listingID := range req.ListingIDs {
			if err := s.catalog.UpdateListingCategory(ctx, listingID, &category.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign listing")
			}
		}
		return nil
	})
}

func (s *service) RemoveProducts(ctx context.Context, id uuid.UUID, req AssignProductsRequest) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if len(req.ListingIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "listing_ids is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, listingID := range req.ListingIDs {
			if err := s.catalog.UpdateListingCategory(ctx, listingID, nil); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove listing")
			}
		}
		return nil
	})
}

// MoveProducts reassigns every listing in the source category to the target.
func (s *service) MoveProducts(ctx context.Context, id uuid.UUID, req MoveProductsRequest) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	target, err := s.load(ctx, req.TargetCategoryID)
	if err != nil {
		return err
	}
	if target.ID == id {
		return pkgerrors.New(pkgerrors.CodeValidation, "target category matches source")
	}

	listings, err := s.catalog.ListListingsByCategory(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list category listings")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for i := range listings {
			if err := s.catalog.UpdateListingCategory(ctx, listings[i].ID, &target.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "move listing")
			}
		}
		return nil
	})
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
	}
	return category, nil
}

func (s *service) ensureSlugFree(ctx context.Context, categorySlug string, selfID uuid.UUID) error {
	existing, err := s.repo.FindBySlug(ctx, categorySlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check slug")
	}
	if existing.ID == selfID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("category slug %q already exists", categorySlug))
}

// ensureParentAllowed walks upward from the proposed parent; finding the
// category itself anywhere in that chain would close a cycle.
func (s *service) ensureParentAllowed(ctx context.Context, categoryID, parentID uuid.UUID) error {
	if parentID == categoryID {
		return pkgerrors.New(pkgerrors.CodeConflict, "category cannot be its own parent")
	}

	cursor := &parentID
	for depth := 0; cursor != nil; depth++ {
		if depth >= maxTreeDepth {
			return pkgerrors.New(pkgerrors.CodeInternal, "category hierarchy too deep")
		}
		ancestor, err := s.load(ctx, *cursor)
		if err != nil {
			return err
		}
		if ancestor.ID == categoryID {
			return pkgerrors.New(pkgerrors.CodeConflict, "circular category reference")
		}
		cursor = ancestor.ParentID
	}
	return nil
}

func buildTree(rows []models.Category, activeOnly bool) []TreeNode {
	children := make(map[uuid.UUID][]models.Category)
	var roots []models.Category
	for i := range rows {
		if activeOnly && !rows[i].IsActive {
			continue
		}
		if rows[i].ParentID == nil {
			roots = append(roots, rows[i])
			continue
		}
		children[*rows[i].ParentID] = append(children[*rows[i].ParentID], rows[i])
	}

	var attach func(category models.Category, depth int) TreeNode
	attach = func(category models.Category, depth int) TreeNode {
		node := TreeNode{CategoryDTO: *FromModel(&category), Children: []TreeNode{}}
		if depth >= maxTreeDepth {
			return node
		}
		for _, child := range children[category.ID] {
			node.Children = append(node.Children, attach(child, depth+1))
		}
		return node
	}

	out := make([]TreeNode, 0, len(roots))
	for _, root := range roots {
		out = append(out, attach(root, 0))
	}
	return out
}
