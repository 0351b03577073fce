package categories

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
)

type stubCategoryRepo struct {
	categories map[uuid.UUID]*models.Category
}

func newStubCategoryRepo() *stubCategoryRepo {
	return &stubCategoryRepo{categories: map[uuid.UUID]*models.Category{}}
}

func (s *stubCategoryRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubCategoryRepo) Create(_ context.Context, category *models.Category) error {
	category.ID = uuid.New()
	copied := *category
	s.categories[category.ID] = &copied
	return nil
}

func (s *stubCategoryRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	category, ok := s.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *category
	return &copied, nil
}

func (s *stubCategoryRepo) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	for _, category := range s.categories {
		if category.Slug == slug {
			copied := *category
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCategoryRepo) ListAll(_ context.Context) ([]models.Category, error) {
	var out []models.Category
	for _, category := range s.categories {
		out = append(out, *category)
	}
	return out, nil
}

func (s *stubCategoryRepo) ListChildren(_ context.Context, parentID uuid.UUID) ([]models.Category, error) {
	var out []models.Category
	for _, category := range s.categories {
		if category.ParentID != nil && *category.ParentID == parentID {
			out = append(out, *category)
		}
	}
	return out, nil
}

func (s *stubCategoryRepo) ListRoots(_ context.Context, activeOnly bool) ([]models.Category, error) {
	var out []models.Category
	for _, category := range s.categories {
		if category.ParentID != nil {
			continue
		}
		if activeOnly && !category.IsActive {
			continue
		}
		out = append(out, *category)
	}
	return out, nil
}

func (s *stubCategoryRepo) Search(_ context.Context, query string) ([]models.Category, error) {
	var out []models.Category
	needle := strings.ToLower(query)
	for _, category := range s.categories {
		if strings.Contains(strings.ToLower(category.Name), needle) ||
			strings.Contains(strings.ToLower(category.Slug), needle) {
			out = append(out, *category)
		}
	}
	return out, nil
}

func (s *stubCategoryRepo) Update(_ context.Context, category *models.Category) error {
	if _, ok := s.categories[category.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *category
	s.categories[category.ID] = &copied
	return nil
}

func (s *stubCategoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.categories, id)
	return nil
}

type stubListingCatalog struct {
	listings map[uuid.UUID]*models.ProductListing
}

func newStubListingCatalog() *stubListingCatalog {
	return &stubListingCatalog{listings: map[uuid.UUID]*models.ProductListing{}}
}

func (s *stubListingCatalog) FindListingByID(_ context.Context, id uuid.UUID) (*models.ProductListing, error) {
	listing, ok := s.listings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return listing, nil
}

func (s *stubListingCatalog) ListListingsByCategory(_ context.Context, categoryID uuid.UUID) ([]models.ProductListing, error) {
	var out []models.ProductListing
	for _, listing := range s.listings {
		if listing.CategoryID != nil && *listing.CategoryID == categoryID {
			out = append(out, *listing)
		}
	}
	return out, nil
}

func (s *stubListingCatalog) CountListingsByCategory(_ context.Context, categoryID uuid.UUID) (int64, error) {
	rows, _ := s.ListListingsByCategory(context.Background(), categoryID)
	return int64(len(rows)), nil
}

func (s *stubListingCatalog) UpdateListingCategory(_ context.Context, listingID uuid.UUID, categoryID *uuid.UUID) error {
	listing, ok := s.listings[listingID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	listing.CategoryID = categoryID
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type categoryFixture struct {
	svc     Service
	repo    *stubCategoryRepo
	catalog *stubListingCatalog
}

func buildCategoryService(t *testing.T) categoryFixture {
	t.Helper()
	repo := newStubCategoryRepo()
	catalog := newStubListingCatalog()
	svc, err := NewService(ServiceParams{Repo: repo, Catalog: catalog, Tx: stubTxRunner{}})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return categoryFixture{svc: svc, repo: repo, catalog: catalog}
}

func mustCreate(t *testing.T, svc Service, req CreateCategoryRequest) *CategoryDTO {
	t.Helper()
	dto, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create category %q: %v", req.Name, err)
	}
	return dto
}

func TestCreateGeneratesSlugFromName(t *testing.T) {
	t.Parallel()

	f := buildCategoryService(t)
	dto := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Home & Garden"})
	if dto.Slug != "home-garden" {
		t.Fatalf("expected generated slug home-garden, got %q", dto.Slug)
	}
	if !dto.IsActive {
		t.Fatalf("expected category active by default")
	}
}

func TestCreateDuplicateSlugConflicts(t *testing.T) {
	t.Parallel()

	f := buildCategoryService(t)
	mustCreate(t, f.svc, CreateCategoryRequest{Name: "Books"})

	_, err := f.svc.Create(context.Background(), CreateCategoryRequest{Name: "Other", Slug: "books"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for duplicate slug, got %v", err)
	}
}

func TestUpdateRejectsSelfParent(t *testing.T) {
	t.Parallel()

	f := buildCategoryService(t)
	dto := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Books"})

	_, err := f.svc.Update(context.Background(), dto.ID, UpdateCategoryRequest{ParentID: &dto.ID})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for self parent, got %v", err)
	}
}

func TestUpdateRejectsDescendantParentAndKeepsStoredParent(t *testing.T) {
	t.Parallel()

	f := buildCategoryService(t)
	root := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Root"})
	child := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Child", ParentID: &root.ID})
	grandchild := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Grandchild", ParentID: &child.ID})

	_, err := f.svc.Update(context.Background(), root.ID, UpdateCategoryRequest{ParentID: &grandchild.ID})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for descendant parent, got %v", err)
	}

	stored, err := f.svc.Get(context.Background(), root.ID)
	if err != nil {
		t.Fatalf("reload root: %v", err)
	}
	if stored.ParentID != nil {
		t.Fatalf("expected root parent unchanged, got %v", stored.ParentID)
	}
}

func TestBreadcrumbsRootFirst(t *testing.T) {
	t.Parallel()

	f := buildCategoryService(t)
	root := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Root"})
	child := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Child", ParentID: &root.ID})
	grandchild := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Grandchild", ParentID: &child.ID})

	crumbs, err := f.svc.Breadcrumbs(context.Background(), grandchild.ID)
	if err != nil {
		t.Fatalf("breadcrumbs: %v", err)
	}
	if len(crumbs) != 3 {
		t.Fatalf("expected 3 crumbs, got %d", len(crumbs))
	}
	if crumbs[0].ID != root.ID || crumbs[2].ID != grandchild.ID {
		t.Fatalf("expected root-first ordering, got %v", crumbs)
	}
}

func TestSiblingsExcludeSelf(t *testing.T) {
	t.Parallel()

	f := buildCategoryService(t)
	root := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Root"})
	a := mustCreate(t, f.svc, CreateCategoryRequest{Name: "A", ParentID: &root.ID})
	b := mustCreate(t, f.svc, CreateCategoryRequest{Name: "B", ParentID: &root.ID})

	siblings, err := f.svc.Siblings(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("siblings: %v", err)
	}
	if len(siblings) != 1 || siblings[0].ID != b.ID {
		t.Fatalf("expected only sibling B, got %v", siblings)
	}
}

func TestTreeNestsChildren(t *testing.T) {
	t.Parallel()

	f := buildCategoryService(t)
	root := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Root"})
	mustCreate(t, f.svc, CreateCategoryRequest{Name: "Child", ParentID: &root.ID})

	tree, err := f.svc.Tree(context.Background())
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree) != 1 || tree[0].ID != root.ID {
		t.Fatalf("expected single root, got %v", tree)
	}
	if len(tree[0].Children) != 1 || tree[0].Children[0].Name != "Child" {
		t.Fatalf("expected nested child, got %v", tree[0].Children)
	}
}

func TestNavigationSkipsInactive(t *testing.T) {
	t.Parallel()

	f := buildCategoryService(t)
	inactive := false
	mustCreate(t, f.svc, CreateCategoryRequest{Name: "Hidden", IsActive: &inactive})
	visible := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Visible"})

	nav, err := f.svc.Navigation(context.Background())
	if err != nil {
		t.Fatalf("navigation: %v", err)
	}
	if len(nav) != 1 || nav[0].ID != visible.ID {
		t.Fatalf("expected only active root, got %v", nav)
	}
}

func TestStatsCountsListings(t *testing.T) {
	t.Parallel()

	f := buildCategoryService(t)
	dto := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Books"})

	listingID := uuid.New()
	f.catalog.listings[listingID] = &models.ProductListing{ID: listingID, CategoryID: &dto.ID}

	stats, err := f.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 1 || stats[0].ListingCount != 1 {
		t.Fatalf("expected one listing counted, got %v", stats)
	}
}

func TestAssignRemoveMoveProducts(t *testing.T) {
	t.Parallel()

	f := buildCategoryService(t)
	source := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Source"})
	target := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Target"})

	listingID := uuid.New()
	f.catalog.listings[listingID] = &models.ProductListing{ID: listingID}

	if err := f.svc.AssignProducts(context.Background(), source.ID, AssignProductsRequest{ListingIDs: []uuid.UUID{listingID}}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got := f.catalog.listings[listingID].CategoryID; got == nil || *got != source.ID {
		t.Fatalf("expected listing assigned to source, got %v", got)
	}

	if err := f.svc.MoveProducts(context.Background(), source.ID, MoveProductsRequest{TargetCategoryID: target.ID}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := f.catalog.listings[listingID].CategoryID; got == nil || *got != target.ID {
		t.Fatalf("expected listing moved to target, got %v", got)
	}

	if err := f.svc.RemoveProducts(context.Background(), target.ID, AssignProductsRequest{ListingIDs: []uuid.UUID{listingID}}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := f.catalog.listings[listingID].CategoryID; got != nil {
		t.Fatalf("expected listing cleared, got %v", got)
	}
}

func TestAssignUnknownListingNotFound(t *testing.T) {
	t.Parallel()

	f := buildCategoryService(t)
	dto := mustCreate(t, f.svc, CreateCategoryRequest{Name: "Books"})

	err := f.svc.AssignProducts(context.Background(), dto.ID, AssignProductsRequest{ListingIDs: []uuid.UUID{uuid.New()}})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown listing, got %v", err)
	}
}

func TestSearchMatchesNameAndSlug(t *testing.T) {
	t.Parallel()

	f := buildCategoryService(t)
	mustCreate(t, f.svc, CreateCategoryRequest{Name: "Garden Tools"})
	mustCreate(t, f.svc, CreateCategoryRequest{Name: "Books"})

	results, err := f.svc.Search(context.Background(), "garden")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Name != "Garden Tools" {
		t.Fatalf("expected garden match, got %v", results)
	}

	_, err = f.svc.Search(context.Background(), "  ")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for blank query, got %v", err)
	}
}
