package paymentmethods

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
)

type stubMethodRepo struct {
	methods map[uuid.UUID]*models.PaymentMethod
}

func newStubMethodRepo() *stubMethodRepo {
	return &stubMethodRepo{methods: map[uuid.UUID]*models.PaymentMethod{}}
}

func (s *stubMethodRepo) WithTx(*gorm.DB) Repository { return s }

func (s *stubMethodRepo) Create(_ context.Context, method *models.PaymentMethod) error {
	method.ID = uuid.New()
	copied := *method
	s.methods[method.ID] = &copied
	return nil
}

func (s *stubMethodRepo) FindByID(_ context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	method, ok := s.methods[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *method
	return &copied, nil
}

func (s *stubMethodRepo) FindByCode(_ context.Context, code string) (*models.PaymentMethod, error) {
	for _, method := range s.methods {
		if method.Code == code {
			copied := *method
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubMethodRepo) List(_ context.Context, activeOnly bool) ([]models.PaymentMethod, error) {
	var out []models.PaymentMethod
	for _, method := range s.methods {
		if activeOnly && !method.IsActive {
			continue
		}
		out = append(out, *method)
	}
	return out, nil
}

func (s *stubMethodRepo) Update(_ context.Context, method *models.PaymentMethod) error {
	if _, ok := s.methods[method.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *method
	s.methods[method.ID] = &copied
	return nil
}

func (s *stubMethodRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	method, ok := s.methods[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	method.IsActive = active
	return nil
}

func (s *stubMethodRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.methods, id)
	return nil
}

type stubPaymentCounter struct {
	counts map[string]int64
}

func (s *stubPaymentCounter) CountByMethodCode(_ context.Context, methodCode string) (int64, error) {
	return s.counts[methodCode], nil
}

func buildMethodService(t *testing.T) (Service, *stubMethodRepo, *stubPaymentCounter) {
	t.Helper()
	repo := newStubMethodRepo()
	counter := &stubPaymentCounter{counts: map[string]int64{}}
	svc, err := NewService(ServiceParams{Repo: repo, Payments: counter})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, repo, counter
}

func TestCreateMethodGeneratesCode(t *testing.T) {
	t.Parallel()

	svc, _, _ := buildMethodService(t)
	dto, err := svc.Create(context.Background(), CreateMethodRequest{Name: "Cash on Delivery", Type: "cod"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dto.Code != "cash-on-delivery" {
		t.Fatalf("expected generated code, got %q", dto.Code)
	}
	if !dto.IsActive {
		t.Fatalf("expected method active by default")
	}
}

func TestCreateMethodDuplicateCodeConflicts(t *testing.T) {
	t.Parallel()

	svc, _, _ := buildMethodService(t)
	if _, err := svc.Create(context.Background(), CreateMethodRequest{Name: "Card", Code: "card", Type: "card"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := svc.Create(context.Background(), CreateMethodRequest{Name: "Other Card", Code: "card", Type: "card"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for duplicate code, got %v", err)
	}
}

func TestCreateMethodRejectsUnknownType(t *testing.T) {
	t.Parallel()

	svc, _, _ := buildMethodService(t)
	_, err := svc.Create(context.Background(), CreateMethodRequest{Name: "Crypto", Type: "crypto"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}

func TestActivateDeactivateToggles(t *testing.T) {
	t.Parallel()

	svc, repo, _ := buildMethodService(t)
	dto, err := svc.Create(context.Background(), CreateMethodRequest{Name: "Card", Type: "card"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	deactivated, err := svc.Deactivate(context.Background(), dto.ID)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if deactivated.IsActive || repo.methods[dto.ID].IsActive {
		t.Fatalf("expected method inactive")
	}

	activated, err := svc.Activate(context.Background(), dto.ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !activated.IsActive || !repo.methods[dto.ID].IsActive {
		t.Fatalf("expected method active")
	}
}

func TestListActiveOnlyFilters(t *testing.T) {
	t.Parallel()

	svc, _, _ := buildMethodService(t)
	inactive := false
	if _, err := svc.Create(context.Background(), CreateMethodRequest{Name: "Hidden", Type: "card", IsActive: &inactive}); err != nil {
		t.Fatalf("create hidden: %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateMethodRequest{Name: "Visible", Type: "cod"}); err != nil {
		t.Fatalf("create visible: %v", err)
	}

	active, err := svc.List(context.Background(), true)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Visible" {
		t.Fatalf("expected only visible method, got %v", active)
	}

	all, err := svc.List(context.Background(), false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both methods, got %d", len(all))
	}
}

func TestStatsCountsPayments(t *testing.T) {
	t.Parallel()

	svc, _, counter := buildMethodService(t)
	if _, err := svc.Create(context.Background(), CreateMethodRequest{Name: "Card", Code: "card", Type: "card"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	counter.counts["card"] = 7

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 1 || stats[0].PaymentCount != 7 {
		t.Fatalf("expected payment count 7, got %v", stats)
	}
}

func TestInitDefaultsIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, repo, _ := buildMethodService(t)

	first, err := svc.InitDefaults(context.Background())
	if err != nil {
		t.Fatalf("init defaults: %v", err)
	}
	if len(first) != 3 || len(repo.methods) != 3 {
		t.Fatalf("expected 3 seeded methods, got %d", len(first))
	}

	second, err := svc.InitDefaults(context.Background())
	if err != nil {
		t.Fatalf("init defaults again: %v", err)
	}
	if len(second) != 0 || len(repo.methods) != 3 {
		t.Fatalf("expected no duplicates on second run, got %d new", len(second))
	}
}
