package paymentmethods

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
)

type paymentCounter interface {
	CountByMethodCode(ctx context.Context, methodCode string) (int64, error)
}

// Service manages the payment methods offered at checkout.
type Service interface {
	Create(ctx context.Context, req CreateMethodRequest) (*MethodDTO, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateMethodRequest) (*MethodDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*MethodDTO, error)
	List(ctx context.Context, activeOnly bool) ([]MethodDTO, error)
	Activate(ctx context.Context, id uuid.UUID) (*MethodDTO, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*MethodDTO, error)
	Stats(ctx context.Context) ([]MethodStats, error)
	InitDefaults(ctx context.Context) ([]MethodDTO, error)
}

type ServiceParams struct {
	Repo     Repository
	Payments paymentCounter
}

type service struct {
	repo     Repository
	payments paymentCounter
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("payment method repository is required")
	}
	if params.Payments == nil {
		return nil, errors.New("payment counter is required")
	}
	return &service{repo: params.Repo, payments: params.Payments}, nil
}

// defaultMethods seeds the storefront with the methods every deployment is
// expected to offer out of the box.
var defaultMethods = []models.PaymentMethod{
	{Name: "Cash on Delivery", Code: "cod", Type: enums.PaymentMethodTypeCashOnDelivery, Position: 0},
	{Name: "Bank Transfer", Code: "bank_transfer", Type: enums.PaymentMethodTypeBankTransfer, Position: 1},
	{Name: "Card", Code: "card", Type: enums.PaymentMethodTypeCard, Position: 2},
}

func (s *service) Create(ctx context.Context, req CreateMethodRequest) (*MethodDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	methodType, err := enums.ParsePaymentMethodType(strings.TrimSpace(req.Type))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method type")
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = slug.Make(name)
	}
	if err := s.ensureCodeFree(ctx, code); err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	method := &models.PaymentMethod{
		Name:        name,
		Code:        code,
		Type:        methodType,
		Description: req.Description,
		IsActive:    isActive,
		Position:    req.Position,
		Config:      req.Config,
	}
	if err := s.repo.Create(ctx, method); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment method")
	}
	return FromModel(method), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateMethodRequest) (*MethodDTO, error) {
	method, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		method.Name = name
	}
	if req.Description != nil {
		method.Description = req.Description
	}
	if req.Position != nil {
		method.Position = *req.Position
	}
	if req.Config != nil {
		method.Config = req.Config
	}
	if err := s.repo.Update(ctx, method); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment method")
	}
	return FromModel(method), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete payment method")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*MethodDTO, error) {
	method, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(method), nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]MethodDTO, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payment methods")
	}
	return FromModels(rows), nil
}

func (s *service) Activate(ctx context.Context, id uuid.UUID) (*MethodDTO, error) {
	return s.setActive(ctx, id, true)
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) (*MethodDTO, error) {
	return s.setActive(ctx, id, false)
}

func (s *service) setActive(ctx context.Context, id uuid.UUID, active bool) (*MethodDTO, error) {
	method, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if method.IsActive != active {
		if err := s.repo.SetActive(ctx, id, active); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "toggle payment method")
		}
		method.IsActive = active
	}
	return FromModel(method), nil
}

func (s *service) Stats(ctx context.Context) ([]MethodStats, error) {
	rows, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payment methods")
	}

	out := make([]MethodStats, 0, len(rows))
	for i := range rows {
		count, err := s.payments.CountByMethodCode(ctx, rows[i].Code)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count method payments")
		}
		out = append(out, MethodStats{
			MethodID:     rows[i].ID,
			Code:         rows[i].Code,
			Name:         rows[i].Name,
			IsActive:     rows[i].IsActive,
			PaymentCount: count,
		})
	}
	return out, nil
}

// InitDefaults seeds the standard methods, skipping any code that already
// exists, so it is safe to run on every deploy.
func (s *service) InitDefaults(ctx context.Context) ([]MethodDTO, error) {
	created := make([]MethodDTO, 0, len(defaultMethods))
	for _, seed := range defaultMethods {
		_, err := s.repo.FindByCode(ctx, seed.Code)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check default method")
		}

		method := seed
		method.IsActive = true
		if err := s.repo.Create(ctx, &method); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seed payment method")
		}
		created = append(created, *FromModel(&method))
	}
	return created, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method id is required")
	}
	method, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment method")
	}
	return method, nil
}

func (s *service) ensureCodeFree(ctx context.Context, code string) error {
	_, err := s.repo.FindByCode(ctx, code)
	if err == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("payment method code %q already exists", code))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check method code")
	}
	return nil
}
