package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
	pkgerrors "github.com/mercatolabs/storefront-backend/pkg/errors"
	"github.com/mercatolabs/storefront-backend/pkg/pagination"
	"github.com/mercatolabs/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartReader interface {
	FindActiveByOwner(ctx context.Context, owner types.Owner) (*models.Cart, error)
}

type methodReader interface {
	FindByCode(ctx context.Context, code string) (*models.PaymentMethod, error)
}

type listingReader interface {
	FindListingByID(ctx context.Context, id uuid.UUID) (*models.ProductListing, error)
}

// Service exposes order lifecycle operations.
type Service interface {
	List(ctx context.Context, owner types.Owner, params pagination.Params) (*OrderPage, error)
	ListByStatus(ctx context.Context, owner types.Owner, status enums.OrderStatus, params pagination.Params) (*OrderPage, error)
	Get(ctx context.Context, owner types.Owner, id uuid.UUID) (*OrderDTO, error)
	Cancel(ctx context.Context, owner types.Owner, id uuid.UUID) (*OrderDTO, error)
	Refund(ctx context.Context, owner types.Owner, id uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error)
	Checkout(ctx context.Context, owner types.Owner, req CheckoutRequest) (*OrderDTO, error)
}

// ServiceParams groups dependencies for the orders service.
type ServiceParams struct {
	Repo    Repository
	Carts   cartReader
	Methods methodReader
	Catalog listingReader
	Tx      txRunner
}

type service struct {
	repo    Repository
	carts   cartReader
	methods methodReader
	catalog listingReader
	tx      txRunner
}

// NewService builds an orders service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart reader is required")
	}
	if params.Methods == nil {
		return nil, fmt.Errorf("payment method reader is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog reader is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:    params.Repo,
		carts:   params.Carts,
		methods: params.Methods,
		catalog: params.Catalog,
		tx:      params.Tx,
	}, nil
}

func (s *service) List(ctx context.Context, owner types.Owner, params pagination.Params) (*OrderPage, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order owner is required")
	}
	page, err := s.repo.ListByOwner(ctx, owner, params, nil)
	if err != nil {
		return nil, listErr(err)
	}
	return page, nil
}

func (s *service) ListByStatus(ctx context.Context, owner types.Owner, status enums.OrderStatus, params pagination.Params) (*OrderPage, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order owner is required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	page, err := s.repo.ListByOwner(ctx, owner, params, &status)
	if err != nil {
		return nil, listErr(err)
	}
	return page, nil
}

func listErr(err error) error {
	var typed *pkgerrors.Error
	if errors.As(err, &typed) {
		return err
	}
	if strings.Contains(err.Error(), "cursor") {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
}

func (s *service) Get(ctx context.Context, owner types.Owner, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

// Cancel rejects replays on terminal orders with a validation error rather
// than a conflict status.
func (s *service) Cancel(ctx context.Context, owner types.Owner, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order already %s", order.Status))
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order in %s state cannot be cancelled", order.Status))
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":       enums.OrderStatusCancelled,
		"cancelled_at": now,
	}
	if err := s.repo.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
	}
	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now
	return FromModel(order), nil
}

// Refund requires a settled payment and moves both the order and the payment
// to refunded.
func (s *service) Refund(ctx context.Context, owner types.Owner, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusRefunded {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order already refunded")
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusRefunded) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order in %s state cannot be refunded", order.Status))
	}

	payments, err := s.repo.FindPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payments")
	}
	var settled *models.Payment
	for i := range payments {
		if payments[i].Status.Refundable() {
			settled = &payments[i]
			break
		}
	}
	if settled == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no refundable payment on order")
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":         enums.OrderStatusRefunded,
			"payment_status": enums.PaymentStatusRefunded,
			"refunded_at":    now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refund order")
		}
		if err := repo.UpdatePayment(ctx, settled.ID, map[string]any{
			"status": enums.PaymentStatusRefunded,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refund payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusRefunded
	order.PaymentStatus = enums.PaymentStatusRefunded
	order.RefundedAt = &now
	return FromModel(order), nil
}

// UpdateStatus is the admin transition endpoint; it enforces the same table
// as cancel/refund.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, req UpdateStatusRequest) (*OrderDTO, error) {
	target, err := enums.ParseOrderStatus(strings.TrimSpace(req.Status))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("order in terminal %s state", order.Status))
	}
	if !order.Status.CanTransitionTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cannot transition from %s to %s", order.Status, target))
	}

	updates := map[string]any{"status": target}
	now := time.Now().UTC()
	switch target {
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
		order.CancelledAt = &now
	case enums.OrderStatusRefunded:
		updates["refunded_at"] = now
		updates["payment_status"] = enums.PaymentStatusRefunded
		order.RefundedAt = &now
		order.PaymentStatus = enums.PaymentStatusRefunded
	}
	if err := s.repo.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	order.Status = target
	return FromModel(order), nil
}

// Checkout snapshots the caller's active cart into an immutable order, marks
// the cart converted and records an unpaid payment against the chosen method.
func (s *service) Checkout(ctx context.Context, owner types.Owner, req CheckoutRequest) (*OrderDTO, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order owner is required")
	}
	methodCode := strings.TrimSpace(req.PaymentMethodCode)
	if methodCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_method_code is required")
	}

	method, err := s.methods.FindByCode(ctx, methodCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment method")
	}
	if !method.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is inactive")
	}

	cart, err := s.carts.FindActiveByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	subtotal := decimal.Zero
	titles := make(map[uuid.UUID]string, len(cart.Items))
	for _, item := range cart.Items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		if _, ok := titles[item.ListingID]; ok {
			continue
		}
		listing, err := s.catalog.FindListingByID(ctx, item.ListingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
		}
		titles[item.ListingID] = listing.Title
	}

	order := &models.Order{
		Number:        newOrderNumber(),
		UserID:        owner.UserID,
		SessionID:     owner.SessionID,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusUnpaid,
		Subtotal:      subtotal,
		Total:         subtotal,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		items := make([]models.OrderItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			items = append(items, models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				ListingID: line.ListingID,
				VariantID: line.VariantID,
				Title:     titles[line.ListingID],
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				LineTotal: line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
			})
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order items")
		}
		order.Items = items

		if err := repo.MarkCartConverted(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "convert cart")
		}

		payment := &models.Payment{
			OrderID:    order.ID,
			MethodCode: method.Code,
			Status:     enums.PaymentStatusUnpaid,
			Amount:     order.Total,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

// loadOwned checks record ownership. A session mismatch on a guest order is
// an authorization failure.
func (s *service) loadOwned(ctx context.Context, owner types.Owner, id uuid.UUID) (*models.Order, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order owner is required")
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !owner.Matches(order.UserID, order.SessionID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to caller")
	}
	return order, nil
}

func newOrderNumber() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("SF-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("SF-%s-%s", time.Now().UTC().Format("20060102"), strings.ToUpper(hex.EncodeToString(buf)))
}
