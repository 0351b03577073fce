package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/internal/repo"
	"github.com/mercatolabs/storefront-backend/pkg/db/models"
	"github.com/mercatolabs/storefront-backend/pkg/enums"
	"github.com/mercatolabs/storefront-backend/pkg/pagination"
	"github.com/mercatolabs/storefront-backend/pkg/types"
)

// Repository defines persistence operations for orders and payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByOwner(ctx context.Context, owner types.Owner, params pagination.Params, status *enums.OrderStatus) (*OrderPage, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	FindPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	UpdatePayment(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error
	CountByMethodCode(ctx context.Context, methodCode string) (int64, error)
	MarkCartConverted(ctx context.Context, cartID uuid.UUID) error
}

type repository struct {
	base repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.Rebind(tx)}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.base.DB(ctx).Omit("Items").Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.base.DB(ctx).Create(&items).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.base.DB(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.base.DB(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func ownerScope(q *gorm.DB, owner types.Owner) *gorm.DB {
	if owner.IsUser() {
		return q.Where("user_id = ?", *owner.UserID)
	}
	return q.Where("session_id = ?", *owner.SessionID)
}

func (r *repository) ListByOwner(ctx context.Context, owner types.Owner, params pagination.Params, status *enums.OrderStatus) (*OrderPage, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	cursorValue := strings.TrimSpace(params.Cursor)
	decodedCursor, err := pagination.ParseCursor(cursorValue)
	if err != nil {
		return nil, err
	}

	q := ownerScope(r.base.DB(ctx).Model(&models.Order{}), owner).Preload("Items")
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if decodedCursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	var records []models.Order
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&records).Error; err != nil {
		return nil, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > normalizedLimit {
		resultRows = records[:normalizedLimit]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	countQ := ownerScope(r.base.DB(ctx).Model(&models.Order{}), owner)
	if status != nil {
		countQ = countQ.Where("status = ?", *status)
	}
	var total int64
	if err := countQ.Count(&total).Error; err != nil {
		return nil, err
	}

	return &OrderPage{
		Orders:     FromModels(resultRows),
		NextCursor: nextCursor,
		Total:      total,
	}, nil
}

func (r *repository) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.base.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) FindPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.base.DB(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) UpdatePayment(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error {
	return r.base.DB(ctx).
		Model(&models.Payment{}).
		Where("id = ?", paymentID).
		Updates(updates).Error
}

// MarkCartConverted freezes the source cart once checkout snapshots it.
func (r *repository) MarkCartConverted(ctx context.Context, cartID uuid.UUID) error {
	return r.base.DB(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		UpdateColumn("status", enums.CartStatusConverted).Error
}

func (r *repository) CountByMethodCode(ctx context.Context, methodCode string) (int64, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.Payment{}).
		Where("method_code = ?", methodCode).
		Count(&count).Error
	return count, err
}
