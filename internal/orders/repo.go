package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/healios-dev/healios-backend/pkg/db/models"
	"github.com/healios-dev/healios-backend/pkg/enums"
	"github.com/healios-dev/healios-backend/pkg/pagination"
)

// OrderRepository encapsulates order persistence.
type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkPaymentFailed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) error
	UpdatePaymentIntentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentIntentStatus, failureReason *string) error
}

type gormOrderRepository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) OrderRepository {
	return &gormOrderRepository{db: db}
}

func (r *gormOrderRepository) WithTx(tx *gorm.DB) OrderRepository {
	if tx == nil {
		return r
	}
	return &gormOrderRepository{db: tx}
}

func (r *gormOrderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *gormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var row models.Order
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *gormOrderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Preload("Items").
		Where("customer_id = ?", customerID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit)
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Order
	err := q.Find(&rows).Error
	return rows, err
}

// MarkPaid settles a pending order. The status guard keeps replayed
// payment callbacks idempotent.
func (r *gormOrderRepository) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPendingPayment).
		Updates(map[string]any{"status": enums.OrderStatusPaid, "paid_at": at})
	return res.RowsAffected > 0, res.Error
}

// MarkPaymentFailed flips a pending order to failed, same idempotency
// guard as MarkPaid.
func (r *gormOrderRepository) MarkPaymentFailed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPendingPayment).
		Updates(map[string]any{"status": enums.OrderStatusPaymentFailed, "failed_at": at})
	return res.RowsAffected > 0, res.Error
}

func (r *gormOrderRepository) CreatePaymentIntent(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *gormOrderRepository) UpdatePaymentIntentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentIntentStatus, failureReason *string) error {
	updates := map[string]any{"status": status}
	if failureReason != nil {
		updates["failure_reason"] = *failureReason
	}
	return r.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("order_id = ?", orderID).
		Updates(updates).Error
}
