package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/healios-dev/healios-backend/pkg/db/models"
	"github.com/healios-dev/healios-backend/pkg/enums"
)

// CartRepository encapsulates cart persistence.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.CartRecord, error)
	FindActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*models.CartRecord, error)
	FindActiveBySession(ctx context.Context, sessionID string) (*models.CartRecord, error)
	Create(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error)
	Update(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error)
	UpsertItem(ctx context.Context, item *models.CartItem) error
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CartStatus) error
	FindStaleActive(ctx context.Context, cutoff time.Time, limit int) ([]models.CartRecord, error)
	MarkAbandoned(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

type gormCartRepository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) CartRepository {
	return &gormCartRepository{db: db}
}

func (r *gormCartRepository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &gormCartRepository{db: tx}
}

func (r *gormCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *gormCartRepository) FindActiveByCustomer(ctx context.Context, customerID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).Preload("Items").
		Where("customer_id = ? AND status = ?", customerID, enums.CartStatusActive).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *gormCartRepository) FindActiveBySession(ctx context.Context, sessionID string) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).Preload("Items").
		Where("session_id = ? AND status = ?", sessionID, enums.CartStatusActive).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *gormCartRepository) Create(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *gormCartRepository) Update(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error) {
	if err := r.db.WithContext(ctx).Omit("Items").Save(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// UpsertItem inserts the line or replaces its quantity when the product
// is already in the cart.
func (r *gormCartRepository) UpsertItem(ctx context.Context, item *models.CartItem) error {
	var existing models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", item.CartID, item.ProductID).
		First(&existing).Error
	if err == nil {
		return r.db.WithContext(ctx).Model(&existing).
			Updates(map[string]any{"quantity": item.Quantity, "unit_price": item.UnitPrice}).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *gormCartRepository) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{}).Error
}

func (r *gormCartRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CartStatus) error {
	return r.db.WithContext(ctx).Model(&models.CartRecord{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *gormCartRepository) FindStaleActive(ctx context.Context, cutoff time.Time, limit int) ([]models.CartRecord, error) {
	var rows []models.CartRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", enums.CartStatusActive, cutoff).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkAbandoned flips an active cart to abandoned. The status guard
// makes the sweep idempotent across overlapping cron runs.
func (r *gormCartRepository) MarkAbandoned(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.CartRecord{}).
		Where("id = ? AND status = ?", id, enums.CartStatusActive).
		Updates(map[string]any{"status": enums.CartStatusAbandoned, "abandoned_at": at})
	return res.RowsAffected > 0, res.Error
}
