package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/healios-dev/healios-backend/pkg/enums"
	"github.com/healios-dev/healios-backend/pkg/types"
)

// Order is the immutable checkout result. All money columns are the
// final breakdown at commit time; AppliedCodes snapshots each code with
// the exact amount it took off so the order survives later code edits.
type Order struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID        uuid.UUID          `gorm:"column:cart_id;type:uuid;not null;uniqueIndex"`
	CustomerID    *uuid.UUID         `gorm:"column:customer_id;type:uuid;index"`
	SessionID     *string            `gorm:"column:session_id"`
	Email         *string            `gorm:"column:email"`
	Status        enums.OrderStatus  `gorm:"column:status;type:order_status;not null;default:'pending_payment'"`
	Subtotal      decimal.Decimal    `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountTotal decimal.Decimal    `gorm:"column:discount_total;type:numeric(12,2);not null;default:0"`
	ShippingCost  decimal.Decimal    `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	TaxAmount     decimal.Decimal    `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	Total         decimal.Decimal    `gorm:"column:total;type:numeric(12,2);not null"`
	AppliedCodes  types.AppliedCodes `gorm:"column:applied_codes;type:jsonb;serializer:json"`
	Items         []OrderLineItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaidAt        *time.Time         `gorm:"column:paid_at"`
	FailedAt      *time.Time         `gorm:"column:failed_at"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLineItem copies a cart line into the order at commit time.
type OrderLineItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name       string          `gorm:"column:name;not null"`
	Categories pq.StringArray  `gorm:"column:categories;type:text[]"`
	Quantity   int             `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal  decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
