package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/healios-dev/healios-backend/pkg/enums"
)

// CartRecord is a customer- or guest-scoped cart. AppliedCodes holds
// the raw codes in the order the shopper entered them; pricing always
// re-resolves them so a code that expired since entry drops out.
type CartRecord struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID       *uuid.UUID       `gorm:"column:customer_id;type:uuid;index"`
	SessionID        *string          `gorm:"column:session_id;index"`
	Email            *string          `gorm:"column:email"`
	Status           enums.CartStatus `gorm:"column:status;type:cart_status;not null;default:'active'"`
	ShippingEstimate decimal.Decimal  `gorm:"column:shipping_estimate;type:numeric(12,2);not null;default:0"`
	AppliedCodes     pq.StringArray   `gorm:"column:applied_codes;type:text[]"`
	Items            []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	AbandonedAt      *time.Time       `gorm:"column:abandoned_at"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem snapshots a product line inside a CartRecord. Name, price
// and categories are copied at add time so later catalog edits do not
// reprice an open cart.
type CartItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID     uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name       string          `gorm:"column:name;not null"`
	Categories pq.StringArray  `gorm:"column:categories;type:text[]"`
	Quantity   int             `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// LineTotal is quantity times unit price at full decimal precision.
func (i *CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
