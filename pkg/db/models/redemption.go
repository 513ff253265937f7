package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Redemption is an append-only record of a code committed against an
// order. Rows are never deleted; a failed payment is compensated with a
// RedemptionRelease instead.
type Redemption struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CodeID           uuid.UUID       `gorm:"column:code_id;type:uuid;not null;index"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	CustomerID       *uuid.UUID      `gorm:"column:customer_id;type:uuid;index"`
	SessionID        *string         `gorm:"column:session_id"`
	GuestEmail       *string         `gorm:"column:guest_email"`
	AmountDiscounted decimal.Decimal `gorm:"column:amount_discounted;type:numeric(12,2);not null"`
	Released         bool            `gorm:"column:released;not null;default:false"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// RedemptionRelease compensates a Redemption after a payment failure.
// The paired guarded decrement on DiscountCode.RedemptionCount happens
// in the same transaction that inserts this row.
type RedemptionRelease struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RedemptionID uuid.UUID `gorm:"column:redemption_id;type:uuid;not null;uniqueIndex"`
	CodeID       uuid.UUID `gorm:"column:code_id;type:uuid;not null"`
	OrderID      uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	Reason       string    `gorm:"column:reason;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
