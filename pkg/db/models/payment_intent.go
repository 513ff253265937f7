package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/healios-dev/healios-backend/pkg/enums"
)

// PaymentIntent tracks the payment attempt for an order. The provider
// itself is external; we only record the outcome it reports back.
type PaymentIntent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID                 `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Amount        decimal.Decimal           `gorm:"column:amount;type:numeric(12,2);not null"`
	Status        enums.PaymentIntentStatus `gorm:"column:status;type:payment_intent_status;not null;default:'pending'"`
	FailureReason *string                   `gorm:"column:failure_reason"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
