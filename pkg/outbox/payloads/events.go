package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent signals a checkout that committed but is not yet paid.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	CartID     uuid.UUID       `json:"cart_id"`
	CustomerID *uuid.UUID      `json:"customer_id,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Codes      []string        `json:"codes,omitempty"`
}

// OrderPaidEvent is emitted when the payment provider confirms the charge.
type OrderPaidEvent struct {
	OrderID uuid.UUID       `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
	PaidAt  time.Time       `json:"paid_at"`
}

// OrderPaymentFailedEvent is emitted when a charge is declined. Any
// redemptions committed for the order have been released by the time
// this event publishes.
type OrderPaymentFailedEvent struct {
	OrderID  uuid.UUID `json:"order_id"`
	Reason   string    `json:"reason,omitempty"`
	FailedAt time.Time `json:"failed_at"`
}

// DiscountRedeemedEvent records one code committed against an order.
type DiscountRedeemedEvent struct {
	CodeID           uuid.UUID       `json:"code_id"`
	Code             string          `json:"code"`
	OrderID          uuid.UUID       `json:"order_id"`
	CustomerID       *uuid.UUID      `json:"customer_id,omitempty"`
	AmountDiscounted decimal.Decimal `json:"amount_discounted"`
}

// DiscountReleasedEvent compensates a DiscountRedeemedEvent after a
// payment failure.
type DiscountReleasedEvent struct {
	CodeID       uuid.UUID `json:"code_id"`
	Code         string    `json:"code"`
	OrderID      uuid.UUID `json:"order_id"`
	RedemptionID uuid.UUID `json:"redemption_id"`
	Reason       string    `json:"reason"`
}

// CartAbandonedEvent fires when the cron sweep marks a stale cart.
type CartAbandonedEvent struct {
	CartID      uuid.UUID  `json:"cart_id"`
	CustomerID  *uuid.UUID `json:"customer_id,omitempty"`
	Email       string     `json:"email,omitempty"`
	AbandonedAt time.Time  `json:"abandoned_at"`
}
