package enums

// OutboxEventType names a domain event emitted through the transactional outbox.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderPaid          OutboxEventType = "order.paid"
	EventOrderPaymentFailed OutboxEventType = "order.payment_failed"
	EventDiscountRedeemed   OutboxEventType = "discount.redeemed"
	EventDiscountReleased   OutboxEventType = "discount.released"
	EventCartAbandoned      OutboxEventType = "cart.abandoned"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateCart         OutboxAggregateType = "cart"
	AggregateDiscountCode OutboxAggregateType = "discount_code"
)
