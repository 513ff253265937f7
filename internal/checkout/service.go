package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/healios-dev/healios-backend/internal/cart"
	"github.com/healios-dev/healios-backend/internal/discounts"
	"github.com/healios-dev/healios-backend/internal/orders"
	"github.com/healios-dev/healios-backend/pkg/db/models"
	"github.com/healios-dev/healios-backend/pkg/enums"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
	"github.com/healios-dev/healios-backend/pkg/logger"
	"github.com/healios-dev/healios-backend/pkg/outbox"
	"github.com/healios-dev/healios-backend/pkg/outbox/payloads"
	"github.com/healios-dev/healios-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type cartProvider interface {
	GetOrCreate(ctx context.Context, identity discounts.Identity) (*models.CartRecord, error)
	Price(ctx context.Context, record *models.CartRecord, identity discounts.Identity) (*cart.PricedCartView, error)
}

type redemptionCommitter interface {
	Commit(ctx context.Context, tx *gorm.DB, breakdown discounts.Breakdown, identity discounts.Identity, orderID uuid.UUID) ([]models.Redemption, error)
	ReleaseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) ([]discounts.ReleasedRedemption, error)
}

// Result is the outcome of a finalized checkout.
type Result struct {
	Order     *models.Order
	Breakdown discounts.Breakdown
}

// Service owns order finalization. The discount commit, the order row
// and its snapshot all live inside one transaction: either the whole
// checkout lands or none of it does.
type Service interface {
	Execute(ctx context.Context, identity discounts.Identity) (*Result, error)
	HandlePaymentResult(ctx context.Context, orderID uuid.UUID, succeeded bool, reason string) (*models.Order, error)
}

type service struct {
	tx        txRunner
	carts     cartProvider
	cartRepo  cart.CartRepository
	orderRepo orders.OrderRepository
	discounts redemptionCommitter
	events    eventEmitter
	logg      *logger.Logger
}

// NewService wires the checkout transaction boundary.
func NewService(tx txRunner, carts cartProvider, cartRepo cart.CartRepository, orderRepo orders.OrderRepository, discountSvc redemptionCommitter, events eventEmitter, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if discountSvc == nil {
		return nil, fmt.Errorf("discount service required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		tx:        tx,
		carts:     carts,
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		discounts: discountSvc,
		events:    events,
		logg:      logg,
	}, nil
}

// Execute prices the active cart one final time and finalizes it into
// an order. Redemption quota is consumed by the conditional update
// inside the same transaction that creates the order, so losing the cap
// race rolls everything back before any payment capture; the caller
// must reprice and re-present the total.
func (s *service) Execute(ctx context.Context, identity discounts.Identity) (*Result, error) {
	record, err := s.carts.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, err
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	view, err := s.carts.Price(ctx, record, identity)
	if err != nil {
		return nil, err
	}
	// Cart pricing quietly drops codes that stopped qualifying, but an
	// order must never charge more than the shopper last saw. A stale
	// attached code rejects the checkout so they can fix or remove it.
	for _, outcome := range view.Outcomes {
		if outcome.Accepted {
			continue
		}
		details := map[string]any{"reason": string(outcome.Reason)}
		if outcome.Code != nil {
			details["code"] = outcome.Code.Code
		}
		return nil, pkgerrors.New(pkgerrors.CodeRuleViolation, outcome.Reason.Message()).WithDetails(details)
	}
	breakdown := view.Breakdown

	order := &models.Order{
		CartID:        record.ID,
		CustomerID:    record.CustomerID,
		SessionID:     record.SessionID,
		Email:         record.Email,
		Status:        enums.OrderStatusPendingPayment,
		Subtotal:      breakdown.Subtotal.Round(2),
		DiscountTotal: breakdown.DiscountTotal().Round(2),
		ShippingCost:  breakdown.ShippingCost.Round(2),
		TaxAmount:     breakdown.TaxAmount.Round(2),
		Total:         breakdown.Total,
		AppliedCodes:  snapshotCodes(breakdown),
		Items:         lineItems(record.Items),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		if _, err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}

		intent := &models.PaymentIntent{
			OrderID: order.ID,
			Amount:  order.Total,
			Status:  enums.PaymentIntentStatusPending,
		}
		if err := orderRepo.CreatePaymentIntent(ctx, intent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating payment intent")
		}

		redemptions, err := s.discounts.Commit(ctx, tx, breakdown, identity, order.ID)
		if err != nil {
			return err
		}

		if err := s.cartRepo.WithTx(tx).UpdateStatus(ctx, record.ID, enums.CartStatusConverted); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "converting cart")
		}

		actor := actorRef(identity)
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				CartID:     record.ID,
				CustomerID: record.CustomerID,
				Total:      order.Total,
				Codes:      record.AppliedCodes,
			},
		}); err != nil {
			return err
		}

		for _, redemption := range redemptions {
			line := appliedLineFor(breakdown, redemption.CodeID)
			if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventDiscountRedeemed,
				AggregateType: enums.AggregateDiscountCode,
				AggregateID:   redemption.CodeID,
				Actor:         actor,
				Version:       1,
				Data: payloads.DiscountRedeemedEvent{
					CodeID:           redemption.CodeID,
					Code:             line,
					OrderID:          order.ID,
					CustomerID:       redemption.CustomerID,
					AmountDiscounted: redemption.AmountDiscounted,
				},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeCapExceeded {
			s.logCapLost(ctx, record.ID)
		}
		return nil, err
	}

	return &Result{Order: order, Breakdown: breakdown}, nil
}

// HandlePaymentResult settles the payment outcome reported by the
// provider. A failed payment releases every redemption committed for
// the order in the same transaction that flips the status, so a code is
// never silently consumed without a paid order. Replays are no-ops.
func (s *service) HandlePaymentResult(ctx context.Context, orderID uuid.UUID, succeeded bool, reason string) (*models.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	now := time.Now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)

		if succeeded {
			flipped, err := orderRepo.MarkPaid(ctx, orderID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order paid")
			}
			if !flipped {
				return nil
			}
			if err := orderRepo.UpdatePaymentIntentStatus(ctx, orderID, enums.PaymentIntentStatusSucceeded, nil); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating payment intent")
			}
			return s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   orderID,
				Version:       1,
				Data:          payloads.OrderPaidEvent{OrderID: orderID, Total: order.Total, PaidAt: now},
			})
		}

		flipped, err := orderRepo.MarkPaymentFailed(ctx, orderID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order failed")
		}
		if !flipped {
			return nil
		}
		failure := reason
		if failure == "" {
			failure = "payment_failed"
		}
		if err := orderRepo.UpdatePaymentIntentStatus(ctx, orderID, enums.PaymentIntentStatusFailed, &failure); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating payment intent")
		}

		released, err := s.discounts.ReleaseForOrder(ctx, tx, orderID, failure)
		if err != nil {
			return err
		}
		for _, rel := range released {
			if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventDiscountReleased,
				AggregateType: enums.AggregateDiscountCode,
				AggregateID:   rel.Redemption.CodeID,
				Version:       1,
				Data: payloads.DiscountReleasedEvent{
					CodeID:       rel.Redemption.CodeID,
					Code:         codeFromSnapshot(order.AppliedCodes, rel.Redemption.CodeID),
					OrderID:      orderID,
					RedemptionID: rel.Redemption.ID,
					Reason:       failure,
				},
			}); err != nil {
				return err
			}
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentFailed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Version:       1,
			Data:          payloads.OrderPaymentFailedEvent{OrderID: orderID, Reason: failure, FailedAt: now},
		})
	})
	if err != nil {
		return nil, err
	}

	return s.orderRepo.FindByID(ctx, orderID)
}

func snapshotCodes(breakdown discounts.Breakdown) types.AppliedCodes {
	snapshot := make(types.AppliedCodes, 0, len(breakdown.Applied))
	for _, line := range breakdown.Applied {
		snapshot = append(snapshot, types.AppliedCode{
			CodeID: line.Code.ID,
			Code:   line.Code.Code,
			Amount: line.Amount.Round(2),
		})
	}
	return snapshot
}

func lineItems(items []models.CartItem) []models.OrderLineItem {
	lines := make([]models.OrderLineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.OrderLineItem{
			ProductID:  item.ProductID,
			Name:       item.Name,
			Categories: item.Categories,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			LineTotal:  item.LineTotal().Round(2),
		})
	}
	return lines
}

func appliedLineFor(breakdown discounts.Breakdown, codeID uuid.UUID) string {
	for _, line := range breakdown.Applied {
		if line.Code.ID == codeID {
			return line.Code.Code
		}
	}
	return ""
}

func codeFromSnapshot(snapshot types.AppliedCodes, codeID uuid.UUID) string {
	for _, entry := range snapshot {
		if entry.CodeID == codeID {
			return entry.Code
		}
	}
	return ""
}

func actorRef(identity discounts.Identity) *outbox.ActorRef {
	if identity.CustomerID == nil && identity.SessionID == "" {
		return nil
	}
	return &outbox.ActorRef{CustomerID: identity.CustomerID, SessionID: identity.SessionID}
}

func (s *service) logCapLost(ctx context.Context, cartID uuid.UUID) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithField(ctx, "cart_id", cartID.String())
	s.logg.Warn(ctx, "checkout rolled back: discount cap filled at commit, cart must be repriced")
}
