package discounts

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/healios-dev/healios-backend/pkg/db/models"
)

// CartLine is one priced cart row with the category tags the
// eligibility checks run against.
type CartLine struct {
	ProductID  uuid.UUID
	Name       string
	Categories []string
	Quantity   int
	UnitPrice  decimal.Decimal
}

// CartSnapshot is the evaluator's read-only view of a cart. Subtotal is
// pre-discount and pre-shipping.
type CartSnapshot struct {
	Subtotal         decimal.Decimal
	ShippingEstimate decimal.Decimal
	Lines            []CartLine
}

// SnapshotFromItems derives a CartSnapshot from persisted cart items.
func SnapshotFromItems(items []models.CartItem, shipping decimal.Decimal) CartSnapshot {
	snap := CartSnapshot{
		Subtotal:         decimal.Zero,
		ShippingEstimate: shipping,
		Lines:            make([]CartLine, 0, len(items)),
	}
	for _, item := range items {
		snap.Lines = append(snap.Lines, CartLine{
			ProductID:  item.ProductID,
			Name:       item.Name,
			Categories: item.Categories,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		})
		snap.Subtotal = snap.Subtotal.Add(item.LineTotal())
	}
	return snap
}

// Identity carries what we know about the shopper. CustomerID is nil
// for guests; session id and email are best-effort stand-ins for
// per-customer cap counting in that case.
type Identity struct {
	CustomerID *uuid.UUID
	SessionID  string
	Email      string
}

// RejectReason classifies an expected business-rule rejection.
type RejectReason string

const (
	ReasonExpired          RejectReason = "EXPIRED"
	ReasonBelowMinSpend    RejectReason = "BELOW_MIN_SPEND"
	ReasonCategoryExcluded RejectReason = "CATEGORY_EXCLUDED"
	ReasonCapReached       RejectReason = "CAP_REACHED"
	ReasonNotStackable     RejectReason = "NOT_STACKABLE"
)

// Message returns the user-facing copy for the reason. Spend and
// category rejections are actionable; everything else stays generic so
// the API does not leak which codes exist.
func (r RejectReason) Message() string {
	switch r {
	case ReasonBelowMinSpend:
		return "your cart subtotal is below the minimum required for this code"
	case ReasonCategoryExcluded:
		return "this code does not apply to the items in your cart"
	case ReasonNotStackable:
		return "this code cannot be combined with the codes already applied"
	default:
		return "invalid or expired code"
	}
}

// Outcome is the evaluator's per-code verdict.
type Outcome struct {
	Code     *models.DiscountCode
	Accepted bool
	Reason   RejectReason
}

// AppliedLine pairs an accepted code with the exact amount it took off.
// Amount is carried at full precision until the final rounding step.
type AppliedLine struct {
	Code   *models.DiscountCode
	Amount decimal.Decimal
}

// Breakdown is the derived price view of a cart. It is recomputed on
// every evaluation and only persisted as an immutable snapshot on the
// order at checkout.
type Breakdown struct {
	Subtotal           decimal.Decimal
	DiscountedSubtotal decimal.Decimal
	ShippingCost       decimal.Decimal
	TaxAmount          decimal.Decimal
	Applied            []AppliedLine
	Total              decimal.Decimal
}

// DiscountTotal sums the applied amounts at full precision.
func (b Breakdown) DiscountTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range b.Applied {
		total = total.Add(line.Amount)
	}
	return total
}
