package discounts

import (
	"github.com/shopspring/decimal"

	"github.com/healios-dev/healios-backend/pkg/db/models"
	"github.com/healios-dev/healios-backend/pkg/enums"
)

// Apply computes the price breakdown for a cart with the accepted codes
// applied in order.
//
// Percentage codes compound sequentially against the running subtotal,
// so 10% then 15% on 200 yields 200 * 0.9 * 0.85 = 153, not 150. Fixed
// amounts clamp at the remaining subtotal and can never drive it
// negative. Free shipping zeroes the shipping cost and touches nothing
// else. Tax is computed on the post-discount subtotal. Everything runs
// at full precision; the total is rounded to 2 decimals exactly once at
// the end.
func Apply(cart CartSnapshot, accepted []*models.DiscountCode, taxRate decimal.Decimal) Breakdown {
	remaining := cart.Subtotal
	shipping := cart.ShippingEstimate
	applied := make([]AppliedLine, 0, len(accepted))

	for _, code := range accepted {
		var amount decimal.Decimal
		switch code.Kind {
		case enums.DiscountKindFreeShipping:
			amount = shipping
			shipping = decimal.Zero
		case enums.DiscountKindPercentage:
			amount = remaining.Mul(code.Percent())
			remaining = remaining.Sub(amount)
		case enums.DiscountKindFixedAmount:
			amount = code.Value
			if amount.GreaterThan(remaining) {
				amount = remaining
			}
			remaining = remaining.Sub(amount)
		}
		applied = append(applied, AppliedLine{Code: code, Amount: amount})
	}

	tax := remaining.Mul(taxRate)

	return Breakdown{
		Subtotal:           cart.Subtotal,
		DiscountedSubtotal: remaining,
		ShippingCost:       shipping,
		TaxAmount:          tax,
		Applied:            applied,
		Total:              remaining.Add(shipping).Add(tax).Round(2),
	}
}
