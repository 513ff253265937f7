package enums

// DiscountKind is the discount strategy of a code. Exactly one applies per code.
type DiscountKind string

const (
	// DiscountKindPercentage takes a fraction off the running cart subtotal.
	DiscountKindPercentage DiscountKind = "percentage"
	// DiscountKindFixedAmount takes a fixed amount off, clamped at the remaining subtotal.
	DiscountKindFixedAmount DiscountKind = "fixed_amount"
	// DiscountKindFreeShipping zeroes the shipping cost and leaves the subtotal alone.
	DiscountKindFreeShipping DiscountKind = "free_shipping"
)

// Valid reports whether the kind is one of the supported strategies.
func (k DiscountKind) Valid() bool {
	switch k {
	case DiscountKindPercentage, DiscountKindFixedAmount, DiscountKindFreeShipping:
		return true
	}
	return false
}
