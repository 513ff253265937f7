package discounts

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/healios-dev/healios-backend/pkg/db/models"
	"github.com/healios-dev/healios-backend/pkg/enums"
)

func percentageCode(code string, rate int64) *models.DiscountCode {
	return &models.DiscountCode{
		ID:        uuid.New(),
		Code:      code,
		Kind:      enums.DiscountKindPercentage,
		Value:     decimal.NewFromInt(rate),
		Active:    true,
		Stackable: true,
	}
}

func fixedCode(code string, amount int64) *models.DiscountCode {
	return &models.DiscountCode{
		ID:        uuid.New(),
		Code:      code,
		Kind:      enums.DiscountKindFixedAmount,
		Value:     decimal.NewFromInt(amount),
		Active:    true,
		Stackable: true,
	}
}

func freeShippingCode(code string) *models.DiscountCode {
	return &models.DiscountCode{
		ID:        uuid.New(),
		Code:      code,
		Kind:      enums.DiscountKindFreeShipping,
		Active:    true,
		Stackable: true,
	}
}

func testCart(subtotal, shipping int64) CartSnapshot {
	return CartSnapshot{
		Subtotal:         decimal.NewFromInt(subtotal),
		ShippingEstimate: decimal.NewFromInt(shipping),
		Lines: []CartLine{
			{ProductID: uuid.New(), Name: "item", Quantity: 1, UnitPrice: decimal.NewFromInt(subtotal)},
		},
	}
}

func TestApplyPercentagesCompoundSequentially(t *testing.T) {
	t.Parallel()

	cart := testCart(200, 0)
	codes := []*models.DiscountCode{percentageCode("SAVE10", 10), percentageCode("SAVE15", 15)}

	got := Apply(cart, codes, decimal.Zero)

	// 200 * 0.9 * 0.85 = 153, not 200 * 0.75 = 150
	want := decimal.RequireFromString("153.00")
	if !got.Total.Equal(want) {
		t.Fatalf("expected compounded total %s, got %s", want, got.Total)
	}
	if !got.DiscountedSubtotal.Equal(decimal.NewFromInt(153)) {
		t.Fatalf("expected discounted subtotal 153, got %s", got.DiscountedSubtotal)
	}
	if !got.Applied[0].Amount.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("first discount should be 20, got %s", got.Applied[0].Amount)
	}
	if !got.Applied[1].Amount.Equal(decimal.NewFromInt(27)) {
		t.Fatalf("second discount should be 15%% of 180 = 27, got %s", got.Applied[1].Amount)
	}
}

func TestApplyFixedAmountClampsAtZero(t *testing.T) {
	t.Parallel()

	cart := testCart(30, 0)
	got := Apply(cart, []*models.DiscountCode{fixedCode("BIG", 50)}, decimal.Zero)

	if !got.Total.Equal(decimal.Zero.Round(2)) {
		t.Fatalf("expected total 0, got %s", got.Total)
	}
	if got.Total.IsNegative() {
		t.Fatalf("total must never be negative, got %s", got.Total)
	}
	if !got.Applied[0].Amount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("discount should clamp at subtotal 30, got %s", got.Applied[0].Amount)
	}
}

func TestApplyStackedFixedNeverGoesNegative(t *testing.T) {
	t.Parallel()

	cart := testCart(40, 0)
	codes := []*models.DiscountCode{fixedCode("A", 25), fixedCode("B", 25), fixedCode("C", 25)}
	got := Apply(cart, codes, decimal.NewFromFloat(0.15))

	if got.Total.IsNegative() {
		t.Fatalf("total must never be negative, got %s", got.Total)
	}
	if !got.Total.Equal(decimal.Zero.Round(2)) {
		t.Fatalf("expected zeroed total, got %s", got.Total)
	}
	if !got.Applied[2].Amount.Equal(decimal.Zero) {
		t.Fatalf("third code has nothing left to discount, got %s", got.Applied[2].Amount)
	}
}

func TestApplyFreeShippingOnlyTouchesShipping(t *testing.T) {
	t.Parallel()

	cart := testCart(100, 15)
	rate := decimal.NewFromFloat(0.15)

	got := Apply(cart, []*models.DiscountCode{freeShippingCode("SHIPFREE")}, rate)

	if !got.ShippingCost.Equal(decimal.Zero) {
		t.Fatalf("expected shipping 0, got %s", got.ShippingCost)
	}
	if !got.DiscountedSubtotal.Equal(cart.Subtotal) {
		t.Fatalf("subtotal must be untouched, got %s", got.DiscountedSubtotal)
	}
	if !got.TaxAmount.Equal(cart.Subtotal.Mul(rate)) {
		t.Fatalf("tax must be computed on the untouched subtotal, got %s", got.TaxAmount)
	}
}

func TestApplyTaxUsesPostDiscountSubtotal(t *testing.T) {
	t.Parallel()

	cart := testCart(100, 10)
	rate := decimal.NewFromFloat(0.15)

	got := Apply(cart, []*models.DiscountCode{percentageCode("SAVE10", 10)}, rate)

	// tax on 90, not 100
	wantTax := decimal.RequireFromString("13.5")
	if !got.TaxAmount.Equal(wantTax) {
		t.Fatalf("expected tax %s, got %s", wantTax, got.TaxAmount)
	}
	want := decimal.RequireFromString("113.50")
	if !got.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, got.Total)
	}
}

func TestApplyRemovingCodeRestoresBaseline(t *testing.T) {
	t.Parallel()

	cart := testCart(199, 12)
	rate := decimal.NewFromFloat(0.15)

	baseline := Apply(cart, nil, rate)
	discounted := Apply(cart, []*models.DiscountCode{percentageCode("SAVE13", 13)}, rate)
	restored := Apply(cart, nil, rate)

	if !restored.Total.Equal(baseline.Total) {
		t.Fatalf("removing a code must restore the exact baseline: %s vs %s", restored.Total, baseline.Total)
	}
	if discounted.Total.GreaterThanOrEqual(baseline.Total) {
		t.Fatalf("discounted total should be below baseline")
	}
	if len(restored.Applied) != 0 {
		t.Fatalf("no applied lines expected, got %d", len(restored.Applied))
	}
}

func TestApplyRoundsOnceAtTheEnd(t *testing.T) {
	t.Parallel()

	// 3 x 33.33 = 99.99; 10% then 15% leaves 76.49235 which carries
	// full precision until the single final rounding.
	cart := CartSnapshot{
		Subtotal:         decimal.RequireFromString("99.99"),
		ShippingEstimate: decimal.Zero,
	}
	codes := []*models.DiscountCode{percentageCode("A", 10), percentageCode("B", 15)}

	got := Apply(cart, codes, decimal.Zero)

	if !got.DiscountedSubtotal.Equal(decimal.RequireFromString("76.49235")) {
		t.Fatalf("intermediate subtotal must carry full precision, got %s", got.DiscountedSubtotal)
	}
	if !got.Total.Equal(decimal.RequireFromString("76.49")) {
		t.Fatalf("expected final rounded total 76.49, got %s", got.Total)
	}
}
