package discounts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/healios-dev/healios-backend/pkg/db/models"
)

type stubRedemptionCounter struct {
	counts map[uuid.UUID]int64
}

func (s *stubRedemptionCounter) CountByCustomer(_ context.Context, codeID uuid.UUID, _ Identity) (int64, error) {
	return s.counts[codeID], nil
}

func newTestEvaluator(t *testing.T, maxStack int, counts map[uuid.UUID]int64) *Evaluator {
	t.Helper()
	if counts == nil {
		counts = map[uuid.UUID]int64{}
	}
	eval, err := NewEvaluator(&stubRedemptionCounter{counts: counts}, maxStack)
	if err != nil {
		t.Fatalf("building evaluator: %v", err)
	}
	return eval
}

func categoryCart(subtotal int64, categories ...string) CartSnapshot {
	return CartSnapshot{
		Subtotal: decimal.NewFromInt(subtotal),
		Lines: []CartLine{
			{ProductID: uuid.New(), Name: "item", Categories: categories, Quantity: 1, UnitPrice: decimal.NewFromInt(subtotal)},
		},
	}
}

func customerIdentity() Identity {
	id := uuid.New()
	return Identity{CustomerID: &id}
}

func evaluateOne(t *testing.T, eval *Evaluator, cart CartSnapshot, identity Identity, code *models.DiscountCode, applied ...*models.DiscountCode) Outcome {
	t.Helper()
	outcomes, err := eval.Evaluate(context.Background(), cart, identity, []*models.DiscountCode{code}, applied)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected one outcome, got %d", len(outcomes))
	}
	return outcomes[0]
}

func TestEvaluateMinSpend(t *testing.T) {
	t.Parallel()

	eval := newTestEvaluator(t, 3, nil)
	min := decimal.NewFromInt(100)
	code := percentageCode("SAVE10", 10)
	code.Stackable = false
	code.MinSpend = &min

	if got := evaluateOne(t, eval, categoryCart(100), customerIdentity(), code); !got.Accepted {
		t.Fatalf("subtotal at min spend should pass, got %s", got.Reason)
	}
	if got := evaluateOne(t, eval, categoryCart(99), customerIdentity(), code); got.Accepted || got.Reason != ReasonBelowMinSpend {
		t.Fatalf("expected BELOW_MIN_SPEND, got %+v", got)
	}
}

func TestEvaluateCategoryInclusion(t *testing.T) {
	t.Parallel()

	eval := newTestEvaluator(t, 3, nil)
	code := percentageCode("TEA10", 10)
	code.ApplicableCategories = []string{"tea"}

	if got := evaluateOne(t, eval, categoryCart(50, "tea", "gifts"), customerIdentity(), code); !got.Accepted {
		t.Fatalf("matching category should pass, got %s", got.Reason)
	}
	if got := evaluateOne(t, eval, categoryCart(50, "coffee"), customerIdentity(), code); got.Accepted || got.Reason != ReasonCategoryExcluded {
		t.Fatalf("expected CATEGORY_EXCLUDED, got %+v", got)
	}
}

func TestEvaluateExclusionWinsOverInclusion(t *testing.T) {
	t.Parallel()

	eval := newTestEvaluator(t, 3, nil)
	code := percentageCode("TEA10", 10)
	code.ApplicableCategories = []string{"tea"}
	code.ExcludedCategories = []string{"clearance"}

	cart := CartSnapshot{
		Subtotal: decimal.NewFromInt(80),
		Lines: []CartLine{
			{ProductID: uuid.New(), Categories: []string{"tea"}, Quantity: 1, UnitPrice: decimal.NewFromInt(50)},
			{ProductID: uuid.New(), Categories: []string{"clearance"}, Quantity: 1, UnitPrice: decimal.NewFromInt(30)},
		},
	}

	got := evaluateOne(t, eval, cart, customerIdentity(), code)
	if got.Accepted || got.Reason != ReasonCategoryExcluded {
		t.Fatalf("one excluded line must reject the code despite the tea match, got %+v", got)
	}
}

func TestEvaluatePerCustomerCap(t *testing.T) {
	t.Parallel()

	code := percentageCode("ONCE", 10)
	// no explicit cap: defaults to one redemption per customer
	eval := newTestEvaluator(t, 3, map[uuid.UUID]int64{code.ID: 1})

	got := evaluateOne(t, eval, categoryCart(50), customerIdentity(), code)
	if got.Accepted || got.Reason != ReasonCapReached {
		t.Fatalf("expected CAP_REACHED for used one-time code, got %+v", got)
	}

	wider := percentageCode("TWICE", 10)
	limit := 3
	wider.PerCustomerCap = &limit
	eval = newTestEvaluator(t, 3, map[uuid.UUID]int64{wider.ID: 2})
	if got := evaluateOne(t, eval, categoryCart(50), customerIdentity(), wider); !got.Accepted {
		t.Fatalf("two of three uses should still pass, got %s", got.Reason)
	}
}

func TestEvaluateAnonymousGuestSkipsCustomerCap(t *testing.T) {
	t.Parallel()

	code := percentageCode("ONCE", 10)
	eval := newTestEvaluator(t, 3, map[uuid.UUID]int64{code.ID: 5})

	// no customer id, session or email: nothing to count against
	got := evaluateOne(t, eval, categoryCart(50), Identity{}, code)
	if !got.Accepted {
		t.Fatalf("fully anonymous guest cannot be cap-checked pre-order, got %s", got.Reason)
	}
}

func TestEvaluateGlobalCapIsAdvisory(t *testing.T) {
	t.Parallel()

	eval := newTestEvaluator(t, 3, nil)
	code := percentageCode("HOT", 10)
	limit := 100
	code.GlobalRedemptionCap = &limit
	code.RedemptionCount = 100

	got := evaluateOne(t, eval, categoryCart(50), customerIdentity(), code)
	if got.Accepted || got.Reason != ReasonCapReached {
		t.Fatalf("expected CAP_REACHED on exhausted global cap, got %+v", got)
	}

	code.RedemptionCount = 99
	if got := evaluateOne(t, eval, categoryCart(50), customerIdentity(), code); !got.Accepted {
		t.Fatalf("one slot left should pass the advisory check, got %s", got.Reason)
	}
}

func TestEvaluateNonStackableRejectsInEitherOrder(t *testing.T) {
	t.Parallel()

	eval := newTestEvaluator(t, 3, nil)
	exclusive := percentageCode("EXCLUSIVE", 20)
	exclusive.Stackable = false
	friendly := percentageCode("FRIENDLY", 5)

	// non-stackable already applied rejects the stackable candidate
	got := evaluateOne(t, eval, categoryCart(50), customerIdentity(), friendly, exclusive)
	if got.Accepted || got.Reason != ReasonNotStackable {
		t.Fatalf("expected NOT_STACKABLE with exclusive applied first, got %+v", got)
	}

	// stackable already applied rejects the non-stackable candidate
	got = evaluateOne(t, eval, categoryCart(50), customerIdentity(), exclusive, friendly)
	if got.Accepted || got.Reason != ReasonNotStackable {
		t.Fatalf("expected NOT_STACKABLE with exclusive submitted second, got %+v", got)
	}

	// alone, the non-stackable code is fine
	if got := evaluateOne(t, eval, categoryCart(50), customerIdentity(), exclusive); !got.Accepted {
		t.Fatalf("non-stackable code alone should pass, got %s", got.Reason)
	}
}

func TestEvaluateMaxStackBound(t *testing.T) {
	t.Parallel()

	eval := newTestEvaluator(t, 2, nil)
	a := percentageCode("A", 5)
	b := percentageCode("B", 5)
	c := percentageCode("C", 5)

	outcomes, err := eval.Evaluate(context.Background(), categoryCart(50), customerIdentity(), []*models.DiscountCode{a, b, c}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !outcomes[0].Accepted || !outcomes[1].Accepted {
		t.Fatalf("first two codes should be accepted")
	}
	if outcomes[2].Accepted || outcomes[2].Reason != ReasonNotStackable {
		t.Fatalf("third code should exceed the stack bound, got %+v", outcomes[2])
	}
}

func TestEvaluateAppliesInEntryOrder(t *testing.T) {
	t.Parallel()

	eval := newTestEvaluator(t, 3, nil)
	small := percentageCode("SMALL", 5)
	big := percentageCode("BIG", 50)

	outcomes, err := eval.Evaluate(context.Background(), categoryCart(50), customerIdentity(), []*models.DiscountCode{small, big}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if outcomes[0].Code.Code != "SMALL" || outcomes[1].Code.Code != "BIG" {
		t.Fatalf("outcomes must preserve user entry order, not discount size")
	}
}
