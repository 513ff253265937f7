package discounts

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/healios-dev/healios-backend/pkg/db/models"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
)

type redemptionCounter interface {
	CountByCustomer(ctx context.Context, codeID uuid.UUID, identity Identity) (int64, error)
}

// defaultPerCustomerCap applies when a code does not set its own cap;
// codes behave as one-time per customer unless the admin widens them.
const defaultPerCustomerCap = 1

// Evaluator decides which candidate codes may apply to a cart alongside
// any codes already accepted. All checks are reads; nothing here moves
// a counter.
type Evaluator struct {
	redemptions redemptionCounter
	maxStack    int
}

// NewEvaluator builds an evaluator. maxStack bounds the combined stack
// size including already-applied codes.
func NewEvaluator(redemptions redemptionCounter, maxStack int) (*Evaluator, error) {
	if redemptions == nil {
		return nil, fmt.Errorf("redemption counter required")
	}
	if maxStack < 1 {
		maxStack = 1
	}
	return &Evaluator{redemptions: redemptions, maxStack: maxStack}, nil
}

// Evaluate checks each candidate in user-entry order against the cart
// and the codes already applied. Accepted candidates join the stack for
// the candidates after them, so ordering is deterministic across
// retries. Business-rule failures come back as rejected outcomes, not
// errors.
func (e *Evaluator) Evaluate(ctx context.Context, cart CartSnapshot, identity Identity, candidates []*models.DiscountCode, alreadyApplied []*models.DiscountCode) ([]Outcome, error) {
	stack := make([]*models.DiscountCode, 0, len(alreadyApplied)+len(candidates))
	stack = append(stack, alreadyApplied...)

	outcomes := make([]Outcome, 0, len(candidates))
	for _, code := range candidates {
		reason, err := e.check(ctx, cart, identity, code, stack)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			outcomes = append(outcomes, Outcome{Code: code, Accepted: false, Reason: reason})
			continue
		}
		outcomes = append(outcomes, Outcome{Code: code, Accepted: true})
		stack = append(stack, code)
	}
	return outcomes, nil
}

// check runs the rule checks in order and short-circuits on the first
// failure. An empty reason means the code is eligible.
func (e *Evaluator) check(ctx context.Context, cart CartSnapshot, identity Identity, code *models.DiscountCode, stack []*models.DiscountCode) (RejectReason, error) {
	if code.MinSpend != nil && cart.Subtotal.LessThan(*code.MinSpend) {
		return ReasonBelowMinSpend, nil
	}

	if reason := checkCategories(cart, code); reason != "" {
		return reason, nil
	}

	if reason, err := e.checkPerCustomerCap(ctx, identity, code); err != nil {
		return "", err
	} else if reason != "" {
		return reason, nil
	}

	// Advisory only. The authoritative cap check is the conditional
	// increment at commit time.
	if code.GlobalRedemptionCap != nil && code.RedemptionCount >= *code.GlobalRedemptionCap {
		return ReasonCapReached, nil
	}

	if reason := checkStacking(code, stack, e.maxStack); reason != "" {
		return reason, nil
	}

	return "", nil
}

// checkCategories applies the include/exclude tag rules. Exclusion wins
// over inclusion: one excluded line rejects the code even when other
// lines match the applicable set.
func checkCategories(cart CartSnapshot, code *models.DiscountCode) RejectReason {
	for _, line := range cart.Lines {
		for _, tag := range line.Categories {
			if containsTag(code.ExcludedCategories, tag) {
				return ReasonCategoryExcluded
			}
		}
	}

	if len(code.ApplicableCategories) == 0 {
		return ""
	}
	for _, line := range cart.Lines {
		for _, tag := range line.Categories {
			if containsTag(code.ApplicableCategories, tag) {
				return ""
			}
		}
	}
	return ReasonCategoryExcluded
}

func (e *Evaluator) checkPerCustomerCap(ctx context.Context, identity Identity, code *models.DiscountCode) (RejectReason, error) {
	limit := defaultPerCustomerCap
	if code.PerCustomerCap != nil {
		limit = *code.PerCustomerCap
	}

	// Guests have no stable identity pre-order; session/email matching
	// in the counter is best-effort, not a guarantee.
	if identity.CustomerID == nil && identity.SessionID == "" && identity.Email == "" {
		return "", nil
	}

	used, err := e.redemptions.CountByCustomer(ctx, code.ID, identity)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting customer redemptions")
	}
	if used >= int64(limit) {
		return ReasonCapReached, nil
	}
	return "", nil
}

// checkStacking rejects a candidate when it cannot join the current
// stack, in either direction of non-stackability.
func checkStacking(code *models.DiscountCode, stack []*models.DiscountCode, maxStack int) RejectReason {
	if len(stack) == 0 {
		return ""
	}
	if !code.Stackable {
		return ReasonNotStackable
	}
	for _, applied := range stack {
		if !applied.Stackable {
			return ReasonNotStackable
		}
	}
	if len(stack)+1 > maxStack {
		return ReasonNotStackable
	}
	return ""
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
