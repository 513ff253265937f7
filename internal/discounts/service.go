package discounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/healios-dev/healios-backend/pkg/db/models"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
	"github.com/healios-dev/healios-backend/pkg/logger"
	"github.com/healios-dev/healios-backend/pkg/metrics"
)

// PricedCart is the engine's full answer for a cart and code list: the
// per-code verdicts plus the resulting breakdown with accepted codes
// applied in entry order.
type PricedCart struct {
	Outcomes  []Outcome
	Breakdown Breakdown
}

// PreviewInput is a side-effect-free validation request for one
// candidate code on top of codes already in the cart.
type PreviewInput struct {
	Code         string
	AppliedCodes []string
	Cart         CartSnapshot
	Identity     Identity
}

// PreviewResult reports whether the candidate would apply and what the
// cart would cost with it.
type PreviewResult struct {
	Accepted  bool
	Reason    RejectReason
	Message   string
	Breakdown Breakdown
}

// Service is the discount engine facade used by the cart, checkout and
// validation endpoints.
type Service interface {
	Normalize(raw string) string
	PriceCart(ctx context.Context, cart CartSnapshot, identity Identity, codes []string) (*PricedCart, error)
	Preview(ctx context.Context, input PreviewInput) (*PreviewResult, error)
	Commit(ctx context.Context, tx *gorm.DB, breakdown Breakdown, identity Identity, orderID uuid.UUID) ([]models.Redemption, error)
	ReleaseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) ([]ReleasedRedemption, error)
}

// ReleasedRedemption pairs a compensated redemption with its release row.
type ReleasedRedemption struct {
	Redemption models.Redemption
	Release    models.RedemptionRelease
}

type service struct {
	repo     CodeRepository
	resolver *Resolver
	eval     *Evaluator
	logg     *logger.Logger
	stats    *metrics.DiscountMetrics
	taxRate  decimal.Decimal
}

// NewService wires the resolver, evaluator and adjuster behind one facade.
func NewService(repo CodeRepository, resolver *Resolver, eval *Evaluator, logg *logger.Logger, stats *metrics.DiscountMetrics, taxRate decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("code repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if eval == nil {
		return nil, fmt.Errorf("evaluator required")
	}
	return &service{
		repo:     repo,
		resolver: resolver,
		eval:     eval,
		logg:     logg,
		stats:    stats,
		taxRate:  taxRate,
	}, nil
}

// Normalize returns the canonical form of a raw code under the
// resolver's configuration. Callers that persist codes (the cart's
// applied list) must store this form, not their own casing.
func (s *service) Normalize(raw string) string {
	return s.resolver.Normalize(raw)
}

// PriceCart resolves the raw codes in entry order, evaluates them and
// applies the accepted set. Codes that fail to resolve come back as
// expired outcomes rather than errors; pricing always succeeds for a
// readable cart.
func (s *service) PriceCart(ctx context.Context, cart CartSnapshot, identity Identity, codes []string) (*PricedCart, error) {
	outcomes := make([]Outcome, 0, len(codes))
	resolved := make([]*models.DiscountCode, 0, len(codes))

	for _, raw := range codes {
		code, err := s.resolver.Resolve(ctx, raw)
		if err != nil {
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
				outcomes = append(outcomes, Outcome{Accepted: false, Reason: ReasonExpired})
				s.countOutcome(ReasonExpired)
				continue
			}
			return nil, err
		}
		resolved = append(resolved, code)
	}

	verdicts, err := s.eval.Evaluate(ctx, cart, identity, resolved, nil)
	if err != nil {
		return nil, err
	}

	accepted := make([]*models.DiscountCode, 0, len(verdicts))
	for _, v := range verdicts {
		outcomes = append(outcomes, v)
		if v.Accepted {
			accepted = append(accepted, v.Code)
			s.countOutcome("")
		} else {
			s.countOutcome(v.Reason)
		}
	}

	return &PricedCart{
		Outcomes:  outcomes,
		Breakdown: Apply(cart, accepted, s.taxRate),
	}, nil
}

// Preview answers the live validation endpoint: would this code apply
// on top of what the cart already carries, and at what price. It never
// touches a counter.
func (s *service) Preview(ctx context.Context, input PreviewInput) (*PreviewResult, error) {
	applied := make([]*models.DiscountCode, 0, len(input.AppliedCodes))
	for _, raw := range input.AppliedCodes {
		code, err := s.resolver.Resolve(ctx, raw)
		if err != nil {
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
				// A previously applied code that no longer resolves
				// simply drops out of the stack.
				continue
			}
			return nil, err
		}
		applied = append(applied, code)
	}

	candidate, err := s.resolver.Resolve(ctx, input.Code)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
			s.countOutcome(ReasonExpired)
			return &PreviewResult{
				Accepted:  false,
				Reason:    ReasonExpired,
				Message:   ReasonExpired.Message(),
				Breakdown: Apply(input.Cart, applied, s.taxRate),
			}, nil
		}
		return nil, err
	}

	verdicts, err := s.eval.Evaluate(ctx, input.Cart, input.Identity, []*models.DiscountCode{candidate}, applied)
	if err != nil {
		return nil, err
	}
	verdict := verdicts[0]
	if !verdict.Accepted {
		s.countOutcome(verdict.Reason)
		return &PreviewResult{
			Accepted:  false,
			Reason:    verdict.Reason,
			Message:   verdict.Reason.Message(),
			Breakdown: Apply(input.Cart, applied, s.taxRate),
		}, nil
	}

	s.countOutcome("")
	return &PreviewResult{
		Accepted:  true,
		Breakdown: Apply(input.Cart, append(applied, candidate), s.taxRate),
	}, nil
}

// Commit consumes redemption quota for every applied code and writes
// the ledger rows, all inside the caller's order transaction. A cap
// that filled since evaluation surfaces as CAP_EXCEEDED_AT_COMMIT and
// must roll back the order before any payment capture.
func (s *service) Commit(ctx context.Context, tx *gorm.DB, breakdown Breakdown, identity Identity, orderID uuid.UUID) ([]models.Redemption, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	repo := s.repo.WithTx(tx)

	rows := make([]models.Redemption, 0, len(breakdown.Applied))
	for _, line := range breakdown.Applied {
		row := models.Redemption{
			CodeID:           line.Code.ID,
			OrderID:          orderID,
			CustomerID:       identity.CustomerID,
			AmountDiscounted: line.Amount.Round(2),
		}
		if identity.SessionID != "" {
			row.SessionID = &identity.SessionID
		}
		if identity.Email != "" {
			row.GuestEmail = &identity.Email
		}

		if err := repo.CommitRedemption(ctx, &row); err != nil {
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeCapExceeded {
				s.stats.IncCommitConflict()
				s.logCommitConflict(ctx, line.Code.Code, orderID)
			}
			return nil, err
		}
		s.stats.IncCommit()
		rows = append(rows, row)
	}
	return rows, nil
}

// ReleaseForOrder compensates every live redemption on the order after
// a payment failure, handing quota back so the codes are not silently
// consumed without a paid order.
func (s *service) ReleaseForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) ([]ReleasedRedemption, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	repo := s.repo.WithTx(tx)

	redemptions, err := repo.FindRedemptionsByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order redemptions")
	}

	released := make([]ReleasedRedemption, 0, len(redemptions))
	for _, redemption := range redemptions {
		release, err := repo.ReleaseRedemption(ctx, &redemption, reason)
		if err != nil {
			return nil, err
		}
		s.stats.IncRelease()
		released = append(released, ReleasedRedemption{Redemption: redemption, Release: *release})
	}
	return released, nil
}

func (s *service) countOutcome(reason RejectReason) {
	if s.stats == nil {
		return
	}
	if reason == "" {
		s.stats.IncValidation("accepted")
		return
	}
	s.stats.IncValidation(string(reason))
}

func (s *service) logCommitConflict(ctx context.Context, code string, orderID uuid.UUID) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithDiscountCode(ctx, code)
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Warn(ctx, "redemption cap filled between evaluation and commit")
}
