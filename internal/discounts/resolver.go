package discounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/healios-dev/healios-backend/pkg/db/models"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
	"github.com/healios-dev/healios-backend/pkg/logger"
)

type codeFinder interface {
	FindByCode(ctx context.Context, code string) (*models.DiscountCode, error)
}

// Resolver normalizes raw code input and loads the matching rule set.
// It is a pure read path and safe to call on every keystroke.
type Resolver struct {
	repo          codeFinder
	logg          *logger.Logger
	caseSensitive bool
	loc           *time.Location
	now           func() time.Time
}

// NewResolver builds a resolver. loc is the storefront timezone the
// activation window is checked against; it defaults to UTC.
func NewResolver(repo codeFinder, logg *logger.Logger, caseSensitive bool, loc *time.Location) (*Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("code repository required")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{
		repo:          repo,
		logg:          logg,
		caseSensitive: caseSensitive,
		loc:           loc,
		now:           time.Now,
	}, nil
}

// NormalizeCode trims and, unless caseSensitive, uppercases a raw code.
// Every layer that stores or compares codes must go through this so the
// cart, the admin surface and the resolver agree on the canonical form.
func NormalizeCode(raw string, caseSensitive bool) string {
	code := strings.TrimSpace(raw)
	if !caseSensitive {
		code = strings.ToUpper(code)
	}
	return code
}

// Normalize applies the resolver's configured normalization so lookups
// hit the unique index directly.
func (r *Resolver) Normalize(raw string) string {
	return NormalizeCode(raw, r.caseSensitive)
}

// Resolve looks up the submitted code and checks it is live. Missing,
// inactive and out-of-window codes are distinguished in the logs but
// collapse to one NOT_FOUND error so the API does not reveal which
// codes exist.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*models.DiscountCode, error) {
	normalized := r.Normalize(raw)
	if normalized == "" {
		return nil, notFoundErr()
	}

	code, err := r.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.logMiss(ctx, normalized, "unknown code")
			return nil, notFoundErr()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up discount code")
	}

	if !code.Active {
		r.logMiss(ctx, normalized, "code inactive")
		return nil, notFoundErr()
	}

	now := r.now().In(r.loc)
	if code.StartsAt != nil && now.Before(code.StartsAt.In(r.loc)) {
		r.logMiss(ctx, normalized, "before activation window")
		return nil, notFoundErr()
	}
	if code.EndsAt != nil && now.After(code.EndsAt.In(r.loc)) {
		r.logMiss(ctx, normalized, "after activation window")
		return nil, notFoundErr()
	}

	return code, nil
}

func (r *Resolver) logMiss(ctx context.Context, code, why string) {
	if r.logg == nil {
		return
	}
	ctx = r.logg.WithDiscountCode(ctx, code)
	r.logg.Info(ctx, "discount code rejected at resolve: "+why)
}

func notFoundErr() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "invalid or expired code")
}
