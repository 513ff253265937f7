package discounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbpkg "github.com/healios-dev/healios-backend/pkg/db"
	"github.com/healios-dev/healios-backend/pkg/db/models"
	"github.com/healios-dev/healios-backend/pkg/enums"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
	"github.com/healios-dev/healios-backend/pkg/pagination"
)

// CodeInput is the admin payload for creating or updating a code.
type CodeInput struct {
	Code                 string
	Kind                 enums.DiscountKind
	Value                decimal.Decimal
	Description          *string
	MinSpend             *decimal.Decimal
	ApplicableCategories []string
	ExcludedCategories   []string
	StartsAt             *time.Time
	EndsAt               *time.Time
	Active               *bool
	Stackable            bool
	PerCustomerCap       *int
	GlobalRedemptionCap  *int
}

// AdminService owns the write path for discount code rules. The engine
// itself only ever reads them.
type AdminService interface {
	Create(ctx context.Context, input CodeInput) (*models.DiscountCode, error)
	Update(ctx context.Context, id uuid.UUID, input CodeInput) (*models.DiscountCode, error)
	Get(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error)
	List(ctx context.Context, params pagination.Params) ([]models.DiscountCode, string, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error)
	Redemptions(ctx context.Context, id uuid.UUID, params pagination.Params) ([]models.Redemption, string, error)
}

type adminService struct {
	repo          CodeRepository
	caseSensitive bool
}

// NewAdminService builds the admin-facing CRUD service. caseSensitive
// must match the resolver's setting so created codes round-trip through
// lookup in the same canonical form.
func NewAdminService(repo CodeRepository, caseSensitive bool) (AdminService, error) {
	if repo == nil {
		return nil, fmt.Errorf("code repository required")
	}
	return &adminService{repo: repo, caseSensitive: caseSensitive}, nil
}

func (s *adminService) Create(ctx context.Context, input CodeInput) (*models.DiscountCode, error) {
	row, err := rowFromInput(input, s.caseSensitive)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a code with that name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating discount code")
	}
	return created, nil
}

func (s *adminService) Update(ctx context.Context, id uuid.UUID, input CodeInput) (*models.DiscountCode, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "discount code not found")
	}

	next, err := rowFromInput(input, s.caseSensitive)
	if err != nil {
		return nil, err
	}
	next.ID = existing.ID
	next.RedemptionCount = existing.RedemptionCount
	next.CreatedAt = existing.CreatedAt

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a code with that name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating discount code")
	}
	return updated, nil
}

func (s *adminService) Get(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "discount code not found")
	}
	return row, nil
}

func (s *adminService) List(ctx context.Context, params pagination.Params) ([]models.DiscountCode, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing discount codes")
	}
	page, hasMore := pagination.TrimPage(rows, params.Limit)
	next := ""
	if hasMore && len(page) > 0 {
		last := page[len(page)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, next, nil
}

func (s *adminService) Deactivate(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "discount code not found")
	}
	if !row.Active {
		return row, nil
	}
	row.Active = false
	updated, err := s.repo.Update(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivating discount code")
	}
	return updated, nil
}

// Redemptions pages the append-only ledger for one code, newest first.
func (s *adminService) Redemptions(ctx context.Context, id uuid.UUID, params pagination.Params) ([]models.Redemption, string, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "discount code not found")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListRedemptionsByCode(ctx, id, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing redemptions")
	}
	page, hasMore := pagination.TrimPage(rows, params.Limit)
	next := ""
	if hasMore && len(page) > 0 {
		last := page[len(page)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, next, nil
}

func rowFromInput(input CodeInput, caseSensitive bool) (*models.DiscountCode, error) {
	code := NormalizeCode(input.Code, caseSensitive)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if !input.Kind.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown discount kind")
	}

	switch input.Kind {
	case enums.DiscountKindPercentage:
		if input.Value.LessThanOrEqual(decimal.Zero) || input.Value.GreaterThan(decimal.NewFromInt(100)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "percentage must be between 0 and 100")
		}
	case enums.DiscountKindFixedAmount:
		if input.Value.LessThanOrEqual(decimal.Zero) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "fixed amount must be positive")
		}
	case enums.DiscountKindFreeShipping:
		input.Value = decimal.Zero
	}

	if input.MinSpend != nil && input.MinSpend.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum spend cannot be negative")
	}
	if input.StartsAt != nil && input.EndsAt != nil && !input.StartsAt.Before(*input.EndsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "activation window must start before it ends")
	}
	if input.PerCustomerCap != nil && *input.PerCustomerCap < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "per-customer cap must be at least 1")
	}
	if input.GlobalRedemptionCap != nil && *input.GlobalRedemptionCap < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "global redemption cap must be at least 1")
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	return &models.DiscountCode{
		Code:                 code,
		Kind:                 input.Kind,
		Value:                input.Value,
		Description:          input.Description,
		MinSpend:             input.MinSpend,
		ApplicableCategories: input.ApplicableCategories,
		ExcludedCategories:   input.ExcludedCategories,
		StartsAt:             input.StartsAt,
		EndsAt:               input.EndsAt,
		Active:               active,
		Stackable:            input.Stackable,
		PerCustomerCap:       input.PerCustomerCap,
		GlobalRedemptionCap:  input.GlobalRedemptionCap,
	}, nil
}
