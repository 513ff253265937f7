package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/healios-dev/healios-backend/api/responses"
	"github.com/healios-dev/healios-backend/api/validators"
	"github.com/healios-dev/healios-backend/internal/discounts"
	"github.com/healios-dev/healios-backend/pkg/enums"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
	"github.com/healios-dev/healios-backend/pkg/logger"
	"github.com/healios-dev/healios-backend/pkg/pagination"
)

type discountCodeRequest struct {
	Code                 string           `json:"code" validate:"required,min=1,max=64"`
	Kind                 string           `json:"kind" validate:"required,oneof=percentage fixed_amount free_shipping"`
	Value                decimal.Decimal  `json:"value"`
	Description          *string          `json:"description" validate:"omitempty,max=500"`
	MinSpend             *decimal.Decimal `json:"min_spend"`
	ApplicableCategories []string         `json:"applicable_categories"`
	ExcludedCategories   []string         `json:"excluded_categories"`
	StartsAt             *time.Time       `json:"starts_at"`
	EndsAt               *time.Time       `json:"ends_at"`
	Active               *bool            `json:"active"`
	Stackable            bool             `json:"stackable"`
	PerCustomerCap       *int             `json:"per_customer_cap"`
	GlobalRedemptionCap  *int             `json:"global_redemption_cap"`
}

func (p discountCodeRequest) toInput() discounts.CodeInput {
	return discounts.CodeInput{
		Code:                 p.Code,
		Kind:                 enums.DiscountKind(p.Kind),
		Value:                p.Value,
		Description:          p.Description,
		MinSpend:             p.MinSpend,
		ApplicableCategories: p.ApplicableCategories,
		ExcludedCategories:   p.ExcludedCategories,
		StartsAt:             p.StartsAt,
		EndsAt:               p.EndsAt,
		Active:               p.Active,
		Stackable:            p.Stackable,
		PerCustomerCap:       p.PerCustomerCap,
		GlobalRedemptionCap:  p.GlobalRedemptionCap,
	}
}

func AdminDiscountCreate(svc discounts.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload discountCodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newDiscountCodeView(code))
	}
}

func AdminDiscountUpdate(svc discounts.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "codeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid code id"))
			return
		}

		var payload discountCodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.Update(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDiscountCodeView(code))
	}
}

func AdminDiscountGet(svc discounts.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "codeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid code id"))
			return
		}

		code, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDiscountCodeView(code))
	}
}

func AdminDiscountList(svc discounts.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: validators.ParseQueryString(r, "cursor"),
		}

		rows, next, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]discountCodeView, 0, len(rows))
		for i := range rows {
			views = append(views, newDiscountCodeView(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"codes":       views,
			"next_cursor": next,
		})
	}
}

// AdminDiscountRedemptions pages the append-only ledger for one code,
// released rows included.
func AdminDiscountRedemptions(svc discounts.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "codeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid code id"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: validators.ParseQueryString(r, "cursor"),
		}

		rows, next, err := svc.Redemptions(r.Context(), id, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]redemptionView, 0, len(rows))
		for i := range rows {
			views = append(views, newRedemptionView(rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"redemptions": views,
			"next_cursor": next,
		})
	}
}

func AdminDiscountDeactivate(svc discounts.AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "codeId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid code id"))
			return
		}

		code, err := svc.Deactivate(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDiscountCodeView(code))
	}
}
