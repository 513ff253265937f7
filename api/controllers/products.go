package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healios-dev/healios-backend/api/responses"
	"github.com/healios-dev/healios-backend/api/validators"
	"github.com/healios-dev/healios-backend/internal/products"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
	"github.com/healios-dev/healios-backend/pkg/logger"
	"github.com/healios-dev/healios-backend/pkg/pagination"
)

// ProductList serves the storefront catalog with cursor pagination and
// an optional category filter.
func ProductList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
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
		category := validators.ParseQueryString(r, "category")

		rows, next, err := svc.List(r.Context(), params, category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]productView, 0, len(rows))
		for i := range rows {
			views = append(views, newProductView(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"products":    views,
			"next_cursor": next,
		})
	}
}

// ProductGet fetches one product by id, falling back to slug lookup for
// storefront-friendly URLs.
func ProductGet(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "productKey")
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product identifier required"))
			return
		}

		if id, parseErr := uuid.Parse(key); parseErr == nil {
			found, getErr := svc.Get(r.Context(), id)
			if getErr != nil {
				responses.WriteError(r.Context(), logg, w, getErr)
				return
			}
			responses.WriteSuccess(w, newProductView(found))
			return
		}

		found, err := svc.GetBySlug(r.Context(), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductView(found))
	}
}
