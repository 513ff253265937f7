package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healios-dev/healios-backend/api/middleware"
	"github.com/healios-dev/healios-backend/api/responses"
	"github.com/healios-dev/healios-backend/api/validators"
	"github.com/healios-dev/healios-backend/internal/orders"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
	"github.com/healios-dev/healios-backend/pkg/logger"
	"github.com/healios-dev/healios-backend/pkg/pagination"
)

// OrderGet fetches one order. Shoppers can only read their own.
func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity := middleware.IdentityFromContext(r.Context())
		owned := false
		if identity.CustomerID != nil && order.CustomerID != nil && *identity.CustomerID == *order.CustomerID {
			owned = true
		}
		if !owned && identity.SessionID != "" && order.SessionID != nil && *order.SessionID == identity.SessionID {
			owned = true
		}
		if !owned {
			// hide existence rather than admitting the order is someone else's
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}

		responses.WriteSuccess(w, newOrderView(order))
	}
}

// OrderList pages through the logged-in customer's order history.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := middleware.IdentityFromContext(r.Context())
		if identity.CustomerID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer identity required"))
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

		rows, next, err := svc.ListByCustomer(r.Context(), *identity.CustomerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]orderView, 0, len(rows))
		for i := range rows {
			views = append(views, newOrderView(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"orders":      views,
			"next_cursor": next,
		})
	}
}
