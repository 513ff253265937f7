package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healios-dev/healios-backend/api/middleware"
	"github.com/healios-dev/healios-backend/api/responses"
	"github.com/healios-dev/healios-backend/api/validators"
	cartsvc "github.com/healios-dev/healios-backend/internal/cart"
	"github.com/healios-dev/healios-backend/internal/discounts"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
	"github.com/healios-dev/healios-backend/pkg/logger"
)

type cartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type cartCodeRequest struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

// CartFetch returns the shopper's active cart, priced.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(view))
	}
}

// CartItemAdd puts a product line in the cart and reprices it.
func CartItemAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.AddItem(r.Context(), identity, payload.ProductID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(view))
	}
}

// CartItemRemove drops a product line from the cart.
func CartItemRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		view, err := svc.RemoveItem(r.Context(), identity, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(view))
	}
}

// CartCodeApply previews the code against the cart's stack and attaches
// it only when it would actually apply. A rejection is a 200 with the
// verdict in the body: the cart itself is still fine.
func CartCodeApply(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartCodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithDiscountCode(ctx, payload.Code)
		}

		view, preview, err := svc.ApplyCode(ctx, identity, payload.Code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"accepted": preview.Accepted,
			"reason":   string(preview.Reason),
			"message":  preview.Message,
			"cart":     newCartView(view),
		})
	}
}

// CartCodeRemove detaches a code and reprices the cart.
func CartCodeRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code := chi.URLParam(r, "code")
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "code required"))
			return
		}

		view, err := svc.RemoveCode(r.Context(), identity, code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(view))
	}
}

func requireIdentity(r *http.Request) (discounts.Identity, error) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity.CustomerID == nil && identity.SessionID == "" {
		return identity, pkgerrors.New(pkgerrors.CodeValidation, "customer or session identity required")
	}
	return identity, nil
}
