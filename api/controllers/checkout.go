package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/healios-dev/healios-backend/api/responses"
	"github.com/healios-dev/healios-backend/api/validators"
	checkoutsvc "github.com/healios-dev/healios-backend/internal/checkout"
	"github.com/healios-dev/healios-backend/pkg/logger"
)

type paymentResultRequest struct {
	OrderID   uuid.UUID `json:"order_id" validate:"required"`
	Succeeded *bool     `json:"succeeded" validate:"required"`
	Reason    string    `json:"reason" validate:"max=255"`
}

// Checkout finalizes the shopper's cart into an order. A 409 with code
// CAP_EXCEEDED_AT_COMMIT means a discount's quota filled between pricing
// and commit; the storefront should refetch the cart and re-present it.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), identity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, result.Order.ID.String())
			logg.Info(ctx, "checkout complete")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderView(result.Order))
	}
}

// PaymentResult settles the provider's verdict for an order. Failed
// payments release any committed discount redemptions. The endpoint is
// replay-safe: a result that already settled is a no-op.
func PaymentResult(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload paymentResultRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, payload.OrderID.String())
		}

		order, err := svc.HandlePaymentResult(ctx, payload.OrderID, *payload.Succeeded, payload.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}
