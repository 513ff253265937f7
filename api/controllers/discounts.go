package controllers

import (
	"net/http"

	"github.com/healios-dev/healios-backend/api/responses"
	"github.com/healios-dev/healios-backend/api/validators"
	cartsvc "github.com/healios-dev/healios-backend/internal/cart"
	"github.com/healios-dev/healios-backend/internal/discounts"
	"github.com/healios-dev/healios-backend/pkg/logger"
)

type validateCodeRequest struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

// DiscountValidate answers "would this code apply right now" for the
// shopper's live cart without attaching it or consuming quota. The
// storefront calls this as the shopper types.
func DiscountValidate(carts cartsvc.Service, engine discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload validateCodeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithDiscountCode(ctx, payload.Code)
		}

		record, err := carts.GetOrCreate(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := engine.Preview(ctx, discounts.PreviewInput{
			Code:         payload.Code,
			AppliedCodes: record.AppliedCodes,
			Cart:         discounts.SnapshotFromItems(record.Items, record.ShippingEstimate),
			Identity:     identity,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"accepted":  result.Accepted,
			"reason":    string(result.Reason),
			"message":   result.Message,
			"breakdown": newBreakdownView(result.Breakdown),
		})
	}
}
