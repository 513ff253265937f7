package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/healios-dev/healios-backend/internal/discounts"
	"github.com/healios-dev/healios-backend/pkg/logger"
)

const (
	customerIDHeader = "X-Customer-Id"
	sessionIDHeader  = "X-Session-Id"
	customerEmail    = "X-Customer-Email"
)

type contextKey string

const ctxIdentity contextKey = "shopper_identity"

// Identity reads the shopper identity headers set by the storefront
// gateway and attaches them to the request context. A logged-in shopper
// carries a customer id; guests carry a session id and optionally the
// email entered at checkout.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := discounts.Identity{
				SessionID: strings.TrimSpace(r.Header.Get(sessionIDHeader)),
				Email:     strings.ToLower(strings.TrimSpace(r.Header.Get(customerEmail))),
			}
			if raw := strings.TrimSpace(r.Header.Get(customerIDHeader)); raw != "" {
				if id, err := uuid.Parse(raw); err == nil {
					identity.CustomerID = &id
				}
			}

			ctx := context.WithValue(r.Context(), ctxIdentity, identity)
			if logg != nil && identity.CustomerID != nil {
				ctx = logg.WithCustomerID(ctx, identity.CustomerID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity injects a shopper identity into the context.
func WithIdentity(ctx context.Context, identity discounts.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, identity)
}

// IdentityFromContext returns the shopper identity attached by the
// Identity middleware. The zero value means a fully anonymous request.
func IdentityFromContext(ctx context.Context) discounts.Identity {
	if ctx == nil {
		return discounts.Identity{}
	}
	if v, ok := ctx.Value(ctxIdentity).(discounts.Identity); ok {
		return v
	}
	return discounts.Identity{}
}
