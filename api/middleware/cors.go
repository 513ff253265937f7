package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",        // local storefront dev
	"https://www.healios.com",      // storefront
	"https://checkout.healios.com", // hosted checkout
	"https://admin.healios.com",    // admin console
}

// CORS returns middleware that applies the API's allowed origin policy.
// The identity, idempotency and admin key headers all ride on custom
// headers, so they must be listed or browsers strip them in preflight.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   defaultCORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Customer-Id", "X-Session-Id", "Idempotency-Key", "X-Admin-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
