package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/healios-dev/healios-backend/api/responses"
	pkgerrors "github.com/healios-dev/healios-backend/pkg/errors"
	"github.com/healios-dev/healios-backend/pkg/logger"
)

const adminKeyHeader = "X-Admin-Key"

// AdminKey guards the admin surface with a shared secret. An empty
// configured key disables the surface entirely rather than opening it.
func AdminKey(key string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin surface disabled"))
				return
			}
			presented := strings.TrimSpace(r.Header.Get(adminKeyHeader))
			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid admin key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
