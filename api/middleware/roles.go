package middleware

import (
	"net/http"
	"slices"

	"github.com/freshbasket/storefront-backend/api/responses"
	"github.com/freshbasket/storefront-backend/pkg/enums"
	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
	"github.com/freshbasket/storefront-backend/pkg/logger"
)

// RequireRole admits only the listed roles. The admin loyalty routes are
// called by the order subsystem with an admin token; a customer token there
// is answered with 403, never 404, so misconfigured callers are obvious.
func RequireRole(logg *logger.Logger, allowed ...enums.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := enums.Role(RoleFromContext(r.Context()))
			if !slices.Contains(allowed, role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted for this route"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
