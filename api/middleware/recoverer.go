package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/freshbasket/storefront-backend/api/responses"
	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
	"github.com/freshbasket/storefront-backend/pkg/logger"
)

// Recoverer turns a handler panic into a 500 envelope and logs the stack with
// the route and caller. http.ErrAbortHandler is re-raised so net/http can
// drop the connection as intended.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"panic":   fmt.Sprint(rec),
						"stack":   string(debug.Stack()),
						"method":  r.Method,
						"route":   routePattern(r),
						"user_id": UserIDFromContext(ctx),
					})
					logg.Error(ctx, "panic.recovered", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
