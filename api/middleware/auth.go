package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/freshbasket/storefront-backend/api/responses"
	pkgAuth "github.com/freshbasket/storefront-backend/pkg/auth"
	"github.com/freshbasket/storefront-backend/pkg/config"
	pkgerrors "github.com/freshbasket/storefront-backend/pkg/errors"
	"github.com/freshbasket/storefront-backend/pkg/logger"
)

var errMissingBearer = errors.New("missing bearer token")

// Auth admits requests carrying a valid customer or staff access token and
// seeds the context with its user, role and preferred branch.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "token expired"
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, msg))
				return
			}

			ctx := withClaims(r.Context(), claims)
			if logg != nil {
				ctx = logg.WithFields(ctx, claimFields(claims))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken accepts only the Bearer scheme; a bare token or Basic
// credentials are rejected.
func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", errMissingBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errMissingBearer
	}
	return token, nil
}

func claimFields(claims *pkgAuth.AccessTokenClaims) map[string]any {
	fields := map[string]any{
		"user_id":    claims.UserID.String(),
		"actor_role": string(claims.Role),
	}
	if claims.BranchID != nil {
		fields["branch_id"] = claims.BranchID.String()
	}
	return fields
}
