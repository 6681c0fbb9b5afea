package middleware

import (
	"net/http"
	"strings"

	"github.com/cliphive/cliphive-backend/api/responses"
	pkgauth "github.com/cliphive/cliphive-backend/pkg/auth"
	"github.com/cliphive/cliphive-backend/pkg/config"
	pkgerrors "github.com/cliphive/cliphive-backend/pkg/errors"
	"github.com/cliphive/cliphive-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the user
// identity. The raw token is kept in context as well: downstream transfers to
// the object store authenticate with the same credential.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithBearer(ctx, token)

			if logg != nil {
				ctx = logg.WithOwnerID(ctx, claims.UserID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
