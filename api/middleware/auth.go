package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-catalog/api/responses"
	pkgAuth "github.com/angelmondragon/storefront-catalog/pkg/auth"
	"github.com/angelmondragon/storefront-catalog/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

// bearerToken accepts "Bearer <token>" in any case as well as a bare token.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	return header
}

// Auth verifies the bearer token and records the caller on the request
// context and the log context.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reject := func(err error) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="storefront"`)
				responses.WriteError(r.Context(), logg, w, err)
			}

			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				reject(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if errors.Is(err, pkgAuth.ErrTokenExpired) {
				reject(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "token expired"))
				return
			}
			if err != nil {
				reject(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			actor := Actor{UserID: claims.UserID.String(), Role: string(claims.Role)}
			ctx := withActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, actor.UserID), actor.Role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
