package middleware

import (
	"net/http"

	"github.com/angelmondragon/storefront-catalog/api/responses"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

// RequireRole admits callers whose role is one of roles. It must run after
// Auth; a request with no actor is treated as unauthenticated.
func RequireRole(logg *logger.Logger, roles ...enums.MemberRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			switch {
			case !ok || actor.Role == "":
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			case !hasRole(actor.Role, roles):
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func hasRole(role string, roles []enums.MemberRole) bool {
	for _, allowed := range roles {
		if string(allowed) == role {
			return true
		}
	}
	return false
}
