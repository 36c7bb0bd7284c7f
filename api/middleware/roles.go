package middleware

import (
	"net/http"
	"slices"

	"github.com/angelmondragon/tablebite-backend/api/responses"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

// guard rejects requests whose principal fails allow. Anonymous callers get
// UNAUTHORIZED, signed-in callers with the wrong role get FORBIDDEN.
func guard(logg *logger.Logger, allow func(Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			switch {
			case !ok:
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			case !allow(p):
				responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeForbidden, "role %q may not access this resource", p.Role))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireUser rejects requests that OptionalAuth let through anonymously.
func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return guard(logg, func(Principal) bool { return true })
}

func RequireRole(logg *logger.Logger, roles ...enums.SystemRole) func(http.Handler) http.Handler {
	return guard(logg, func(p Principal) bool { return slices.Contains(roles, p.Role) })
}

// RequireStaff guards the restaurant administration routes.
func RequireStaff(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRole(logg, enums.SystemRoleStaff)
}
