package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/tablebite-backend/api/responses"
	pkgAuth "github.com/angelmondragon/tablebite-backend/pkg/auth"
	"github.com/angelmondragon/tablebite-backend/pkg/auth/session"
	"github.com/angelmondragon/tablebite-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, verifier, logg, true)
}

// OptionalAuth seeds the claims when a valid token is presented and otherwise
// serves the request anonymously.
func OptionalAuth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return authenticate(cfg, verifier, logg, false)
}

func authenticate(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verify(r, cfg, verifier)
			if err != nil {
				// Optional routes serve an expired or revoked token anonymously.
				if !required && !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
					next.ServeHTTP(w, r)
					return
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{UserID: claims.UserID, Role: claims.Role, AccessID: claims.ID})
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(claims.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verify(r *http.Request, cfg config.JWTConfig, verifier session.AccessSessionChecker) (*pkgAuth.AccessTokenClaims, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}

	if verifier != nil {
		ok, err := verifier.HasSession(r.Context(), claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}
	return claims, nil
}

func bearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
