package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// Local storefront dev servers, used when no origins are configured.
var devOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

const corsMaxAgeSeconds = 300

// CORS lets the storefront call the API with credentials. The visitor header
// must be exposed or browsers cannot read back a freshly minted token.
func CORS(origins []string, sessionHeader string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = devOrigins
	}
	if sessionHeader == "" {
		sessionHeader = DefaultSessionHeader
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", sessionHeader, idempotencyHeader, requestIDHeader},
		ExposedHeaders:   []string{sessionHeader, requestIDHeader},
		AllowCredentials: true,
		MaxAge:           corsMaxAgeSeconds,
	})
}
