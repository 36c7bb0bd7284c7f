package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/tablebite-backend/pkg/metrics"
)

const unmatchedRoute = "unmatched"

// Metrics observes latency per method, route pattern and status. Labelling by
// pattern keeps ids out of the label set.
func Metrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			observe := m.Start()
			ww, status := wrap(w, r)
			next.ServeHTTP(ww, r)
			observe(r.Method, routePattern(r), status())
		})
	}
}

func routePattern(r *http.Request) string {
	rc := chi.RouteContext(r.Context())
	if rc == nil {
		return unmatchedRoute
	}
	if pattern := rc.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}
