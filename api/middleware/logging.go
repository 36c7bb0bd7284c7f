package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

// wrap records status and size. A handler that never writes answered 200.
func wrap(w http.ResponseWriter, r *http.Request) (chimw.WrapResponseWriter, func() int) {
	ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
	return ww, func() int {
		if status := ww.Status(); status != 0 {
			return status
		}
		return http.StatusOK
	}
}

// Logging writes one access line per request. Health probes are logged at
// debug so they do not drown real traffic.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})

			ww, status := wrap(w, r)
			next.ServeHTTP(ww, r.WithContext(ctx))

			done := logg.WithFields(ctx, map[string]any{
				"status":      status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(started).Milliseconds(),
			})
			if isProbe(r.URL.Path) {
				logg.Debug(done, "request.complete")
				return
			}
			logg.Info(done, "request.complete")
		})
	}
}

func isProbe(path string) bool {
	return path == "/health/live" || path == "/health/ready"
}
