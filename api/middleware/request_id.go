package middleware

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

const (
	requestIDHeader    = "X-Request-Id"
	maxRequestIDLength = 128
)

// RequestID trusts a well-formed caller id and otherwise mints a UUID. The id
// is echoed on the response and stamped on every log line of the request.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if !usableRequestID(id) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func usableRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	return strings.IndexFunc(id, func(c rune) bool { return !unicode.IsPrint(c) || c > unicode.MaxASCII }) < 0
}
