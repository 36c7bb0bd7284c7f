package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/tablebite-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

// Recoverer turns a handler panic into a 500 envelope. http.ErrAbortHandler is
// re-raised so net/http can drop the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				ctx := r.Context()
				cause := fmt.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				if logg != nil {
					logg.Error(logg.WithField(ctx, "panic", fmt.Sprint(rec)), "request.panic", cause)
				}
				// Logged above with the stack, so the writer gets no logger.
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, cause, "unexpected failure"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
