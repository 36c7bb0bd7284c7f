package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/tablebite-backend/api/responses"
	"github.com/angelmondragon/tablebite-backend/pkg/auth/session"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

// DefaultSessionHeader carries the anonymous visitor token.
const DefaultSessionHeader = "X-Session-Token"

type visitorStore interface {
	Load(ctx context.Context, token string) (*session.Visitor, error)
	Save(ctx context.Context, visitor *session.Visitor) error
}

// Visitor loads the session bag named by the session header, minting a new one
// when the header is absent or unknown. The token is echoed on every response.
func Visitor(store visitorStore, header string, logg *logger.Logger) func(http.Handler) http.Handler {
	if strings.TrimSpace(header) == "" {
		header = DefaultSessionHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := strings.TrimSpace(r.Header.Get(header))

			var (
				visitor *session.Visitor
				err     error
			)
			if store != nil {
				visitor, err = store.Load(ctx, token)
			} else {
				visitor, err = session.NewVisitor()
			}
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session"))
				return
			}

			if visitor.Fresh && store != nil {
				if err := store.Save(ctx, visitor); err != nil && logg != nil {
					logg.WarnErr(ctx, "session.save_failed", err)
				}
			}

			w.Header().Set(header, visitor.Token)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, visitor.Token)
			}
			next.ServeHTTP(w, r.WithContext(WithVisitor(ctx, visitor)))
		})
	}
}
