package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/tablebite-backend/pkg/auth/session"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
)

type principalKey struct{}

type visitorKey struct{}

// Principal is the verified caller behind an access token. AccessID is the
// token's jti, which is also the refresh session id.
type Principal struct {
	UserID   uuid.UUID
	Role     enums.SystemRole
	AccessID string
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext reports false for anonymous requests.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != uuid.Nil
}

// UserIDFromContext returns the signed-in user id, or "" when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.UserID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return string(p.Role)
}

func AccessIDFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.AccessID
}

func WithVisitor(ctx context.Context, visitor *session.Visitor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, visitorKey{}, visitor)
}

// VisitorFromContext returns the session bag loaded by the Visitor middleware.
func VisitorFromContext(ctx context.Context) *session.Visitor {
	if ctx == nil {
		return nil
	}
	v, _ := ctx.Value(visitorKey{}).(*session.Visitor)
	return v
}

// ShopperFromContext is the identity cart, checkout and rewards work against.
func ShopperFromContext(ctx context.Context) session.Shopper {
	shopper := session.Shopper{Visitor: VisitorFromContext(ctx)}
	if p, ok := PrincipalFromContext(ctx); ok {
		id := p.UserID
		shopper.UserID = &id
	}
	return shopper
}
