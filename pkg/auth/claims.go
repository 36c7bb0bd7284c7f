package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tablebite-backend/pkg/enums"
)

// AccessTokenPayload is what the auth service knows when it signs a user in.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	Username string
	Role     enums.SystemRole
	JTI      string
}

// AccessTokenClaims are the JWT claims. The jti doubles as the refresh
// session id, so revoking the session kills the access token too.
type AccessTokenClaims struct {
	UserID   uuid.UUID        `json:"user_id"`
	Username string           `json:"username,omitempty"`
	Role     enums.SystemRole `json:"role"`
	jwt.RegisteredClaims
}

// IsStaff reports whether the token grants staff endpoints.
func (c *AccessTokenClaims) IsStaff() bool {
	return c != nil && c.Role == enums.SystemRoleStaff
}

func (c *AccessTokenClaims) check() error {
	switch {
	case c.UserID == uuid.Nil:
		return fmt.Errorf("%w: missing user id", ErrMalformedClaims)
	case c.Subject != c.UserID.String():
		return fmt.Errorf("%w: subject does not match user", ErrMalformedClaims)
	case !c.Role.IsValid():
		return fmt.Errorf("%w: role %q", ErrMalformedClaims, c.Role)
	case c.ID == "":
		return fmt.Errorf("%w: missing session id", ErrMalformedClaims)
	}
	return nil
}
