package auth

import (
	"github.com/angelmondragon/tablebite-backend/internal/users"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,max=128"`
}

// RefreshRequest pairs an access token, which may have expired, with the
// refresh token issued alongside it.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResponse is returned by login, register and refresh. CartMerged is
// true when a guest cart was folded into the account during this call.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int            `json:"expires_in"`
	User         *users.UserDTO `json:"user"`
	CartMerged   bool           `json:"cart_merged"`
}
