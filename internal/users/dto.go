package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
)

// NormalizeUsername is the form usernames are compared in. Stored usernames
// keep the casing they were registered with.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail is the form emails are stored and compared in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserDTO is a user as clients see it. The password hash never leaves the repo.
type UserDTO struct {
	ID          uuid.UUID        `json:"id"`
	Username    string           `json:"username"`
	Email       string           `json:"email"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	IsActive    bool             `json:"is_active"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
	SystemRole  enums.SystemRole `json:"system_role"`
	CreatedAt   time.Time        `json:"created_at"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		SystemRole:  u.SystemRole,
		CreatedAt:   u.CreatedAt,
	}
}

// NewAccount is an account about to be inserted. An empty Role means customer.
type NewAccount struct {
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         enums.SystemRole
}

func (a NewAccount) model() *models.User {
	role := a.Role
	if !role.IsValid() {
		role = enums.SystemRoleCustomer
	}
	return &models.User{
		Username:     strings.TrimSpace(a.Username),
		Email:        NormalizeEmail(a.Email),
		PasswordHash: a.PasswordHash,
		FirstName:    strings.TrimSpace(a.FirstName),
		LastName:     strings.TrimSpace(a.LastName),
		IsActive:     true,
		SystemRole:   role,
	}
}
