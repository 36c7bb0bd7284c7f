package auth

import (
	"context"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"github.com/angelmondragon/tablebite-backend/internal/loyalty"
	"github.com/angelmondragon/tablebite-backend/internal/users"
	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/db"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/security"
)

// RegisterRequest opens a customer account. Staff accounts are only seeded.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=150,username"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"omitempty,max=150"`
	LastName  string `json:"last_name" validate:"omitempty,max=150"`
	Phone     string `json:"phone" validate:"omitempty,max=20,phone"`
}

type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

type txBeginner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type RegisterServiceParams struct {
	DB             txBeginner
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db        txBeginner
	passwords config.PasswordConfig
}

func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registerService{db: params.DB, passwords: params.PasswordConfig}, nil
}

// Register inserts the user and an empty loyalty profile in one transaction,
// so no customer ever exists without a profile.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	username := strings.TrimSpace(req.Username)
	email := users.NormalizeEmail(req.Email)
	if username == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and email are required")
	}
	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username cannot contain spaces").
			WithDetails(map[string]any{"invalid_fields": []string{"username"}})
	}

	// Hashed before the transaction so no locks are held while argon2 runs.
	hash, err := security.HashPassword(req.Password, s.passwords)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		accounts := users.NewRepository(tx)
		usernameTaken, emailTaken, err := accounts.Taken(ctx, username, email)
		switch {
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing accounts")
		case usernameTaken:
			return pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		case emailTaken:
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}

		user, err := accounts.Create(ctx, users.NewAccount{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Role:         enums.SystemRoleCustomer,
		})
		if err != nil {
			// Lost a race with a concurrent registration.
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "username or email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		profile := &models.LoyaltyProfile{UserID: user.ID, Phone: strings.TrimSpace(req.Phone)}
		if err := loyalty.NewRepository(tx).Create(ctx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create loyalty profile")
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users.FromModel(created), nil
}
