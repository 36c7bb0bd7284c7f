package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/tablebite-backend/internal/repo"
	"github.com/angelmondragon/tablebite-backend/internal/users"
	pkgAuth "github.com/angelmondragon/tablebite-backend/pkg/auth"
	"github.com/angelmondragon/tablebite-backend/pkg/auth/session"
	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
	"github.com/angelmondragon/tablebite-backend/pkg/security"
	"github.com/google/uuid"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest, visitor *session.Visitor) (*LoginResponse, error)
	Logout(ctx context.Context, accessID string) error
	Refresh(ctx context.Context, req RefreshRequest) (*LoginResponse, error)
}

type userRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (*session.Rotation, error)
	Revoke(ctx context.Context, accessID string) error
}

type cartMerger interface {
	MergeGuestCart(ctx context.Context, shopper session.Shopper) (bool, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	CartMerger     cartMerger
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
	Clock          func() time.Time
}

type service struct {
	users       userRepository
	session     sessionManager
	carts       cartMerger
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		users:       params.UserRepo,
		session:     params.SessionManager,
		carts:       params.CartMerger,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
		now:         clock,
	}, nil
}

// Login verifies the credentials, issues a token pair and folds the visitor's
// guest cart into the user's cart. A failed merge does not fail the login; the
// cart engine retries it on the next cart access.
func (s *service) Login(ctx context.Context, req LoginRequest, visitor *session.Visitor) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}
	s.upgradeHash(ctx, user, req.Password)

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	resp, err := s.issue(ctx, user, now, session.NewAccessID(), "")
	if err != nil {
		return nil, err
	}

	if s.carts != nil && visitor != nil {
		merged, err := s.carts.MergeGuestCart(ctx, session.Shopper{UserID: &user.ID, Visitor: visitor})
		if err != nil && s.logg != nil {
			s.logg.WarnErr(s.logg.WithUserID(ctx, user.ID.String()), "auth.cart_merge_deferred", err)
		}
		resp.CartMerged = merged
	}
	return resp, nil
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// Refresh rotates the refresh token bound to the access token's id and mints
// a fresh access token. The access token may already be expired.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*LoginResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	rotated, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate refresh token")
	}
	if rotated.UserID != claims.UserID {
		_ = s.session.Revoke(ctx, rotated.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	user, err := s.users.FindByID(ctx, rotated.UserID)
	if err != nil || !user.IsActive {
		_ = s.session.Revoke(ctx, rotated.AccessID)
		if err != nil && !repo.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return s.issue(ctx, user, s.now(), rotated.AccessID, rotated.RefreshToken)
}

// issue mints an access token for accessID. An empty refreshToken means a new
// refresh session is created for it.
func (s *service) issue(ctx context.Context, user *models.User, now time.Time, accessID, refreshToken string) (*LoginResponse, error) {
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.SystemRole,
		JTI:      accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	if refreshToken == "" {
		refreshToken, err = s.session.Generate(ctx, accessID, user.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
		}
	}
	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(pkgAuth.AccessTTL(s.jwtCfg).Seconds()),
		User:         users.FromModel(user),
	}, nil
}

func (s *service) authenticate(ctx context.Context, username, password string) (*models.User, error) {
	input := strings.TrimSpace(username)
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByUsername(ctx, input)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

// upgradeHash re-hashes the password when the stored hash predates the
// current argon2 parameters. Failure keeps the old hash.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	if !security.NeedsRehash(user.PasswordHash, s.passwordCfg) {
		return
	}
	hash, err := security.HashPassword(password, s.passwordCfg)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		if s.logg != nil {
			s.logg.WarnErr(ctx, "auth.rehash_failed", err)
		}
		return
	}
	user.PasswordHash = hash
}
