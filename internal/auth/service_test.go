package auth

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/angelmondragon/tablebite-backend/internal/users"
	pkgAuth "github.com/angelmondragon/tablebite-backend/pkg/auth"
	"github.com/angelmondragon/tablebite-backend/pkg/auth/session"
	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	testJWT = config.JWTConfig{
		Secret:                 "test-secret",
		Issuer:                 "tablebite",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
	fastArgon = config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
)

type memorySessions struct {
	mu      sync.Mutex
	records map[string]string
}

func newMemorySessions() *memorySessions {
	return &memorySessions{records: map[string]string{}}
}

func (m *memorySessions) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := uuid.NewString()
	payload, _ := json.Marshal([2]string{userID.String(), token})
	m.records[accessID] = string(payload)
	return token, nil
}

func (m *memorySessions) Rotate(ctx context.Context, oldAccessID, provided string) (*session.Rotation, error) {
	m.mu.Lock()
	raw, ok := m.records[oldAccessID]
	delete(m.records, oldAccessID)
	m.mu.Unlock()
	if !ok {
		return nil, session.ErrInvalidRefreshToken
	}
	var record [2]string
	_ = json.Unmarshal([]byte(raw), &record)
	if record[1] != provided {
		return nil, session.ErrInvalidRefreshToken
	}
	userID := uuid.MustParse(record[0])
	next := session.NewAccessID()
	token, _ := m.Generate(ctx, next, userID)
	return &session.Rotation{UserID: userID, AccessID: next, RefreshToken: token}, nil
}

func (m *memorySessions) Revoke(ctx context.Context, accessID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, accessID)
	return nil
}

func (m *memorySessions) has(accessID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[accessID]
	return ok
}

type recordingMerger struct {
	calls []session.Shopper
}

func (r *recordingMerger) MergeGuestCart(ctx context.Context, shopper session.Shopper) (bool, error) {
	r.calls = append(r.calls, shopper)
	return true, nil
}

type authHarness struct {
	register RegisterService
	svc      Service
	sessions *memorySessions
	merger   *recordingMerger
	conn     *gorm.DB
}

func newAuthHarness(t *testing.T, passwordCfg config.PasswordConfig) authHarness {
	t.Helper()
	client, conn := dbtest.Client(t)
	register, err := NewRegisterService(RegisterServiceParams{DB: client, PasswordConfig: fastArgon})
	require.NoError(t, err)

	sessions := newMemorySessions()
	merger := &recordingMerger{}
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessions,
		CartMerger:     merger,
		JWTConfig:      testJWT,
		PasswordConfig: passwordCfg,
	})
	require.NoError(t, err)
	return authHarness{register: register, svc: svc, sessions: sessions, merger: merger, conn: conn}
}

func TestRegisterProvisionsProfile(t *testing.T) {
	t.Parallel()
	h := newAuthHarness(t, fastArgon)

	user, err := h.register.Register(context.Background(), RegisterRequest{
		Username: "Lan",
		Email:    "Lan@Example.com",
		Password: "correct horse",
		Phone:    " 0903333444 ",
	})
	require.NoError(t, err)
	require.Equal(t, "lan@example.com", user.Email)
	require.Equal(t, enums.SystemRoleCustomer, user.SystemRole)

	var profile models.LoyaltyProfile
	require.NoError(t, h.conn.Where("user_id = ?", user.ID).First(&profile).Error)
	require.Equal(t, "0903333444", profile.Phone)
	require.Zero(t, profile.Points)
	require.False(t, profile.IsVIP)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	t.Parallel()
	h := newAuthHarness(t, fastArgon)
	ctx := context.Background()

	_, err := h.register.Register(ctx, RegisterRequest{Username: "lan", Email: "lan@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = h.register.Register(ctx, RegisterRequest{Username: "LAN", Email: "other@example.com", Password: "correct horse"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = h.register.Register(ctx, RegisterRequest{Username: "lan2", Email: "LAN@example.com", Password: "correct horse"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = h.register.Register(ctx, RegisterRequest{Username: "la n", Email: "x@example.com", Password: "correct horse"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var n int64
	require.NoError(t, h.conn.Model(&models.User{}).Count(&n).Error)
	require.Equal(t, int64(1), n)
	require.NoError(t, h.conn.Model(&models.LoyaltyProfile{}).Count(&n).Error)
	require.Equal(t, int64(1), n)
}

func TestLoginIssuesTokensAndMergesCart(t *testing.T) {
	t.Parallel()
	h := newAuthHarness(t, fastArgon)
	ctx := context.Background()
	_, err := h.register.Register(ctx, RegisterRequest{Username: "minh", Email: "minh@example.com", Password: "correct horse"})
	require.NoError(t, err)

	visitor := &session.Visitor{Token: "guest_token"}
	resp, err := h.svc.Login(ctx, LoginRequest{Username: " MINH ", Password: "correct horse"}, visitor)
	require.NoError(t, err)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, 15*60, resp.ExpiresIn)
	require.True(t, resp.CartMerged)
	require.NotNil(t, resp.User.LastLoginAt)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, claims.UserID)
	require.Equal(t, enums.SystemRoleCustomer, claims.Role)
	require.True(t, h.sessions.has(claims.ID))

	require.Len(t, h.merger.calls, 1)
	require.Equal(t, resp.User.ID, *h.merger.calls[0].UserID)
	require.Equal(t, "guest_token", h.merger.calls[0].SessionKey())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	h := newAuthHarness(t, fastArgon)
	ctx := context.Background()
	user, err := h.register.Register(ctx, RegisterRequest{Username: "minh", Email: "minh@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = h.svc.Login(ctx, LoginRequest{Username: "minh", Password: "wrong"}, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = h.svc.Login(ctx, LoginRequest{Username: "nobody", Password: "correct horse"}, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	require.NoError(t, h.conn.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)
	_, err = h.svc.Login(ctx, LoginRequest{Username: "minh", Password: "correct horse"}, nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	require.Empty(t, h.merger.calls)
}

func TestLoginUpgradesWeakHash(t *testing.T) {
	t.Parallel()
	stronger := fastArgon
	stronger.ArgonTime = 2
	h := newAuthHarness(t, stronger)
	ctx := context.Background()
	user, err := h.register.Register(ctx, RegisterRequest{Username: "minh", Email: "minh@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, err = h.svc.Login(ctx, LoginRequest{Username: "minh", Password: "correct horse"}, nil)
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, h.conn.First(&stored, "id = ?", user.ID).Error)
	require.False(t, security.NeedsRehash(stored.PasswordHash, stronger))
	ok, err := security.VerifyPassword("correct horse", stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	t.Parallel()
	h := newAuthHarness(t, fastArgon)
	ctx := context.Background()
	_, err := h.register.Register(ctx, RegisterRequest{Username: "minh", Email: "minh@example.com", Password: "correct horse"})
	require.NoError(t, err)
	login, err := h.svc.Login(ctx, LoginRequest{Username: "minh", Password: "correct horse"}, nil)
	require.NoError(t, err)

	refreshed, err := h.svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = h.svc.Refresh(ctx, RefreshRequest{AccessToken: login.AccessToken, RefreshToken: login.RefreshToken})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = h.svc.Refresh(ctx, RefreshRequest{AccessToken: "garbage", RefreshToken: refreshed.RefreshToken})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	claims, err := pkgAuth.ParseAccessToken(testJWT, refreshed.AccessToken)
	require.NoError(t, err)
	require.NoError(t, h.svc.Logout(ctx, claims.ID))
	require.False(t, h.sessions.has(claims.ID))

	require.True(t, pkgerrors.IsCode(h.svc.Logout(ctx, ""), pkgerrors.CodeUnauthorized))
}
