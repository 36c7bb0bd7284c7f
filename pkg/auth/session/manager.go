package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
	redisclient "github.com/angelmondragon/tablebite-backend/pkg/redis"
)

const tokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errMissingAccessID     = errors.New("access id is required")
)

type refreshStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// refreshRecord is stored under the access id (the JWT jti). Only a digest
// of the token is kept, so a leaked Redis snapshot cannot refresh anything.
type refreshRecord struct {
	UserID   uuid.UUID `json:"user_id"`
	Digest   string    `json:"digest"`
	IssuedAt time.Time `json:"issued_at"`
}

// Rotation is the session that replaced a refreshed one.
type Rotation struct {
	UserID       uuid.UUID
	AccessID     string
	RefreshToken string
}

// AccessSessionChecker is the read side the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Manager keeps one refresh session per access token. Refresh tokens are
// single use: Rotate consumes the old session before issuing the next.
type Manager struct {
	store refreshStore
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, ttl: ttl, now: time.Now}, nil
}

// Generate opens a refresh session for accessID and returns its token.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errMissingAccessID
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	return m.open(ctx, accessID, userID)
}

// Rotate trades the refresh token of oldAccessID for a new session. A wrong
// token still burns the old session; replaying a stolen token therefore also
// logs the legitimate holder out.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (*Rotation, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return nil, ErrInvalidRefreshToken
	}
	raw, err := m.store.GetDel(ctx, m.store.AccessSessionKey(oldAccessID))
	if err != nil {
		if redisclient.IsNil(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	var record refreshRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil || !record.matches(provided) {
		return nil, ErrInvalidRefreshToken
	}

	next := NewAccessID()
	token, err := m.open(ctx, next, record.UserID)
	if err != nil {
		return nil, err
	}
	return &Rotation{UserID: record.UserID, AccessID: next, RefreshToken: token}, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errMissingAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

// HasSession reports whether accessID has not been revoked or rotated away.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errMissingAccessID
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case err == nil:
		return true, nil
	case redisclient.IsNil(err):
		return false, nil
	}
	return false, err
}

func (m *Manager) open(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	token, err := randomToken()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(refreshRecord{UserID: userID, Digest: digest(token), IssuedAt: m.now().UTC()})
	if err != nil {
		return "", fmt.Errorf("encode refresh session: %w", err)
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

func (r refreshRecord) matches(token string) bool {
	return subtle.ConstantTimeCompare([]byte(r.Digest), []byte(digest(token))) == 1
}

// NewAccessID produces the JWT jti that also keys the refresh session.
func NewAccessID() string {
	return uuid.NewString()
}

// randomToken is URL safe and carries 256 bits of entropy.
func randomToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
