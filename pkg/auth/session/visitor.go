package session

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
	redisclient "github.com/angelmondragon/tablebite-backend/pkg/redis"
	"github.com/google/uuid"
)

var visitorTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{22,64}$`)

// Visitor is the per-session key-value bag of an anonymous or signed-in shopper.
// Only the active cart id is remembered; the token itself is the guest cart key.
type Visitor struct {
	Token  string     `json:"-"`
	CartID *uuid.UUID `json:"cart_id,omitempty"`
	Fresh  bool       `json:"-"`
}

// CachedCartID returns the remembered cart id, if any.
func (v *Visitor) CachedCartID() *uuid.UUID {
	if v == nil {
		return nil
	}
	return v.CartID
}

// RememberCart binds the session to a cart.
func (v *Visitor) RememberCart(id uuid.UUID) {
	if v == nil {
		return
	}
	v.CartID = &id
}

// ForgetCart drops the cart reference so the next access starts fresh.
func (v *Visitor) ForgetCart() {
	if v == nil {
		return
	}
	v.CartID = nil
}

// Shopper is the explicit identity context passed to cart, checkout and
// rewards operations: an optional signed-in user plus the session bag.
type Shopper struct {
	UserID  *uuid.UUID
	Visitor *Visitor
}

// IsAuthenticated reports whether a user identity is present.
func (s Shopper) IsAuthenticated() bool {
	return s.UserID != nil && *s.UserID != uuid.Nil
}

// SessionKey returns the visitor token or "" when no session exists.
func (s Shopper) SessionKey() string {
	if s.Visitor == nil {
		return ""
	}
	return s.Visitor.Token
}

type visitorBackend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	VisitorKey(token string) string
}

// VisitorStore persists visitor bags in Redis with a sliding TTL.
type VisitorStore struct {
	store visitorBackend
	ttl   time.Duration
}

// NewVisitorStore constructs a Redis-backed visitor store.
func NewVisitorStore(client *redisclient.Client, cfg config.SessionConfig) (*VisitorStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.VisitorTTL <= 0 {
		return nil, fmt.Errorf("visitor session ttl must be positive")
	}
	return &VisitorStore{store: client, ttl: cfg.VisitorTTL}, nil
}

// Load returns the bag for token. A missing, malformed or expired token yields a
// freshly minted session.
func (s *VisitorStore) Load(ctx context.Context, token string) (*Visitor, error) {
	if !visitorTokenPattern.MatchString(token) {
		return NewVisitor()
	}
	raw, err := s.store.Get(ctx, s.store.VisitorKey(token))
	if err != nil {
		if redisclient.IsNil(err) {
			return &Visitor{Token: token, Fresh: true}, nil
		}
		return nil, fmt.Errorf("load visitor session: %w", err)
	}
	visitor := &Visitor{}
	if err := json.Unmarshal([]byte(raw), visitor); err != nil {
		return &Visitor{Token: token, Fresh: true}, nil
	}
	visitor.Token = token
	return visitor, nil
}

// Save writes the bag and refreshes its TTL.
func (s *VisitorStore) Save(ctx context.Context, visitor *Visitor) error {
	if visitor == nil || visitor.Token == "" {
		return fmt.Errorf("visitor token is required")
	}
	payload, err := json.Marshal(visitor)
	if err != nil {
		return fmt.Errorf("encode visitor session: %w", err)
	}
	if err := s.store.Set(ctx, s.store.VisitorKey(visitor.Token), string(payload), s.ttl); err != nil {
		return fmt.Errorf("save visitor session: %w", err)
	}
	visitor.Fresh = false
	return nil
}

// NewVisitor mints a session with a random token.
func NewVisitor() (*Visitor, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	return &Visitor{Token: token, Fresh: true}, nil
}
