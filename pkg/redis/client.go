package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

const keyNamespace = "tb"

// Key families. Every key the service writes lives under one of these.
const (
	familyIdempotency = "idem"
	familyRateLimit   = "rl"
	familyAccess      = "access"
	familyVisitor     = "visitor"
)

var errNotInitialized = errors.New("redis client not initialized")

// windowScript bumps a fixed-window counter and arms its expiry in the same
// round trip, so a counter can never outlive its window.
var windowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 or redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

type commands interface {
	redis.Scripter
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	GetDel(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client backs visitor sessions, refresh sessions, auth rate limits and
// idempotency records.
type Client struct {
	cmd commands
	raw *redis.Client
}

// New connects and pings before returning.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "redis_db", opts.DB), "redis connection established")
	}
	return &Client{cmd: raw, raw: raw}, nil
}

func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("redis url or address is required")
	}

	// Values embedded in the URL win over the discrete settings.
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if opts.PoolSize == 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// IsNil reports whether err means the key does not exist.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c.cmd == nil {
		return errNotInitialized
	}
	return c.cmd.Set(ctx, key, value, ttl).Err()
}

// Get returns redis.Nil when the key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.cmd == nil {
		return "", errNotInitialized
	}
	return c.cmd.Get(ctx, key).Result()
}

// GetDel reads and removes key in one step, so only one caller can consume
// it. Absent keys return redis.Nil.
func (c *Client) GetDel(ctx context.Context, key string) (string, error) {
	if c.cmd == nil {
		return "", errNotInitialized
	}
	return c.cmd.GetDel(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.cmd == nil {
		return false, errNotInitialized
	}
	return c.cmd.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.cmd == nil {
		return errNotInitialized
	}
	if len(keys) == 0 {
		return nil
	}
	return c.cmd.Del(ctx, keys...).Err()
}

// IncrWithTTL counts one hit in the window that starts with the first hit.
func (c *Client) IncrWithTTL(ctx context.Context, key string, window time.Duration) (int64, error) {
	if c.cmd == nil {
		return 0, errNotInitialized
	}
	if window <= 0 {
		return 0, fmt.Errorf("window must be positive, got %s", window)
	}
	count, err := windowScript.Run(ctx, c.cmd, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("incr window %s: %w", key, err)
	}
	return count, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c.cmd == nil {
		return errNotInitialized
	}
	return c.cmd.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// IdempotencyKey scopes a client-supplied key to the caller that sent it.
func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey(familyIdempotency, scope, id)
}

func (c *Client) RateLimitKey(parts ...string) string {
	return buildKey(familyRateLimit, parts...)
}

func (c *Client) AccessSessionKey(accessID string) string {
	return buildKey(familyAccess, accessID)
}

func (c *Client) VisitorKey(token string) string {
	return buildKey(familyVisitor, token)
}

func buildKey(family string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	b.WriteByte(':')
	b.WriteString(family)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
