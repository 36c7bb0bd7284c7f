package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/tablebite-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

const maxRateLimitBody = 64 << 10

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(parts ...string) string
}

// AuthRateLimitPolicy caps attempts per client IP and per username inside one
// fixed window. A zero limit turns that dimension off.
type AuthRateLimitPolicy struct {
	name          string
	window        time.Duration
	ipLimit       int
	usernameLimit int
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, usernameLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, usernameLimit: usernameLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.usernameLimit > 0)
}

// counter is one dimension a request is counted against.
type counter struct {
	scope string
	value string
	limit int
}

// AuthRateLimit counts login and register attempts. Usernames are hashed
// before they reach Redis or the logs.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			counters, err := policy.countersFor(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}

			for _, c := range counters {
				attempts, err := store.IncrWithTTL(ctx, store.RateLimitKey(policy.name, c.scope, c.value), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count auth attempt"))
					return
				}
				if attempts > int64(c.limit) {
					policy.reject(ctx, logg, w, c, attempts)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// countersFor peeks at the body for a username and puts it back for the handler.
func (p AuthRateLimitPolicy) countersFor(r *http.Request) ([]counter, error) {
	var counters []counter
	if ip := clientIP(r); p.ipLimit > 0 && ip != "" {
		counters = append(counters, counter{scope: "ip", value: ip, limit: p.ipLimit})
	}
	if p.usernameLimit <= 0 || r.Body == nil {
		return counters, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRateLimitBody))
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var creds struct {
		Username string `json:"username"`
	}
	if json.Unmarshal(body, &creds) == nil {
		if username := strings.ToLower(strings.TrimSpace(creds.Username)); username != "" {
			sum := sha256.Sum256([]byte(username))
			counters = append(counters, counter{scope: "user", value: hex.EncodeToString(sum[:]), limit: p.usernameLimit})
		}
	}
	return counters, nil
}

func (p AuthRateLimitPolicy) reject(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, c counter, attempts int64) {
	retryAfter := int(p.window.Seconds())
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":         p.name,
			"scope":          c.scope,
			"subject":        c.value,
			"attempts":       attempts,
			"limit":          c.limit,
			"window_seconds": retryAfter,
		}), "auth.rate_limited")
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// clientIP prefers the first valid X-Forwarded-For hop, then X-Real-IP, then
// the socket peer.
func clientIP(r *http.Request) string {
	for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if addr, err := netip.ParseAddr(strings.TrimSpace(hop)); err == nil {
			return addr.Unmap().String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
