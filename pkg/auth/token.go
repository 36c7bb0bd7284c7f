package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
)

// Audience is stamped on every access token; tokens for other audiences are rejected.
const Audience = "tablebite-api"

const clockSkew = 30 * time.Second

var (
	signingMethod = jwt.SigningMethodHS256

	ErrMalformedClaims = errors.New("access token claims are malformed")
)

// AccessTTL is the lifetime of a freshly minted access token.
func AccessTTL(cfg config.JWTConfig) time.Duration {
	return time.Duration(cfg.ExpirationMinutes) * time.Minute
}

// MintAccessToken signs an HS256 access token for payload, valid from now for AccessTTL.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkConfig(cfg); err != nil {
		return "", err
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", fmt.Errorf("jwt expiration minutes must be positive")
	}
	if payload.UserID == uuid.Nil {
		return "", fmt.Errorf("user id is required")
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid system role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := AccessTokenClaims{
		UserID:   payload.UserID,
		Username: payload.Username,
		Role:     payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTTL(cfg))),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer, audience and expiry.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(Audience),
		jwt.WithLeeway(clockSkew),
	)
	return parse(parser, cfg, tokenString)
}

// ParseAccessTokenAllowExpired verifies the signature and issuer but not the
// time window, so refresh can recover the session id of an expired token.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	claims, err := parse(parser, cfg, tokenString)
	if err != nil {
		return nil, err
	}
	// Registered claims are not validated by the parser in this mode.
	if claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("%w: issuer %q", ErrMalformedClaims, claims.Issuer)
	}
	return claims, nil
}

func parse(parser *jwt.Parser, cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if token.Method != signingMethod {
			return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if err := claims.check(); err != nil {
		return nil, err
	}
	return claims, nil
}

func checkConfig(cfg config.JWTConfig) error {
	if cfg.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return fmt.Errorf("jwt issuer is required")
	}
	return nil
}
