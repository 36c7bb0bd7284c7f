package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
)

const algorithm = "argon2id"

var (
	// ErrInvalidHash means the stored string is not a PHC-encoded argon2id hash.
	ErrInvalidHash = errors.New("invalid argon2id hash")
	// ErrIncompatibleVersion means the hash was produced by another argon2 revision.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")

	b64 = base64.RawStdEncoding
)

// ArgonParams are the cost settings encoded into every hash.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// Params clamps the configured costs to ranges argon2 handles sanely.
func Params(cfg config.PasswordConfig) ArgonParams {
	return ArgonParams{
		Memory:      bounded(cfg.ArgonMemoryKB, 8, 512*1024),
		Time:        bounded(cfg.ArgonTime, 1, 10),
		Parallelism: uint8(bounded(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     bounded(cfg.ArgonSaltLen, 8, 64),
		KeyLen:      bounded(cfg.ArgonKeyLen, 16, 64),
	}
}

func (p ArgonParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
}

// weakerThan reports whether any cost in p is below want.
func (p ArgonParams) weakerThan(want ArgonParams) bool {
	return p.Memory < want.Memory || p.Time < want.Time || p.KeyLen < want.KeyLen
}

// HashPassword returns $argon2id$v=19$m=..,t=..,p=..$salt$key for password.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	params := Params(cfg)
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return encode(params, salt, params.derive(password, salt)), nil
}

// VerifyPassword reports whether password matches encoded. A malformed hash is
// an error, a wrong password is not.
func VerifyPassword(password, encoded string) (bool, error) {
	params, salt, key, err := decode(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(key, params.derive(password, salt)) == 1, nil
}

// NeedsRehash reports whether encoded should be replaced after a successful
// login because the configured costs have gone up or the hash is unreadable.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	params, _, _, err := decode(encoded)
	if err != nil {
		return true
	}
	return params.weakerThan(Params(cfg))
}

func encode(p ArgonParams, salt, key []byte) string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithm, argon2.Version, p.Memory, p.Time, p.Parallelism, b64.EncodeToString(salt), b64.EncodeToString(key))
}

func decode(encoded string) (ArgonParams, []byte, []byte, error) {
	var p ArgonParams
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != algorithm {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return p, nil, nil, ErrIncompatibleVersion
	}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if p.Memory == 0 || p.Time == 0 || p.Parallelism == 0 {
		return p, nil, nil, ErrInvalidHash
	}

	salt, err := b64.DecodeString(fields[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}

func bounded(v, lo, hi int) uint32 {
	return uint32(min(max(v, lo), hi))
}
