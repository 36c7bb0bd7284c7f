package security_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/security"
)

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}

	hash, err := security.HashPassword("very-secure-password", cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty string")
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := security.VerifyPassword("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
	strong := config.PasswordConfig{ArgonMemoryKB: 16384, ArgonTime: 2, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

	hash, err := security.HashPassword("pw-for-rehash", weak)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if security.NeedsRehash(hash, weak) {
		t.Fatal("hash produced with current params should not need rehash")
	}
	if !security.NeedsRehash(hash, strong) {
		t.Fatal("hash produced with weaker params should need rehash")
	}
	if !security.NeedsRehash("garbage", weak) {
		t.Fatal("malformed hash should need rehash")
	}
}

func TestVerifyPasswordRejectsForeignVersion(t *testing.T) {
	cfg := config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
	hash, err := security.HashPassword("pw", cfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", hash)
	}

	old := strings.Replace(hash, "$v=19$", "$v=16$", 1)
	if _, err := security.VerifyPassword("pw", old); !errors.Is(err, security.ErrIncompatibleVersion) {
		t.Fatalf("expected version error, got %v", err)
	}
	if _, err := security.VerifyPassword("pw", strings.Replace(hash, "m=64", "m=0", 1)); !errors.Is(err, security.ErrInvalidHash) {
		t.Fatalf("expected invalid hash for zero memory, got %v", err)
	}
}

func TestParamsClampsConfiguredCosts(t *testing.T) {
	p := security.Params(config.PasswordConfig{ArgonMemoryKB: 1, ArgonTime: 50, ArgonParallelism: 0, ArgonSaltLen: 4, ArgonKeyLen: 128})
	want := security.ArgonParams{Memory: 8, Time: 10, Parallelism: 1, SaltLen: 8, KeyLen: 64}
	if p != want {
		t.Fatalf("expected %+v, got %+v", want, p)
	}
}
