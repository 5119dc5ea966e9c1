package security_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/security"
)

var fastParams = config.PasswordConfig{
	ArgonMemoryKB:    1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("abcdef", fastParams)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected hash encoding %q", hash)
	}

	ok, err := security.VerifyPassword("abcdef", hash)
	if err != nil || !ok {
		t.Fatalf("expected correct password to verify, ok=%v err=%v", ok, err)
	}

	ok, err = security.VerifyPassword("abcdeg", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for wrong password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestHashPasswordUsesFreshSalt(t *testing.T) {
	first, err := security.HashPassword("abcdef", fastParams)
	if err != nil {
		t.Fatal(err)
	}
	second, err := security.HashPassword("abcdef", fastParams)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	cases := []string{
		"not-a-hash",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!$a2V5",
	}
	for _, encoded := range cases {
		if _, err := security.VerifyPassword("irrelevant", encoded); !errors.Is(err, security.ErrInvalidHash) {
			t.Fatalf("expected ErrInvalidHash for %q, got %v", encoded, err)
		}
	}
}

func TestCheckPassword(t *testing.T) {
	if err := security.CheckPassword("abcdef", "abcdef"); err != nil {
		t.Fatalf("expected six characters to pass: %v", err)
	}
	if err := security.CheckPassword("abcde", "abcde"); !errors.Is(err, security.ErrPasswordTooShort) {
		t.Fatalf("expected too short, got %v", err)
	}
	if err := security.CheckPassword("abcdef", "abcdeg"); !errors.Is(err, security.ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := security.HashPassword("abcdef", fastParams)
	if err != nil {
		t.Fatal(err)
	}
	if security.NeedsRehash(hash, fastParams) {
		t.Fatal("hash made with the current parameters should not need a rehash")
	}

	stronger := fastParams
	stronger.ArgonTime = 2
	if !security.NeedsRehash(hash, stronger) {
		t.Fatal("hash should need a rehash after the time cost changes")
	}
	if !security.NeedsRehash("garbage", fastParams) {
		t.Fatal("malformed hash should need a rehash")
	}
}
