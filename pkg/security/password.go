// Package security hashes passwords with Argon2id in the PHC string format.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
)

const MinPasswordLength = 6

var (
	ErrInvalidHash      = errors.New("invalid argon2id hash")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// ArgonParams travel inside every hash so old hashes stay verifiable after
// the configuration changes.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// phc is a decoded $argon2id$v=..$m=..,t=..,p=..$salt$key string.
type phc struct {
	params ArgonParams
	salt   []byte
	key    []byte
}

var b64 = base64.RawStdEncoding

func (h phc) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Time, h.params.Parallelism,
		b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

func derive(password string, salt []byte, p ArgonParams) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
}

// CheckPassword enforces the sign-up rules: minimum length and a matching
// confirmation.
func CheckPassword(password, confirm string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(confirm)) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	params := paramsFromConfig(cfg)
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return phc{params: params, salt: salt, key: derive(password, salt, params)}.String(), nil
}

// VerifyPassword compares in constant time using the parameters stored in encoded.
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.key, derive(password, h.salt, h.params)) == 1, nil
}

// NeedsRehash reports whether encoded was produced with parameters other
// than the ones cfg asks for today. Malformed hashes always need one.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	h, err := parsePHC(encoded)
	if err != nil {
		return true
	}
	return h.params != paramsFromConfig(cfg)
}

func paramsFromConfig(cfg config.PasswordConfig) ArgonParams {
	return ArgonParams{
		Memory:      clamp(cfg.ArgonMemoryKB, 8, 512*1024),
		Time:        clamp(cfg.ArgonTime, 1, 10),
		Parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     clamp(cfg.ArgonSaltLen, 8, 64),
		KeyLen:      clamp(cfg.ArgonKeyLen, 16, 64),
	}
}

func parsePHC(encoded string) (phc, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return phc{}, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return phc{}, ErrInvalidHash
	}

	var h phc
	p := &h.params
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil {
		return phc{}, ErrInvalidHash
	}
	if p.Memory == 0 || p.Time == 0 || p.Parallelism == 0 {
		return phc{}, ErrInvalidHash
	}

	var err error
	if h.salt, err = b64.DecodeString(fields[4]); err != nil {
		return phc{}, ErrInvalidHash
	}
	if h.key, err = b64.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return phc{}, ErrInvalidHash
	}
	p.SaltLen = uint32(len(h.salt))
	p.KeyLen = uint32(len(h.key))
	return h, nil
}

func clamp(value, lo, hi int) uint32 {
	return uint32(min(max(value, lo), hi))
}
