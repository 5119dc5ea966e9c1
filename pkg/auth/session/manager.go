// Package session keeps refresh sessions in Redis. A session is keyed by the
// access token jti, bound to one user and holds a digest of the refresh
// token, never the token itself.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	redisclient "github.com/occasionbuddy/occasionbuddy-backend/pkg/redis"
)

const (
	refreshTokenBytes = 32
	bindingSeparator  = "|"
)

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errMissingAccessID     = errors.New("access id is required")
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is all the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type Manager struct {
	store sessionStore
	ttl   time.Duration
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return newManager(client, cfg)
}

func newManager(store sessionStore, cfg config.JWTConfig) (*Manager, error) {
	ttl := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case ttl <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case ttl <= accessTTL:
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: store, ttl: ttl}, nil
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// NewAccessID produces the identifier used as the JWT jti and session key.
func NewAccessID() string { return uuid.NewString() }

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if blank(accessID) {
		return "", errMissingAccessID
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}

	secret := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(secret)

	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), encodeBinding(userID, digest(token)), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate trades the refresh token of oldAccessID for a new session. The old
// session is consumed atomically, so concurrent rotations of one token
// produce exactly one winner.
func (m *Manager) Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (newAccessID, newToken string, err error) {
	if blank(oldAccessID) || blank(provided) || userID == uuid.Nil {
		return "", "", ErrInvalidRefreshToken
	}

	key := m.store.AccessSessionKey(oldAccessID)
	stored, err := m.store.Get(ctx, key)
	if errors.Is(err, redislib.Nil) {
		return "", "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", "", err
	}

	boundUser, storedDigest, ok := decodeBinding(stored)
	if !ok || boundUser != userID {
		return "", "", ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(storedDigest), []byte(digest(provided))) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	consumed, err := m.store.ReleaseIfOwner(ctx, key, stored)
	if err != nil {
		return "", "", err
	}
	if !consumed {
		return "", "", ErrInvalidRefreshToken
	}

	newAccessID = NewAccessID()
	newToken, err = m.Generate(ctx, newAccessID, userID)
	if err != nil {
		return "", "", err
	}
	return newAccessID, newToken, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if blank(accessID) {
		return errMissingAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

// HasSession reports whether accessID still has a live session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if blank(accessID) {
		return false, errMissingAccessID
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func encodeBinding(userID uuid.UUID, tokenDigest string) string {
	return userID.String() + bindingSeparator + tokenDigest
}

func decodeBinding(value string) (uuid.UUID, string, bool) {
	rawUser, tokenDigest, found := strings.Cut(value, bindingSeparator)
	if !found || tokenDigest == "" {
		return uuid.Nil, "", false
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return uuid.Nil, "", false
	}
	return userID, tokenDigest, true
}
