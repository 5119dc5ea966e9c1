package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
)

var (
	ErrMissingSecret = errors.New("jwt secret is required")
	ErrMissingIssuer = errors.New("jwt issuer is required")
	ErrInvalidTTL    = errors.New("jwt expiration minutes must be positive")
)

const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

func checkSigningConfig(cfg config.JWTConfig) error {
	switch {
	case cfg.Secret == "":
		return ErrMissingSecret
	case cfg.Issuer == "":
		return ErrMissingIssuer
	case cfg.ExpirationMinutes <= 0:
		return ErrInvalidTTL
	}
	return nil
}

// MintAccessToken signs an HS256 access token valid for cfg.ExpirationMinutes
// from now. A missing JTI is filled with a fresh uuid.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkSigningConfig(cfg); err != nil {
		return "", err
	}
	if payload.UserID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid user role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute

	signed, err := jwt.NewWithClaims(signingMethod, AccessTokenClaims{
		UserID: payload.UserID,
		Role:   payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   payload.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return parseAccessToken(cfg, raw,
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
}

// ParseAccessTokenAllowExpired verifies the signature and issuer but skips
// time based checks, so refresh can read the jti of an expired token.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	claims, err := parseAccessToken(cfg, raw, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if claims.Issuer != cfg.Issuer {
		return nil, jwt.ErrTokenInvalidIssuer
	}
	return claims, nil
}

func parseAccessToken(cfg config.JWTConfig, raw string, extra ...jwt.ParserOption) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	}, extra...)

	claims := &AccessTokenClaims{}
	_, err := jwt.NewParser(opts...).ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}
