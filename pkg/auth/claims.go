package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	// JTI doubles as the refresh session key; a fresh one is generated when empty.
	JTI string
}

// AccessTokenClaims represents the typed JWT issued to clients. Role is
// informational; admin routes re-resolve it from the profile record.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
