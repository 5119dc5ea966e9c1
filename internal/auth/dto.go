package auth

import (
	"time"

	"github.com/occasionbuddy/occasionbuddy-backend/internal/users"
)

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	MobileNo        string `json:"mobileNo" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// LoginRequest carries sign-in credentials for both the customer and admin endpoints.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest pairs the (possibly expired) access token with its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse is returned by register, login, admin login and refresh.
type TokenResponse struct {
	AccessToken     string         `json:"accessToken"`
	RefreshToken    string         `json:"refreshToken"`
	AccessExpiresAt time.Time      `json:"accessExpiresAt"`
	User            *users.UserDTO `json:"user"`
}
