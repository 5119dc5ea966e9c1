package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
)

// UserDTO is the profile shape returned to clients. It never carries the password hash.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	MobileNo    string         `json:"mobileNo"`
	Role        enums.UserRole `json:"role"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// IsAdmin reports whether the stored role is admin.
func (u *UserDTO) IsAdmin() bool {
	return u != nil && u.Role == enums.UserRoleAdmin
}

// CreateUserDTO holds what the repository needs to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	MobileNo     string
	PasswordHash string
	Role         enums.UserRole
}

// NormalizeEmail lower-cases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		MobileNo:    u.MobileNo,
		Role:        u.Role,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	return &models.User{
		Name:         strings.TrimSpace(c.Name),
		Email:        NormalizeEmail(c.Email),
		MobileNo:     strings.TrimSpace(c.MobileNo),
		PasswordHash: c.PasswordHash,
		Role:         role,
	}
}
