package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
)

// User is the customer or admin profile record.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name         string         `gorm:"column:name;not null"`
	Email        string         `gorm:"column:email;type:text;not null;uniqueIndex:users_email_key"`
	MobileNo     string         `gorm:"column:mobile_no;not null"`
	Role         enums.UserRole `gorm:"column:role;type:user_role;not null;default:user"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
