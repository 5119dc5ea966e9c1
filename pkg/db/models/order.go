package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
)

// Order is a booking. The User* columns are a snapshot taken at creation and
// are never rewritten when the profile changes.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	UserName     string            `gorm:"column:user_name;not null"`
	UserEmail    string            `gorm:"column:user_email;not null"`
	UserMobileNo string            `gorm:"column:user_mobile_no;not null"`
	ProductID    uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	Date         string            `gorm:"column:date;not null"`
	LocationLat  float64           `gorm:"column:location_lat;not null"`
	LocationLng  float64           `gorm:"column:location_lng;not null"`
	Note         string            `gorm:"column:note;not null;default:''"`
	Status       enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:pending"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
