package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
)

// Product is a bookable catalog item. Images are externally hosted URLs.
type Product struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Title     string                `gorm:"column:title;not null"`
	Price     decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	ImageURL  string                `gorm:"column:image_url;not null"`
	Category  enums.ProductCategory `gorm:"column:category;type:product_category;not null"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
