package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/pagination"
)

// ProductDTO is the public catalog representation.
type ProductDTO struct {
	ID        uuid.UUID             `json:"id"`
	Title     string                `json:"title"`
	Price     decimal.Decimal       `json:"price"`
	ImageURL  string                `json:"imageUrl"`
	Category  enums.ProductCategory `json:"category"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// CreateProductInput is the admin payload for a new product. Price is a decimal string.
type CreateProductInput struct {
	Title    string
	Price    string
	ImageURL string
	Category string
}

// UpdateProductInput patches only the non-nil fields.
type UpdateProductInput struct {
	Title    *string
	Price    *string
	ImageURL *string
	Category *string
}

func (in UpdateProductInput) empty() bool {
	return in.Title == nil && in.Price == nil && in.ImageURL == nil && in.Category == nil
}

// ListProductsInput filters the catalog listing.
type ListProductsInput struct {
	Category   string
	Pagination pagination.Params
}

// ProductListResult is one page of products.
type ProductListResult = pagination.Page[ProductDTO]

func FromModel(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:        p.ID,
		Title:     p.Title,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Category:  p.Category,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func productCursor(p ProductDTO) pagination.Cursor {
	return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
}
