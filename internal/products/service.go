package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/pagination"
)

// Service exposes catalog reads and admin product management.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type service struct {
	repo *Repository
}

// NewService constructs a product service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	var category *enums.ProductCategory
	if input.Category != "" {
		parsed, err := parseCategory(input.Category)
		if err != nil {
			return nil, err
		}
		category = &parsed
	}
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, category, cursor, input.Pagination.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	items := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	page := pagination.Paginate(items, input.Pagination.Limit, productCursor)
	return &page, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	title, err := validateTitle(input.Title)
	if err != nil {
		return nil, err
	}
	price, err := parsePrice(input.Price)
	if err != nil {
		return nil, err
	}
	imageURL, err := validateImageURL(input.ImageURL)
	if err != nil {
		return nil, err
	}
	category, err := parseCategory(input.Category)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		Title:    title,
		Price:    price,
		ImageURL: imageURL,
		Category: category,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if input.empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one field must be provided")
	}
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if product.Title, err = validateTitle(*input.Title); err != nil {
			return nil, err
		}
	}
	if input.Price != nil {
		if product.Price, err = parsePrice(*input.Price); err != nil {
			return nil, err
		}
	}
	if input.ImageURL != nil {
		if product.ImageURL, err = validateImageURL(*input.ImageURL); err != nil {
			return nil, err
		}
	}
	if input.Category != nil {
		if product.Category, err = parseCategory(*input.Category); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
	}
	return ok, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}
