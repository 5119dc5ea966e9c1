package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/occasionbuddy/occasionbuddy-backend/api/responses"
	"github.com/occasionbuddy/occasionbuddy-backend/api/validators"
	product "github.com/occasionbuddy/occasionbuddy-backend/internal/products"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

// Price accepts either a JSON number or a numeric string.
type createProductRequest struct {
	Title    string      `json:"title" validate:"required"`
	Price    json.Number `json:"price" validate:"required"`
	ImageURL string      `json:"imageUrl" validate:"required"`
	Category string      `json:"category" validate:"required"`
}

type updateProductRequest struct {
	Title    *string      `json:"title,omitempty"`
	Price    *json.Number `json:"price,omitempty"`
	ImageURL *string      `json:"imageUrl,omitempty"`
	Category *string      `json:"category,omitempty"`
}

func (r updateProductRequest) toInput() product.UpdateProductInput {
	input := product.UpdateProductInput{
		Title:    r.Title,
		ImageURL: r.ImageURL,
		Category: r.Category,
	}
	if r.Price != nil {
		price := r.Price.String()
		input.Price = &price
	}
	return input
}

func ListProducts(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product service"))
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), product.ListProductsInput{
			Category:   strings.TrimSpace(r.URL.Query().Get("category")),
			Pagination: page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product service"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func AdminCreateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product service"))
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateProduct(r.Context(), product.CreateProductInput{
			Title:    body.Title,
			Price:    body.Price.String(),
			ImageURL: body.ImageURL,
			Category: body.Category,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func AdminUpdateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product service"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateProduct(r.Context(), productID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func AdminDeleteProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("product service"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": productID, "deleted": true})
	}
}
