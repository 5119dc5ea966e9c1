package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db/models"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/enums"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/pagination"
)

// Location is a WGS84 point. Pointers let (0,0) be distinguished from "missing".
type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// CreateOrderInput is the customer booking payload.
type CreateOrderInput struct {
	ProductID uuid.UUID
	Date      string
	Location  *Location
	Note      string
}

// UpdateStatusInput is the admin status change request.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	Status      string
	ActorUserID uuid.UUID
}

// AdminListInput filters the admin order listing.
type AdminListInput struct {
	Status     string
	Pagination pagination.Params
}

// LocationDTO is the stored booking location.
type LocationDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// OrderDTO exposes a booking including the user snapshot taken at creation.
type OrderDTO struct {
	ID           uuid.UUID         `json:"id"`
	UserID       uuid.UUID         `json:"userId"`
	UserName     string            `json:"userName"`
	UserEmail    string            `json:"userEmail"`
	UserMobileNo string            `json:"userMobileNo"`
	ProductID    uuid.UUID         `json:"productId"`
	Date         string            `json:"date"`
	Location     LocationDTO       `json:"location"`
	Note         string            `json:"note"`
	Status       enums.OrderStatus `json:"status"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// OrderList is one page of bookings.
type OrderList = pagination.Page[OrderDTO]

func FromModel(o *models.Order) OrderDTO {
	return OrderDTO{
		ID:           o.ID,
		UserID:       o.UserID,
		UserName:     o.UserName,
		UserEmail:    o.UserEmail,
		UserMobileNo: o.UserMobileNo,
		ProductID:    o.ProductID,
		Date:         o.Date,
		Location:     LocationDTO{Latitude: o.LocationLat, Longitude: o.LocationLng},
		Note:         o.Note,
		Status:       o.Status,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

func toPage(rows []models.Order, limit int) *OrderList {
	items := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	page := pagination.Paginate(items, limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page
}
