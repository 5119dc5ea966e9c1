package wishlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
)

type productChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	Store    setStore
	Products productChecker
}

// ToggleResult reports the membership after a toggle.
type ToggleResult struct {
	ProductID  uuid.UUID `json:"productId"`
	InWishlist bool      `json:"inWishlist"`
}

// ListResult is the device wishlist.
type ListResult struct {
	ProductIDs []uuid.UUID `json:"productIds"`
}

// Service exposes the device-scoped wishlist.
type Service interface {
	Toggle(ctx context.Context, deviceID string, productID uuid.UUID) (*ToggleResult, error)
	List(ctx context.Context, deviceID string) (*ListResult, error)
}

type service struct {
	store    setStore
	products productChecker
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("wishlist store is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product checker is required")
	}
	return &service{store: params.Store, products: params.Products}, nil
}

// Toggle flips membership. Adding requires the product to exist; removing never checks.
func (s *service) Toggle(ctx context.Context, deviceID string, productID uuid.UUID) (*ToggleResult, error) {
	deviceID, err := ValidateDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	key := s.store.WishlistKey(deviceID)
	member := productID.String()
	present, err := s.store.IsMember(ctx, key, member)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read wishlist")
	}
	if !present {
		exists, err := s.products.Exists(ctx, productID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
		}
		if !exists {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
	}

	inWishlist, err := s.store.ToggleMember(ctx, key, member)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle wishlist")
	}
	return &ToggleResult{ProductID: productID, InWishlist: inWishlist}, nil
}

// List returns the device's product ids sorted lexically. Malformed members are skipped.
func (s *service) List(ctx context.Context, deviceID string) (*ListResult, error) {
	deviceID, err := ValidateDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.Members(ctx, s.store.WishlistKey(deviceID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist")
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return &ListResult{ProductIDs: ids}, nil
}
