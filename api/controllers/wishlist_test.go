package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/occasionbuddy/occasionbuddy-backend/api/middleware"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/wishlist"
)

type stubWishlist struct {
	toggleFn func(ctx context.Context, deviceID string, productID uuid.UUID) (*wishlist.ToggleResult, error)
	listFn   func(ctx context.Context, deviceID string) (*wishlist.ListResult, error)
}

func (s *stubWishlist) Toggle(ctx context.Context, deviceID string, productID uuid.UUID) (*wishlist.ToggleResult, error) {
	return s.toggleFn(ctx, deviceID, productID)
}

func (s *stubWishlist) List(ctx context.Context, deviceID string) (*wishlist.ListResult, error) {
	return s.listFn(ctx, deviceID)
}

func withDevice(deviceID string) requestOption {
	return func(r *http.Request) *http.Request {
		return r.WithContext(middleware.WithDeviceID(r.Context(), deviceID))
	}
}

func TestToggleWishlistUsesDeviceFromContext(t *testing.T) {
	productID := uuid.New()
	svc := &stubWishlist{toggleFn: func(ctx context.Context, deviceID string, pid uuid.UUID) (*wishlist.ToggleResult, error) {
		assert.Equal(t, "device-abc-1", deviceID)
		return &wishlist.ToggleResult{ProductID: pid, InWishlist: true}, nil
	}}

	rec := serve(t, ToggleWishlist(svc, testLogger()), http.MethodPost, "/api/v1/wishlist/"+productID.String()+"/toggle", "",
		withDevice("device-abc-1"), withParam("productId", productID.String()))

	require.Equal(t, http.StatusOK, rec.Code)
	var got wishlist.ToggleResult
	decodeData(t, rec, &got)
	assert.Equal(t, productID, got.ProductID)
	assert.True(t, got.InWishlist)
}

func TestListWishlist(t *testing.T) {
	ids := []uuid.UUID{uuid.New()}
	svc := &stubWishlist{listFn: func(ctx context.Context, deviceID string) (*wishlist.ListResult, error) {
		return &wishlist.ListResult{ProductIDs: ids}, nil
	}}

	rec := serve(t, ListWishlist(svc, testLogger()), http.MethodGet, "/api/v1/wishlist", "", withDevice("device-abc-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	var got wishlist.ListResult
	decodeData(t, rec, &got)
	assert.Equal(t, ids, got.ProductIDs)
}
