package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/occasionbuddy/occasionbuddy-backend/internal/wishlist"
)

func TestDeviceIDStoresHeaderOnContext(t *testing.T) {
	var got string
	handler := DeviceID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = DeviceIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wishlist", nil)
	req.Header.Set(wishlist.DeviceIDHeader, "  device_1234  ")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "device_1234", got)
}

func TestDeviceIDRejectsMissingOrMalformed(t *testing.T) {
	for _, value := range []string{"", "short", "has spaces inside"} {
		handler := DeviceID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatalf("handler reached for %q", value)
		}))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/wishlist", nil)
		if value != "" {
			req.Header.Set(wishlist.DeviceIDHeader, value)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, value)
	}
}
