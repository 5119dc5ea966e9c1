package middleware

import (
	"net/http"

	"github.com/occasionbuddy/occasionbuddy-backend/api/responses"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/wishlist"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

// DeviceID requires a well-formed X-Device-Id header and stores it on the context.
func DeviceID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID, err := wishlist.ValidateDeviceID(r.Header.Get(wishlist.DeviceIDHeader))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := WithDeviceID(r.Context(), deviceID)
			if logg != nil {
				ctx = logg.WithDeviceID(ctx, deviceID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
