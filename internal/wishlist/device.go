package wishlist

import (
	"regexp"
	"strings"

	pkgerrors "github.com/occasionbuddy/occasionbuddy-backend/pkg/errors"
)

// DeviceIDHeader carries the client-generated device identifier.
const DeviceIDHeader = "X-Device-Id"

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// ValidateDeviceID trims and checks a device id.
func ValidateDeviceID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, DeviceIDHeader+" header is required")
	}
	if !deviceIDPattern.MatchString(id) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, DeviceIDHeader+" must be 8-128 characters of letters, digits, '-' or '_'")
	}
	return id, nil
}
