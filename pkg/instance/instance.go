package instance

import (
	"os"
	"strings"
)

const idEnvVar = "OCCASIONBUDDY_INSTANCE_ID"

// ID identifies this process in worker logs. The explicit env value wins,
// then the hostname, then a fixed fallback.
func ID() string {
	if id := strings.TrimSpace(os.Getenv(idEnvVar)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "instance-0"
}
