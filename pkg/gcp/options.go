// Package gcp holds the credential wiring shared by the Pub/Sub and BigQuery clients.
package gcp

import (
	"errors"
	"strings"

	"google.golang.org/api/option"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
)

var ErrProjectIDRequired = errors.New("gcp project id is required")

// ClientOptions prefers inline credentials JSON over a credentials file.
// With neither set the SDK falls back to application default credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(cfg.ApplicationCredentials))
	}
	return opts
}

// ProjectID returns the trimmed project id or ErrProjectIDRequired.
func ProjectID(cfg config.GCPConfig) (string, error) {
	id := strings.TrimSpace(cfg.ProjectID)
	if id == "" {
		return "", ErrProjectIDRequired
	}
	return id, nil
}
