package gcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
)

func TestClientOptions(t *testing.T) {
	cases := map[string]struct {
		cfg  config.GCPConfig
		want int
	}{
		"inline json wins over file": {config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/secrets/sa.json"}, 1},
		"credentials file":           {config.GCPConfig{ApplicationCredentials: "/secrets/sa.json"}, 1},
		"blank values fall through":  {config.GCPConfig{CredentialsJSON: "  ", ApplicationCredentials: "\t"}, 0},
		"application default":        {config.GCPConfig{}, 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Len(t, ClientOptions(tc.cfg), tc.want)
		})
	}
}

func TestProjectIDIsTrimmedAndRequired(t *testing.T) {
	_, err := ProjectID(config.GCPConfig{ProjectID: "  "})
	require.ErrorIs(t, err, ErrProjectIDRequired)

	id, err := ProjectID(config.GCPConfig{ProjectID: " ob-prod "})
	require.NoError(t, err)
	assert.Equal(t, "ob-prod", id)
}
