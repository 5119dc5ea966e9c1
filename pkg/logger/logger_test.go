package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestContextFieldsFollowTheRequest(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf, Format: FormatJSON})

	ctx := logg.WithRequestID(context.Background(), "req-123")
	ctx = logg.WithUserID(ctx, "user-1")
	ctx = logg.WithFields(ctx, map[string]any{"route": "/api/v1/orders"})
	logg.Error(ctx, "request.error", errors.New("boom"))

	entry := lastEntry(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, "/api/v1/orders", entry["route"])
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "stack")
}

func TestDerivedContextDoesNotLeakIntoParent(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf, Format: FormatJSON})

	parent := logg.WithField(context.Background(), "request_id", "r1")
	_ = logg.WithField(parent, "job", "outbox-retention")
	logg.Info(parent, "after")

	assert.NotContains(t, lastEntry(t, &buf), "job")
}

func TestWarnStackToggle(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Output: &buf, Format: FormatJSON, WarnStack: true}).Warn(context.Background(), "slow")
	assert.Contains(t, lastEntry(t, &buf), "stack")

	buf.Reset()
	New(Options{Output: &buf, Format: FormatJSON}).Warn(context.Background(), "slow")
	assert.NotContains(t, lastEntry(t, &buf), "stack")
}

func TestLevelFiltersLowerEntries(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{Level: zerolog.WarnLevel, Output: &buf, Format: FormatJSON})
	logg.Info(context.Background(), "hidden")
	logg.Debug(context.Background(), "hidden")
	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
}
