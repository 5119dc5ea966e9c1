package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"-embedded", "up"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, opts.embedded)
	assert.Equal(t, "up", opts.command)

	opts, err = parseArgs([]string{"-dir", "/tmp/m", "create", "add_index"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/m", opts.dir)
	assert.Equal(t, "add_index", opts.arg)
}

func TestParseArgsRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{nil, {"to"}, {"create"}, {"sideways"}} {
		_, err := parseArgs(args, io.Discard)
		assert.Error(t, err, "%v", args)
	}
}
