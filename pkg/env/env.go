// Package env reads process settings that must be known before config.Load,
// such as the log format used while config itself is being parsed.
package env

import (
	"os"
	"strconv"
	"strings"
)

// Get returns the trimmed value of key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Bool parses key with strconv.ParseBool and falls back on absence or garbage.
func Bool(key string, fallback bool) bool {
	val, err := strconv.ParseBool(Get(key, ""))
	if err != nil {
		return fallback
	}
	return val
}
