// Package enums holds the string enumerations persisted in Postgres and
// carried on the wire.
package enums

import (
	"fmt"
	"slices"
)

func oneOf[T ~string](v T, set []T) bool {
	return slices.Contains(set, v)
}

func parseOneOf[T ~string](raw string, set []T, kind string) (T, error) {
	if v := T(raw); oneOf(v, set) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
