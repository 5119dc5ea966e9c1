package migrations

import "embed"

// FS holds the goose SQL migrations compiled into every binary.
//
//go:embed *.sql
var FS embed.FS
