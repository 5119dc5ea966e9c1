package models

import "github.com/google/uuid"

// ensureID assigns a fresh identifier before insert so rows never depend on a
// database-side uuid default.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
