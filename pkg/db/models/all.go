package models

// All lists every persisted model. Used by AutoMigrate for the sqlite dev mode and tests.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Order{},
		&SupportTicket{},
		&Notification{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
