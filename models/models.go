package models

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&User{},
		&PublicPage{},
		&Conversation{},
		&Message{},
		&Quote{},
		&QuoteItem{},
		&QuoteSequence{},
		&Project{},
		&ProjectSession{},
		&ClientProfile{},
		&Event{},
		&OutboxEntry{},
		&NotificationLog{},
		&NotificationTemplate{},
	}
}
