package model

import (
	"time"

	"glow/shared/model"
)

const (
	TableName  = "clients"
	EntityName = "client"

	FieldID        = "id"
	FieldChatID    = "chat_id"
	FieldFirstName = "first_name"
	FieldConsent   = "consent_given"
)

// Client is the end user reaching the business through the chat channel.
// Read-mostly; lookups are served through the cache layer.
type Client struct {
	ID           string     `db:"id"`
	ChatID       string     `db:"chat_id"`
	FirstName    string     `db:"first_name"`
	LastName     string     `db:"last_name"`
	Username     string     `db:"username"`
	Phone        string     `db:"phone"`
	Email        string     `db:"email"`
	ConsentGiven bool       `db:"consent_given"`
	ConsentAt    *time.Time `db:"consent_at"`
	model.Metadata
}
