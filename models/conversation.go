package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ConversationActive   = "active"
	ConversationArchived = "archived"
)

// Conversation is the single thread between one client and one artist.
type Conversation struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair,priority:1" json:"clientId"`
	ArtistID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_pair,priority:2;index" json:"artistId"`
	Status        string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	LastMessageID *uuid.UUID `gorm:"type:uuid" json:"lastMessageId,omitempty"`
	LastActivity  time.Time  `gorm:"index" json:"lastActivity"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.ClientID == userID || c.ArtistID == userID
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.ClientID == userID {
		return c.ArtistID
	}
	return c.ClientID
}
