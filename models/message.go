package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MessageText    = "text"
	MessageImage   = "image"
	MessageFile    = "file"
	MessageProject = "project"
	MessageSystem  = "system"
	MessageQuote   = "quote"
)

// Attachment describes an uploaded file referenced by a message.
type Attachment struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Message belongs to a conversation. System messages carry a nil sender.
type Message struct {
	ID             uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID                       `gorm:"type:uuid;not null;index:idx_message_conversation_created,priority:1" json:"conversationId"`
	SenderID       uuid.UUID                       `gorm:"type:uuid;not null;index" json:"senderId"`
	Content        string                          `gorm:"type:text" json:"content"`
	Type           string                          `gorm:"type:varchar(20);not null;default:'text'" json:"type"`
	Attachments    datatypes.JSONSlice[Attachment] `json:"attachments,omitempty"`
	Metadata       datatypes.JSONMap               `json:"metadata,omitempty"`
	IsRead         bool                            `gorm:"default:false;index" json:"isRead"`
	ReadAt         *time.Time                      `json:"readAt,omitempty"`
	CreatedAt      time.Time                       `gorm:"index:idx_message_conversation_created,priority:2" json:"createdAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
