package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"

	NotificationQuoteSent     = "quote_sent"
	NotificationEventReminder = "event_reminder"

	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
	NotificationStatusSkipped = "skipped"
)

type NotificationLog struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	Channel      string     `gorm:"type:varchar(20)" json:"channel"`
	Kind         string     `gorm:"type:varchar(30);not null" json:"kind"`
	Recipient    string     `json:"recipient"`
	Body         string     `gorm:"type:text" json:"body"`
	Status       string     `gorm:"type:varchar(20);not null" json:"status"`
	ProviderID   string     `json:"providerId,omitempty"` // Twilio message SID
	ErrorMessage string     `gorm:"type:text" json:"errorMessage,omitempty"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (n *NotificationLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
