package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is a personal calendar entry.
type Event struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	Title           string     `gorm:"not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description,omitempty"`
	Location        string     `json:"location,omitempty"`
	StartsAt        time.Time  `gorm:"not null;index" json:"startsAt"`
	EndsAt          time.Time  `gorm:"not null" json:"endsAt"`
	AllDay          bool       `gorm:"default:false" json:"allDay"`
	Color           string     `gorm:"type:varchar(20)" json:"color,omitempty"`
	ReminderMinutes int        `gorm:"default:0" json:"reminderMinutes"`
	ReminderSentAt  *time.Time `json:"reminderSentAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// ReminderDue reports whether the reminder should go out at now.
func (e *Event) ReminderDue(now time.Time) bool {
	if e.ReminderMinutes <= 0 || e.ReminderSentAt != nil || !e.StartsAt.After(now) {
		return false
	}
	return !now.Before(e.StartsAt.Add(-time.Duration(e.ReminderMinutes) * time.Minute))
}
