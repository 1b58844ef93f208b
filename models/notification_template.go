package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationTemplate lets an artist override the text of an outgoing
// notification. Placeholders: {client}, {artist}, {quote}, {total}, {title}, {time}.
type NotificationTemplate struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_template_user_kind,priority:1" json:"userId"`
	Kind      string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_template_user_kind,priority:2" json:"kind"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *NotificationTemplate) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// Render substitutes placeholders with vars.
func (t *NotificationTemplate) Render(vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(t.Message)
}
