package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	OutboxPending = "pending"
	OutboxDone    = "done"
	OutboxFailed  = "failed"
)

// OutboxEntry is a unit of follow-up work recorded in the same transaction
// as the state change that requires it.
type OutboxEntry struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Kind          string            `gorm:"type:varchar(50);not null;index" json:"kind"`
	AggregateID   uuid.UUID         `gorm:"type:uuid;not null;index" json:"aggregateId"`
	Payload       datatypes.JSONMap `json:"payload,omitempty"`
	Status        string            `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Attempts      int               `gorm:"default:0" json:"attempts"`
	LastError     string            `gorm:"type:text" json:"lastError,omitempty"`
	NextAttemptAt time.Time         `gorm:"index" json:"nextAttemptAt"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func (o *OutboxEntry) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
