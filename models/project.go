package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProjectPending     = "pending"
	ProjectDesignPhase = "design_phase"
	ProjectScheduled   = "scheduled"
	ProjectInProgress  = "in_progress"
	ProjectCompleted   = "completed"
	ProjectCancelled   = "cancelled"

	// ProjectPlaceholder seeds the fields an accepted quote does not carry.
	ProjectPlaceholder = "to be defined"
)

const (
	SessionPlanned   = "planned"
	SessionDone      = "done"
	SessionCancelled = "cancelled"
)

type Project struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	QuoteID         uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"quoteId"`
	ArtistID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"artistId"`
	ClientID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"clientId"`
	ClientProfileID *uuid.UUID `gorm:"type:uuid;index" json:"clientProfileId,omitempty"`
	ConversationID  uuid.UUID  `gorm:"type:uuid;not null" json:"conversationId"`

	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Style       string `json:"style"`
	BodyZone    string `json:"bodyZone"`
	Size        string `json:"size"`

	Status      string  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TotalAmount float64 `gorm:"type:decimal(10,2);not null;default:0" json:"totalAmount"`
	DepositPaid float64 `gorm:"type:decimal(10,2);not null;default:0" json:"depositPaid"`

	Sessions []ProjectSession `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"sessions,omitempty"`

	AnnouncedAt *time.Time `json:"announcedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type ProjectSession struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID       uuid.UUID `gorm:"type:uuid;not null;index" json:"projectId"`
	ScheduledAt     time.Time `gorm:"not null;index" json:"scheduledAt"`
	DurationMinutes int       `gorm:"not null;default:60" json:"durationMinutes"`
	Status          string    `gorm:"type:varchar(20);not null;default:'planned'" json:"status"`
	Notes           string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (s *ProjectSession) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

func (p *Project) IsTerminal() bool {
	return p.Status == ProjectCompleted || p.Status == ProjectCancelled
}

var projectOrder = map[string]int{
	ProjectPending:     0,
	ProjectDesignPhase: 1,
	ProjectScheduled:   2,
	ProjectInProgress:  3,
	ProjectCompleted:   4,
}

// ProjectTransitionAllowed enforces forward-only progress. Cancellation is
// possible from any non-terminal status; completion only from in_progress.
func ProjectTransitionAllowed(from, to string) bool {
	if from == to || from == ProjectCompleted || from == ProjectCancelled {
		return false
	}
	if to == ProjectCancelled {
		_, known := projectOrder[from]
		return known
	}
	if to == ProjectCompleted {
		return from == ProjectInProgress
	}
	f, okFrom := projectOrder[from]
	t, okTo := projectOrder[to]
	return okFrom && okTo && t > f
}
