package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ClientProspect = "prospect"
	ClientActive   = "active"
	ClientInactive = "inactive"

	SourceQuote  = "quote"
	SourceManual = "manual"
	SourceWalkIn = "walk_in"
)

// ClientProfile is an artist's CRM record for one client. ClientID is nil
// for walk-ins without an account.
type ClientProfile struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ArtistID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_profile_artist_client,priority:1" json:"artistId"`
	ClientID *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_profile_artist_client,priority:2" json:"clientId,omitempty"`

	Name      string                      `gorm:"not null" json:"name"`
	Email     string                      `gorm:"index" json:"email,omitempty"`
	Phone     string                      `json:"phone,omitempty"`
	Notes     string                      `gorm:"type:text" json:"notes,omitempty"`
	SkinNotes string                      `gorm:"type:text" json:"skinNotes,omitempty"`
	Tags      datatypes.JSONSlice[string] `json:"tags"`
	Source    string                      `gorm:"type:varchar(20);not null;default:'manual'" json:"source"`
	Status    string                      `gorm:"type:varchar(20);not null;default:'prospect';index" json:"status"`

	TotalProjects int        `gorm:"default:0" json:"totalProjects"`
	TotalRevenue  float64    `gorm:"type:decimal(10,2);default:0" json:"totalRevenue"`
	LastContact   *time.Time `json:"lastContact,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *ClientProfile) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
