package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PublicPage is an artist's storefront, resolved through the artist slug.
type PublicPage struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	ArtistID    uuid.UUID                   `gorm:"type:uuid;uniqueIndex;not null" json:"artistId"`
	Headline    string                      `json:"headline"`
	About       string                      `gorm:"type:text" json:"about"`
	Location    string                      `json:"location"`
	Styles      datatypes.JSONSlice[string] `json:"styles"`
	HeaderImage string                      `json:"headerImage,omitempty"`
	Gallery     datatypes.JSONSlice[string] `json:"gallery"`
	BookingOpen bool                        `gorm:"default:true" json:"bookingOpen"`
	Published   bool                        `gorm:"default:false;index" json:"published"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

func (p *PublicPage) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
