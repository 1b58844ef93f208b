package models

import (
	"inkdesk-backend/utils"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleClient = "client"
	RoleArtist = "tattoo_artist"
	RoleAdmin  = "admin"
)

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email    string    `gorm:"uniqueIndex;not null" json:"email"`
	Password string    `gorm:"not null" json:"-"`
	Name     string    `gorm:"not null" json:"name"`
	Phone    string    `json:"phone,omitempty"`

	Role string `gorm:"type:varchar(20);not null;index" json:"role"` // client, tattoo_artist or admin

	// Artist profile
	Bio          string  `gorm:"type:text" json:"bio,omitempty"`
	Specialty    string  `json:"specialty,omitempty"`
	Instagram    string  `json:"instagram,omitempty"`
	Slug         *string `gorm:"uniqueIndex" json:"slug,omitempty"`
	ProfilePhoto string  `json:"profilePhoto,omitempty"`

	// Placeholder accounts are created when a quote names an unknown email.
	IsPlaceholder bool       `gorm:"default:false" json:"isPlaceholder"`
	IsActive      bool       `gorm:"default:true" json:"isActive"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the id and hashes a plain-text password.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	if u.Password == "" {
		return nil
	}
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return nil
}

func (u *User) IsArtist() bool { return u.Role == RoleArtist }

func (u *User) IsClient() bool { return u.Role == RoleClient }

// PublicUser is the subset of a user that other participants may see.
type PublicUser struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Bio          string    `json:"bio,omitempty"`
	Specialty    string    `json:"specialty,omitempty"`
	Instagram    string    `json:"instagram,omitempty"`
	Slug         string    `json:"slug,omitempty"`
	ProfilePhoto string    `json:"profilePhoto,omitempty"`
}

func (u *User) Public() PublicUser {
	p := PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		Role:         u.Role,
		Bio:          u.Bio,
		Specialty:    u.Specialty,
		Instagram:    u.Instagram,
		ProfilePhoto: u.ProfilePhoto,
	}
	if u.Slug != nil {
		p.Slug = *u.Slug
	}
	return p
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
