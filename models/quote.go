package models

import (
	"inkdesk-backend/utils"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	QuoteDraft    = "draft"
	QuoteSent     = "sent"
	QuoteAccepted = "accepted"
	QuoteDeclined = "declined"
	QuoteExpired  = "expired"
)

type Quote struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuoteNumber    string    `gorm:"not null;uniqueIndex:idx_quote_artist_number,priority:2" json:"quoteNumber"`
	ArtistID       uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_quote_artist_number,priority:1" json:"artistId"`
	ClientID       uuid.UUID `gorm:"type:uuid;not null;index" json:"clientId"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversationId"`

	Title       string      `gorm:"not null" json:"title"`
	Description string      `gorm:"type:text" json:"description,omitempty"`
	Items       []QuoteItem `gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE" json:"items"`

	Subtotal      float64 `gorm:"type:decimal(10,2);not null;default:0" json:"subtotal"`
	TaxRate       float64 `gorm:"type:decimal(5,2);not null;default:0" json:"taxRate"` // percentage
	TaxAmount     float64 `gorm:"type:decimal(10,2);not null;default:0" json:"taxAmount"`
	TotalAmount   float64 `gorm:"type:decimal(10,2);not null;default:0" json:"totalAmount"`
	DepositAmount float64 `gorm:"type:decimal(10,2);not null;default:0" json:"depositAmount"`
	Currency      string  `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`

	Status            string    `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	ValidUntil        time.Time `gorm:"index" json:"validUntil"`
	Terms             string    `gorm:"type:text" json:"terms,omitempty"`
	Notes             string    `gorm:"type:text" json:"notes,omitempty"`
	EstimatedSessions int       `gorm:"default:1" json:"estimatedSessions"`

	SentAt        *time.Time `json:"sentAt,omitempty"`
	AcceptedAt    *time.Time `json:"acceptedAt,omitempty"`
	DeclinedAt    *time.Time `json:"declinedAt,omitempty"`
	DeclineReason string     `gorm:"type:text" json:"declineReason,omitempty"`
	ProjectID     *uuid.UUID `gorm:"type:uuid" json:"projectId,omitempty"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type QuoteItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuoteID     uuid.UUID `gorm:"type:uuid;not null;index" json:"quoteId"`
	Description string    `gorm:"not null" json:"description"`
	Quantity    float64   `gorm:"type:decimal(10,2);not null" json:"quantity"`
	UnitPrice   float64   `gorm:"type:decimal(10,2);not null" json:"unitPrice"`
	TotalPrice  float64   `gorm:"type:decimal(10,2);not null" json:"totalPrice"`
	Position    int       `gorm:"not null;default:0" json:"position"`
}

func (q *Quote) BeforeCreate(tx *gorm.DB) error {
	ensureID(&q.ID)
	return nil
}

func (i *QuoteItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// Recalculate derives every line total and the quote totals from the items
// and tax rate. Amounts are rounded to cents.
func (q *Quote) Recalculate() {
	var subtotal float64
	for i := range q.Items {
		q.Items[i].TotalPrice = utils.Round2(q.Items[i].Quantity * q.Items[i].UnitPrice)
		q.Items[i].Position = i
		subtotal += q.Items[i].TotalPrice
	}
	q.Subtotal = utils.Round2(subtotal)
	q.TaxAmount = utils.Round2(q.Subtotal * q.TaxRate / 100)
	q.TotalAmount = utils.Round2(q.Subtotal + q.TaxAmount)
}

// IsExpiredAt reports whether the validity window has passed at t.
func (q *Quote) IsExpiredAt(t time.Time) bool {
	return t.After(q.ValidUntil)
}

var quoteTransitions = map[string][]string{
	QuoteDraft: {QuoteSent},
	QuoteSent:  {QuoteAccepted, QuoteDeclined, QuoteExpired},
}

// QuoteTransitionAllowed reports whether a quote may move from one status to another.
func QuoteTransitionAllowed(from, to string) bool {
	for _, next := range quoteTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// QuoteSequence backs per-artist, per-year quote numbering.
type QuoteSequence struct {
	ArtistID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Year     int       `gorm:"primaryKey;autoIncrement:false"`
	Counter  int       `gorm:"not null;default:0"`
}
