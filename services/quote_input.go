package services

import (
	"bytes"
	"encoding/json"
	"strings"

	"inkdesk-backend/utils"

	"github.com/google/uuid"
)

const (
	QuoteKindItemized = "itemized"
	QuoteKindSimple   = "simple"

	maxQuoteItems = 50
)

// quotePayload is the wire shape of a quote create/update request. It is a
// tagged union on Kind: "itemized" carries Items, "simple" carries a single
// Amount. When Kind is absent it is inferred from which of the two is present.
type quotePayload struct {
	Kind string `json:"kind"`

	ClientID       *uuid.UUID `json:"clientId"`
	ClientEmail    string     `json:"clientEmail"`
	ClientName     string     `json:"clientName"`
	ClientPhone    string     `json:"clientPhone"`
	ConversationID *uuid.UUID `json:"conversationId"`

	Title       string `json:"title"`
	Description string `json:"description"`

	Items []struct {
		Description string  `json:"description"`
		Quantity    float64 `json:"quantity"`
		UnitPrice   float64 `json:"unitPrice"`
	} `json:"items"`
	Amount *float64 `json:"amount"`

	TaxRate           float64 `json:"taxRate"`
	DepositAmount     float64 `json:"depositAmount"`
	Currency          string  `json:"currency"`
	ValidityDays      int     `json:"validityDays"`
	Terms             string  `json:"terms"`
	Notes             string  `json:"notes"`
	EstimatedSessions int     `json:"estimatedSessions"`
}

type DraftItem struct {
	Description string
	Quantity    float64
	UnitPrice   float64
}

// QuoteDraft is the normalized, validated content of a quote request.
type QuoteDraft struct {
	Client            ClientRef
	ConversationID    *uuid.UUID
	Title             string
	Description       string
	Items             []DraftItem
	TaxRate           float64
	DepositAmount     float64
	Currency          string
	ValidityDays      int
	Terms             string
	Notes             string
	EstimatedSessions int
}

// ParseQuotePayload decodes and validates a quote request body.
func ParseQuotePayload(data []byte) (QuoteDraft, error) {
	var p quotePayload
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p); err != nil {
		return QuoteDraft{}, invalidf("malformed quote body: %v", err)
	}

	kind := p.Kind
	if kind == "" {
		switch {
		case len(p.Items) > 0:
			kind = QuoteKindItemized
		case p.Amount != nil:
			kind = QuoteKindSimple
		default:
			return QuoteDraft{}, invalidf("quote needs items or an amount")
		}
	}

	draft := QuoteDraft{
		Client: ClientRef{
			ID:    p.ClientID,
			Email: p.ClientEmail,
			Name:  p.ClientName,
			Phone: p.ClientPhone,
		},
		ConversationID:    p.ConversationID,
		Title:             strings.TrimSpace(p.Title),
		Description:       strings.TrimSpace(p.Description),
		TaxRate:           p.TaxRate,
		DepositAmount:     p.DepositAmount,
		Currency:          strings.ToUpper(strings.TrimSpace(p.Currency)),
		ValidityDays:      p.ValidityDays,
		Terms:             p.Terms,
		Notes:             p.Notes,
		EstimatedSessions: p.EstimatedSessions,
	}

	switch kind {
	case QuoteKindItemized:
		if p.Amount != nil {
			return QuoteDraft{}, invalidf("itemized quotes take items, not an amount")
		}
		if len(p.Items) == 0 {
			return QuoteDraft{}, invalidf("itemized quotes need at least one item")
		}
		for _, it := range p.Items {
			draft.Items = append(draft.Items, DraftItem{
				Description: strings.TrimSpace(it.Description),
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
			})
		}
	case QuoteKindSimple:
		if len(p.Items) > 0 {
			return QuoteDraft{}, invalidf("simple quotes take an amount, not items")
		}
		if p.Amount == nil {
			return QuoteDraft{}, invalidf("simple quotes need an amount")
		}
		label := draft.Title
		if label == "" {
			label = "Tattoo"
		}
		draft.Items = []DraftItem{{Description: label, Quantity: 1, UnitPrice: *p.Amount}}
	default:
		return QuoteDraft{}, invalidf("unknown quote kind %q", kind)
	}

	if err := draft.Validate(); err != nil {
		return QuoteDraft{}, err
	}
	return draft, nil
}

// Validate checks the draft independently of who sends it.
func (d *QuoteDraft) Validate() error {
	if d.Title == "" {
		return invalidf("title is required")
	}
	if len(d.Title) > 200 {
		return invalidf("title must be at most 200 characters")
	}
	if len(d.Items) == 0 {
		return invalidf("a quote needs at least one item")
	}
	if len(d.Items) > maxQuoteItems {
		return invalidf("a quote holds at most %d items", maxQuoteItems)
	}
	var subtotal float64
	for i, it := range d.Items {
		if it.Description == "" {
			return invalidf("item %d needs a description", i+1)
		}
		if it.Quantity <= 0 {
			return invalidf("item %d quantity must be positive", i+1)
		}
		if it.UnitPrice < 0 {
			return invalidf("item %d unit price must not be negative", i+1)
		}
		if !utils.FitsAmount(it.Quantity) || !utils.FitsAmount(it.UnitPrice) {
			return invalidf("item %d quantity and unit price need at most 2 decimals and must not exceed %.2f", i+1, utils.MaxAmount)
		}
		line := utils.Round2(it.Quantity * it.UnitPrice)
		if line > utils.MaxAmount {
			return invalidf("item %d total exceeds %.2f", i+1, utils.MaxAmount)
		}
		subtotal += line
	}
	if utils.Round2(subtotal*(1+d.TaxRate/100)) > utils.MaxAmount {
		return invalidf("quote total exceeds %.2f", utils.MaxAmount)
	}
	if d.TaxRate < 0 || d.TaxRate > 100 {
		return invalidf("tax rate must be between 0 and 100")
	}
	if d.DepositAmount < 0 {
		return invalidf("deposit must not be negative")
	}
	if !utils.FitsAmount(d.DepositAmount) {
		return invalidf("deposit needs at most 2 decimals and must not exceed %.2f", utils.MaxAmount)
	}
	if d.Currency != "" && len(d.Currency) != 3 {
		return invalidf("currency must be a 3-letter code")
	}
	if d.ValidityDays < 0 || d.ValidityDays > 365 {
		return invalidf("validity must be between 1 and 365 days")
	}
	if d.EstimatedSessions < 0 {
		return invalidf("estimated sessions must not be negative")
	}
	return nil
}
