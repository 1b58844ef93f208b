package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuotePayloadItemized(t *testing.T) {
	draft, err := ParseQuotePayload([]byte(`{
		"kind": "itemized",
		"clientEmail": "carl@example.com",
		"title": "  Koi sleeve ",
		"items": [
			{"description": "Design", "quantity": 1, "unitPrice": 200},
			{"description": "Session", "quantity": 3, "unitPrice": 120}
		],
		"taxRate": 20,
		"currency": "eur"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "Koi sleeve", draft.Title)
	assert.Equal(t, "carl@example.com", draft.Client.Email)
	assert.Nil(t, draft.Client.ID)
	assert.Equal(t, "EUR", draft.Currency)
	require.Len(t, draft.Items, 2)
	assert.Equal(t, DraftItem{Description: "Session", Quantity: 3, UnitPrice: 120}, draft.Items[1])
}

func TestParseQuotePayloadSimple(t *testing.T) {
	draft, err := ParseQuotePayload([]byte(`{"kind":"simple","clientEmail":"carl@example.com","title":"Flash","amount":90}`))
	require.NoError(t, err)
	assert.Equal(t, []DraftItem{{Description: "Flash", Quantity: 1, UnitPrice: 90}}, draft.Items)
}

func TestParseQuotePayloadInfersKind(t *testing.T) {
	draft, err := ParseQuotePayload([]byte(`{"clientEmail":"carl@example.com","title":"Flash","amount":60}`))
	require.NoError(t, err)
	require.Len(t, draft.Items, 1)
	assert.Equal(t, 60.0, draft.Items[0].UnitPrice)

	draft, err = ParseQuotePayload([]byte(`{"clientEmail":"carl@example.com","title":"Flash","items":[{"description":"Line work","quantity":2,"unitPrice":40}]}`))
	require.NoError(t, err)
	require.Len(t, draft.Items, 1)
	assert.Equal(t, "Line work", draft.Items[0].Description)
}

func TestParseQuotePayloadRejectsInvalidBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"title":`},
		{"neither items nor amount", `{"title":"Flash"}`},
		{"itemized with amount", `{"kind":"itemized","title":"Flash","amount":10,"items":[{"description":"a","quantity":1,"unitPrice":1}]}`},
		{"simple with items", `{"kind":"simple","title":"Flash","items":[{"description":"a","quantity":1,"unitPrice":1}]}`},
		{"simple without amount", `{"kind":"simple","title":"Flash"}`},
		{"unknown kind", `{"kind":"barter","title":"Flash","amount":10}`},
		{"missing title", `{"amount":10}`},
		{"zero quantity", `{"title":"Flash","items":[{"description":"a","quantity":0,"unitPrice":1}]}`},
		{"negative price", `{"title":"Flash","items":[{"description":"a","quantity":1,"unitPrice":-5}]}`},
		{"tax above 100", `{"title":"Flash","amount":10,"taxRate":120}`},
		{"bad currency", `{"title":"Flash","amount":10,"currency":"EURO"}`},
		{"negative deposit", `{"title":"Flash","amount":10,"depositAmount":-1}`},
		{"fractional cents quantity", `{"title":"Flash","items":[{"description":"a","quantity":0.333,"unitPrice":10}]}`},
		{"fractional cents price", `{"title":"Flash","items":[{"description":"a","quantity":1,"unitPrice":10.005}]}`},
		{"price too large", `{"title":"Flash","amount":100000000}`},
		{"line total too large", `{"title":"Flash","items":[{"description":"a","quantity":1000,"unitPrice":100000}]}`},
		{"total with tax too large", `{"title":"Flash","amount":99999999,"taxRate":20}`},
		{"fractional cents deposit", `{"title":"Flash","amount":10,"depositAmount":1.234}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuotePayload([]byte(tt.body))
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
