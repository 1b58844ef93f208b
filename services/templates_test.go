package services

import (
	"testing"
	"time"

	"inkdesk-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteHTML(t *testing.T) {
	q := &models.Quote{
		QuoteNumber: "DEV-202503-0007",
		Title:       "Koi <sleeve>",
		Currency:    "EUR",
		TaxRate:     20,
		ValidUntil:  time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC),
		Items: []models.QuoteItem{
			{Description: "Design", Quantity: 1, UnitPrice: 200},
			{Description: "Session", Quantity: 2.5, UnitPrice: 100},
		},
	}
	q.Recalculate()
	artist := &models.User{Name: "Ana Ink", Email: "ana@example.com"}
	client := &models.User{Name: "Carl Client"}

	html, err := QuoteHTML(q, artist, client)
	require.NoError(t, err)
	assert.Contains(t, html, "DEV-202503-0007")
	assert.Contains(t, html, "Ana Ink")
	assert.Contains(t, html, "Carl Client")
	assert.Contains(t, html, "540.00 EUR")
	assert.Contains(t, html, "2.5")
	assert.Contains(t, html, "2025-04-30")
	assert.Contains(t, html, "Koi &lt;sleeve&gt;")
}

func TestProjectRequestTemplateEscapes(t *testing.T) {
	out, err := renderTemplate("project_request.html", &ProjectRequest{
		BodyZone:    "forearm",
		Description: `<img src=x onerror="alert(1)">`,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "forearm")
	assert.NotContains(t, out, "<img")
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "1234.50 EUR", formatMoney(1234.5, "EUR"))
	assert.Equal(t, "0.00 USD", formatMoney(0, "USD"))
}
