package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("+33 6 12 34 56 78"))
	assert.True(t, ValidatePhone("(555) 123-4567"))
	assert.False(t, ValidatePhone("call me"))
	assert.False(t, ValidatePhone("+0123"))
	assert.True(t, IsE164("+33612345678"))
	assert.False(t, IsE164("0612345678"))
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Zoé Noël":          "zoe-noel",
		"  Black & Grey  ":  "black-grey",
		"Ink---Master 2000": "ink-master-2000",
		"!!!":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
	assert.True(t, ValidSlug("zoe-noel"))
	assert.False(t, ValidSlug("Zoe Noel"))
	assert.False(t, ValidSlug("ab"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@example.com", NormalizeEmail("  Ana@Example.COM "))
}

func TestDateHelpers(t *testing.T) {
	now := time.Date(2026, 8, 17, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), BeginningOfMonth(now))
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), BeginningOfQuarter(now))
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), BeginningOfYear(now))
	assert.Equal(t, "Today", RelativeDay(now.Add(-time.Hour), now))
	assert.Equal(t, "Yesterday", RelativeDay(now.AddDate(0, 0, -1), now))
	assert.Equal(t, "5 days ago", RelativeDay(now.AddDate(0, 0, -5), now))
}

func TestPagination(t *testing.T) {
	p := NewPagination("3", "500")
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, MaxPageSize, p.Limit)
	assert.Equal(t, 200, p.Offset())

	p = NewPagination("x", "-1")
	assert.Equal(t, Pagination{Page: 1, Limit: DefaultPageSize}, p)

	meta := Pagination{Page: 1, Limit: 20}.Meta(41)
	assert.EqualValues(t, 3, meta.TotalPages)

	assert.Equal(t, Pagination{Page: 1, Limit: DefaultPageSize}, Pagination{}.Normalize())
}
