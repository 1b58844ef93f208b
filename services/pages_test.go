package services

import (
	"context"
	"testing"

	"inkdesk-backend/testutil"
	"inkdesk-backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnpublishedPageIsOnlyVisibleToOwner(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	artist := testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")

	headline := "Fine line and botanicals"
	_, err := e.pages.Update(ctx, artist.ID, UpdatePageInput{Headline: &headline, Styles: []string{"fine line", "fine line", "botanical"}})
	require.NoError(t, err)

	public, err := e.pages.GetBySlug(ctx, "ana-ink", client.ID)
	require.NoError(t, err)
	assert.Equal(t, artist.Name, public.Artist.Name)
	assert.Nil(t, public.Page)

	own, err := e.pages.GetBySlug(ctx, "ana-ink", artist.ID)
	require.NoError(t, err)
	require.NotNil(t, own.Page)
	assert.Equal(t, headline, own.Page.Headline)
	assert.Equal(t, []string{"fine line", "botanical"}, []string(own.Page.Styles))

	published := true
	_, err = e.pages.Update(ctx, artist.ID, UpdatePageInput{Published: &published})
	require.NoError(t, err)
	anonymous, err := e.pages.GetBySlug(ctx, "ana-ink", uuid.Nil)
	require.NoError(t, err)
	require.NotNil(t, anonymous.Page)
	assert.True(t, anonymous.Page.BookingOpen)

	_, err = e.pages.GetBySlug(ctx, "nobody", uuid.Nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMinePageIsCreatedOnce(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	artist := testutil.Artist(t, e.db, "Ana Ink")

	first, err := e.pages.Mine(ctx, artist.ID)
	require.NoError(t, err)
	second, err := e.pages.Mine(ctx, artist.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.Published)
}

func TestGalleryAndHeader(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	artist := testutil.Artist(t, e.db, "Ana Ink")

	page, previous, err := e.pages.SetHeader(ctx, artist.ID, "/uploads/pages/a.png")
	require.NoError(t, err)
	assert.Empty(t, previous)
	assert.Equal(t, "/uploads/pages/a.png", page.HeaderImage)
	_, previous, err = e.pages.SetHeader(ctx, artist.ID, "/uploads/pages/b.png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/pages/a.png", previous)

	page, err = e.pages.AddGalleryItems(ctx, artist.ID, []string{"/g/1.png", "/g/2.png"})
	require.NoError(t, err)
	assert.Len(t, page.Gallery, 2)

	page, err = e.pages.RemoveGalleryItem(ctx, artist.ID, "/g/1.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"/g/2.png"}, []string(page.Gallery))

	_, err = e.pages.RemoveGalleryItem(ctx, artist.ID, "/g/1.png")
	assert.ErrorIs(t, err, ErrNotFound)

	many := make([]string, maxGalleryItems)
	for i := range many {
		many[i] = uuid.NewString()
	}
	_, err = e.pages.AddGalleryItems(ctx, artist.ID, many)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListArtistsOnlyPublished(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ana := testutil.Artist(t, e.db, "Ana Ink")
	testutil.Artist(t, e.db, "Bea Needle")
	testutil.Client(t, e.db, "Carl Client")

	published := true
	_, err := e.pages.Update(ctx, ana.ID, UpdatePageInput{Published: &published})
	require.NoError(t, err)

	artists, total, err := e.pages.ListArtists(ctx, utils.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, artists, 1)
	assert.Equal(t, ana.ID, artists[0].Artist.ID)
	require.NotNil(t, artists[0].Page)
}
