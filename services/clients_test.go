package services

import (
	"context"
	"testing"
	"time"

	"inkdesk-backend/models"
	"inkdesk-backend/testutil"
	"inkdesk-backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateClientLinksExistingAccount(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	ctx := context.Background()

	profile, err := e.clients.Create(ctx, artist.ID, CreateClientInput{
		Name:  "Carl",
		Email: " Carl.Client@Example.com ",
		Tags:  []string{"regular", " regular ", "", "fine line"},
	})
	require.NoError(t, err)
	require.NotNil(t, profile.ClientID)
	assert.Equal(t, client.ID, *profile.ClientID)
	assert.Equal(t, "carl.client@example.com", profile.Email)
	assert.Equal(t, models.ClientProspect, profile.Status)
	assert.Equal(t, models.SourceManual, profile.Source)
	assert.Equal(t, []string{"regular", "fine line"}, []string(profile.Tags))

	_, err = e.clients.Create(ctx, artist.ID, CreateClientInput{Name: "Again", Email: "carl.client@example.com"})
	assert.ErrorIs(t, err, ErrConflict)

	walkIn, err := e.clients.Create(ctx, artist.ID, CreateClientInput{Name: "Walk In", Source: models.SourceWalkIn})
	require.NoError(t, err)
	assert.Nil(t, walkIn.ClientID)
}

func TestCreateClientValidation(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	ctx := context.Background()

	for name, in := range map[string]CreateClientInput{
		"missing name": {Name: "  "},
		"bad status":   {Name: "Zed", Status: "vip"},
		"bad source":   {Name: "Zed", Source: "flyer"},
		"bad phone":    {Name: "Zed", Phone: "call me"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := e.clients.Create(ctx, artist.ID, in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestClientsAreScopedToTheArtist(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	other := testutil.Artist(t, e.db, "Bea Needle")
	ctx := context.Background()

	profile, err := e.clients.Create(ctx, artist.ID, CreateClientInput{Name: "Zed"})
	require.NoError(t, err)

	_, err = e.clients.Get(ctx, other.ID, profile.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, e.clients.Delete(ctx, other.ID, profile.ID), ErrNotFound)

	list, total, err := e.clients.List(ctx, other.ID, ClientFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestListClientsFiltersAndSearches(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	ctx := context.Background()

	for _, in := range []CreateClientInput{
		{Name: "Zoe Black", Email: "zoe@example.com", Status: models.ClientActive},
		{Name: "Yann White", Email: "yann@example.com"},
		{Name: "Xavier Grey", Phone: "+33611111111", Status: models.ClientActive},
	} {
		_, err := e.clients.Create(ctx, artist.ID, in)
		require.NoError(t, err)
	}

	active, total, err := e.clients.List(ctx, artist.ID, ClientFilter{Status: models.ClientActive})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, active, 2)

	found, total, err := e.clients.List(ctx, artist.ID, ClientFilter{Search: "ZOE"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, found, 1)
	assert.Equal(t, "Zoe Black", found[0].Name)

	page, total, err := e.clients.List(ctx, artist.ID, ClientFilter{Pagination: utils.Pagination{Page: 2, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 1)
}

func TestUpdateClientTouchesLastContact(t *testing.T) {
	e := newTestEnv(t)
	now := time.Date(2025, time.July, 4, 9, 30, 0, 0, time.UTC)
	e.setNow(now)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	ctx := context.Background()

	profile, err := e.clients.Create(ctx, artist.ID, CreateClientInput{Name: "Zed"})
	require.NoError(t, err)

	notes := "allergic to red ink"
	status := models.ClientInactive
	updated, err := e.clients.Update(ctx, artist.ID, profile.ID, UpdateClientInput{SkinNotes: &notes, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.SkinNotes)
	assert.Equal(t, models.ClientInactive, updated.Status)
	require.NotNil(t, updated.LastContact)
	assert.True(t, updated.LastContact.Equal(now))

	bad := "gold"
	_, err = e.clients.Update(ctx, artist.ID, profile.ID, UpdateClientInput{Status: &bad})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClientStatsAndDetail(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	ctx := context.Background()

	q := e.sentQuote(t, artist, client)
	_, project, err := e.quotes.Accept(ctx, client.ID, q.ID)
	require.NoError(t, err)
	_, err = e.clients.Create(ctx, artist.ID, CreateClientInput{Name: "Walk In", Source: models.SourceWalkIn})
	require.NoError(t, err)

	stats, err := e.clients.Stats(ctx, artist.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[models.ClientActive])
	assert.Equal(t, int64(1), stats.ByStatus[models.ClientProspect])
	assert.Zero(t, stats.ByStatus[models.ClientInactive])
	assert.Equal(t, 275.0, stats.TotalRevenue)
	assert.Equal(t, 137.5, stats.AverageRevenue)

	require.NotNil(t, project.ClientProfileID)
	detail, err := e.clients.Get(ctx, artist.ID, *project.ClientProfileID)
	require.NoError(t, err)
	require.Len(t, detail.Projects, 1)
	assert.Equal(t, project.ID, detail.Projects[0].ID)
}

func TestCascadeRestoresDeletedProfile(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	ctx := context.Background()

	profile, err := e.clients.Create(ctx, artist.ID, CreateClientInput{Name: "Carl", Email: client.Email})
	require.NoError(t, err)
	require.NoError(t, e.clients.Delete(ctx, artist.ID, profile.ID))

	q := e.sentQuote(t, artist, client)
	_, project, err := e.quotes.Accept(ctx, client.ID, q.ID)
	require.NoError(t, err)
	require.NotNil(t, project.ClientProfileID)
	assert.Equal(t, profile.ID, *project.ClientProfileID)

	restored, err := e.clients.Get(ctx, artist.ID, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.TotalProjects)
	assert.Equal(t, models.ClientActive, restored.Status)
}
