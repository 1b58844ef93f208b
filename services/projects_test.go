package services

import (
	"context"
	"testing"
	"time"

	"inkdesk-backend/models"
	"inkdesk-backend/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// acceptedProject runs the sample quote through acceptance.
func (e *testEnv) acceptedProject(t *testing.T, artist, client *models.User) *models.Project {
	t.Helper()
	q := e.sentQuote(t, artist, client)
	_, project, err := e.quotes.Accept(context.Background(), client.ID, q.ID)
	require.NoError(t, err)
	require.NotNil(t, project)
	return project
}

func TestProjectStatusMovesForward(t *testing.T) {
	e := newTestEnv(t)
	now := time.Date(2025, time.August, 1, 12, 0, 0, 0, time.UTC)
	e.setNow(now)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	project := e.acceptedProject(t, artist, client)
	ctx := context.Background()

	title := "Rose and dagger"
	design := models.ProjectDesignPhase
	updated, err := e.projects.Update(ctx, artist.ID, project.ID, UpdateProjectInput{Title: &title, Status: &design})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, models.ProjectDesignPhase, updated.Status)

	back := models.ProjectPending
	_, err = e.projects.Update(ctx, artist.ID, project.ID, UpdateProjectInput{Status: &back})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done := models.ProjectCompleted
	_, err = e.projects.Update(ctx, artist.ID, project.ID, UpdateProjectInput{Status: &done})
	assert.ErrorIs(t, err, ErrInvalidTransition, "completion needs in_progress")

	for _, status := range []string{models.ProjectScheduled, models.ProjectInProgress, models.ProjectCompleted} {
		updated, err = e.projects.Update(ctx, artist.ID, project.ID, UpdateProjectInput{Status: &status})
		require.NoError(t, err)
	}
	assert.Equal(t, models.ProjectCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)
	assert.True(t, updated.CompletedAt.Equal(now))
}

func TestProjectUpdateValidation(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	other := testutil.Artist(t, e.db, "Bea Needle")
	client := testutil.Client(t, e.db, "Carl Client")
	project := e.acceptedProject(t, artist, client)
	ctx := context.Background()

	empty := "  "
	_, err := e.projects.Update(ctx, artist.ID, project.ID, UpdateProjectInput{Title: &empty})
	assert.ErrorIs(t, err, ErrValidation)

	tooMuch := 1000.0
	_, err = e.projects.Update(ctx, artist.ID, project.ID, UpdateProjectInput{DepositPaid: &tooMuch})
	assert.ErrorIs(t, err, ErrValidation)

	deposit := 80.0
	updated, err := e.projects.Update(ctx, artist.ID, project.ID, UpdateProjectInput{DepositPaid: &deposit})
	require.NoError(t, err)
	assert.Equal(t, 80.0, updated.DepositPaid)

	_, err = e.projects.Update(ctx, other.ID, project.ID, UpdateProjectInput{DepositPaid: &deposit})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.projects.Get(ctx, client.ID, models.RoleClient, project.ID)
	require.NoError(t, err)
	_, err = e.projects.Get(ctx, other.ID, models.RoleArtist, project.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSessionsScheduleTheProject(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	project := e.acceptedProject(t, artist, client)
	ctx := context.Background()
	when := time.Date(2025, time.September, 10, 14, 0, 0, 0, time.UTC)

	_, err := e.projects.AddSession(ctx, artist.ID, project.ID, SessionInput{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.projects.AddSession(ctx, artist.ID, project.ID, SessionInput{ScheduledAt: when, DurationMinutes: 5})
	assert.ErrorIs(t, err, ErrValidation)

	session, err := e.projects.AddSession(ctx, artist.ID, project.ID, SessionInput{ScheduledAt: when, Notes: "outline"})
	require.NoError(t, err)
	assert.Equal(t, 60, session.DurationMinutes)
	assert.Equal(t, models.SessionPlanned, session.Status)

	reloaded, err := e.projects.Get(ctx, artist.ID, models.RoleArtist, project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectScheduled, reloaded.Status)
	require.Len(t, reloaded.Sessions, 1)

	done, err := e.projects.UpdateSessionStatus(ctx, artist.ID, project.ID, session.ID, models.SessionDone)
	require.NoError(t, err)
	assert.Equal(t, models.SessionDone, done.Status)

	_, err = e.projects.UpdateSessionStatus(ctx, artist.ID, project.ID, session.ID, "skipped")
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, e.projects.RemoveSession(ctx, artist.ID, project.ID, session.ID))
	assert.ErrorIs(t, e.projects.RemoveSession(ctx, artist.ID, project.ID, session.ID), ErrNotFound)
}

func TestListProjectsWithStats(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	other := testutil.Client(t, e.db, "Dana Doe")
	first := e.acceptedProject(t, artist, client)
	e.acceptedProject(t, artist, other)
	ctx := context.Background()

	cancelled := models.ProjectCancelled
	_, err := e.projects.Update(ctx, artist.ID, first.ID, UpdateProjectInput{Status: &cancelled})
	require.NoError(t, err)

	list, err := e.projects.List(ctx, artist.ID, models.RoleArtist, ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, list.Projects, 2)
	assert.Equal(t, int64(2), list.Meta.Total)
	assert.ElementsMatch(t, []ProjectStatusStat{
		{Status: models.ProjectPending, Count: 1, Revenue: 275},
		{Status: models.ProjectCancelled, Count: 1, Revenue: 275},
	}, list.Stats)

	pending, err := e.projects.List(ctx, artist.ID, models.RoleArtist, ProjectFilter{Status: models.ProjectPending})
	require.NoError(t, err)
	assert.Len(t, pending.Projects, 1)
	assert.Len(t, pending.Stats, 2, "stats ignore the status filter")

	mine, err := e.projects.List(ctx, client.ID, models.RoleClient, ProjectFilter{})
	require.NoError(t, err)
	require.Len(t, mine.Projects, 1)
	assert.Equal(t, first.ID, mine.Projects[0].ID)
}

func TestDeleteProjectUpdatesClientStats(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	project := e.acceptedProject(t, artist, client)
	ctx := context.Background()

	require.NoError(t, e.projects.Delete(ctx, artist.ID, project.ID))
	_, err := e.projects.Get(ctx, artist.ID, models.RoleArtist, project.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var profile models.ClientProfile
	require.NoError(t, e.db.First(&profile, "id = ?", *project.ClientProfileID).Error)
	assert.Zero(t, profile.TotalProjects)
	assert.Zero(t, profile.TotalRevenue)
}
