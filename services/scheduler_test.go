package services

import (
	"testing"
	"time"

	"inkdesk-backend/config"
	"inkdesk-backend/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSchedulerRejectsBadSpec(t *testing.T) {
	e := newTestEnv(t)
	s := NewScheduler(config.JobsConfig{OutboxSpec: "every now and then"}, e.outbox, e.quotes, e.reminders, zap.NewNop())
	assert.Error(t, s.Start())
}

func TestSchedulerJobsRunServices(t *testing.T) {
	e := newTestEnv(t)
	start := time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)
	e.setNow(start)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	q := e.sentQuote(t, artist, client)
	e.setNow(q.ValidUntil.Add(time.Hour))

	s := NewScheduler(config.JobsConfig{ExpirySpec: "@every 1h"}, e.outbox, e.quotes, e.reminders, zap.NewNop())
	for _, j := range s.jobs() {
		if j.name == "quote-expiry" {
			s.wrap(j)()
		}
	}

	stored, err := e.quotes.Get(t.Context(), artist.ID, "tattoo_artist", q.ID)
	require.NoError(t, err)
	assert.Equal(t, "expired", stored.Status)
}

func TestSchedulerRecoversPanicsIntoLogger(t *testing.T) {
	e := newTestEnv(t)
	core, logs := observer.New(zap.InfoLevel)
	s := NewScheduler(config.JobsConfig{}, e.outbox, e.quotes, e.reminders, zap.New(core))

	id, err := s.cron.AddFunc("@every 1h", func() { panic("boom") })
	require.NoError(t, err)
	assert.NotPanics(t, func() { s.cron.Entry(id).WrappedJob.Run() })

	panics := logs.FilterMessageSnippet("boom").All()
	require.NotEmpty(t, panics)
	assert.Equal(t, "cron", panics[0].LoggerName)
}
