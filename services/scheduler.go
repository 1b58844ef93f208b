package services

import (
	"context"
	"fmt"
	"time"

	"inkdesk-backend/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 2 * time.Minute

// Scheduler runs the housekeeping jobs on cron specs.
type Scheduler struct {
	cron      *cron.Cron
	cfg       config.JobsConfig
	outbox    *OutboxService
	quotes    *QuoteService
	reminders *ReminderService
	logger    *zap.Logger
}

func NewScheduler(cfg config.JobsConfig, outbox *OutboxService, quotes *QuoteService, reminders *ReminderService, logger *zap.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		cfg:       cfg,
		outbox:    outbox,
		quotes:    quotes,
		reminders: reminders,
		logger:    logger,
	}
}

type job struct {
	name string
	spec string
	run  func(ctx context.Context) error
}

func (s *Scheduler) jobs() []job {
	return []job{
		{"outbox", s.cfg.OutboxSpec, func(ctx context.Context) error {
			_, err := s.outbox.ProcessDue(ctx)
			return err
		}},
		{"quote-expiry", s.cfg.ExpirySpec, func(ctx context.Context) error {
			_, err := s.quotes.ExpireOverdue(ctx)
			return err
		}},
		{"event-reminders", s.cfg.RemindersSpec, func(ctx context.Context) error {
			_, err := s.reminders.SendEventReminders(ctx)
			return err
		}},
	}
}

func (s *Scheduler) Start() error {
	for _, j := range s.jobs() {
		if j.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(j.spec, s.wrap(j)); err != nil {
			return fmt.Errorf("schedule %s: %w", j.name, err)
		}
		s.logger.Info("job scheduled", zap.String("job", j.name), zap.String("spec", j.spec))
	}
	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) wrap(j job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := j.run(ctx); err != nil {
			config.JobRuns.WithLabelValues(j.name, "error").Inc()
			s.logger.Error("job failed", zap.String("job", j.name), zap.Error(err))
			return
		}
		config.JobRuns.WithLabelValues(j.name, "ok").Inc()
		s.logger.Debug("job finished", zap.String("job", j.name), zap.Duration("took", time.Since(start)))
	}
}
