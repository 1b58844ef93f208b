package cmd

import (
	"context"
	"errors"
	"fmt"

	"inkdesk-backend/config"
	"inkdesk-backend/realtime"
	"inkdesk-backend/routes"
	"inkdesk-backend/services"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app is the wired backend shared by the subcommands.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *gorm.DB
	deps      routes.Dependencies
	scheduler *services.Scheduler
	closers   []func() error
}

func loadBase() (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := config.ConnectDB(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	return cfg, logger, db, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, logger, db, err := loadBase()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, db: db}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	var bus services.Publisher = services.NopPublisher{}
	if cfg.NATS.URL != "" {
		nats, err := services.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			logger.Warn("nats unavailable, domain events disabled", zap.Error(err))
		} else {
			bus = nats
			a.closers = append(a.closers, nats.Close)
		}
	}

	store, err := services.NewFileStore(ctx, cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("file store: %w", err)
	}

	renderer := services.NewRodRenderer(cfg.PDF, logger)
	a.closers = append(a.closers, renderer.Close)

	hub := realtime.NewHub(logger)
	users := services.NewUserService(db, logger)
	chat := services.NewChatService(db, users, hub, logger)
	cascade := services.NewCascade(db, chat, bus, logger)
	outbox := services.NewOutboxService(db, cascade, cfg.Jobs.OutboxMaxTries, logger)
	events := services.NewEventService(db, logger)
	reminders := services.NewReminderService(db, services.NewNotifier(cfg.Twilio), events, logger)
	quotes := services.NewQuoteService(services.QuoteDeps{
		DB:        db,
		Users:     users,
		Chat:      chat,
		Cascade:   cascade,
		Outbox:    outbox,
		Reminders: reminders,
		Renderer:  renderer,
		Bus:       bus,
		Push:      hub,
		Logger:    logger,
		Settings:  cfg.Quotes,
	})

	a.scheduler = services.NewScheduler(cfg.Jobs, outbox, quotes, reminders, logger)
	a.deps = routes.Dependencies{
		Config:    cfg,
		DB:        db,
		Logger:    logger,
		Users:     users,
		Pages:     services.NewPageService(db, users, logger),
		Chat:      chat,
		Quotes:    quotes,
		Clients:   services.NewClientService(db, logger),
		Projects:  services.NewProjectService(db, logger),
		Events:    events,
		Reminders: reminders,
		Store:     store,
		Hub:       hub,
	}
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
