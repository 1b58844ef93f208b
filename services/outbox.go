package services

import (
	"context"
	"fmt"
	"time"

	"inkdesk-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	OutboxQuoteAccepted = "quote.accepted"

	outboxBatchSize    = 50
	outboxInitialDelay = time.Minute
	outboxMaxBackoff   = time.Hour
)

// OutboxService stores follow-up work in the caller's transaction and
// retries it until it succeeds.
type OutboxService struct {
	db          *gorm.DB
	cascade     *Cascade
	logger      *zap.Logger
	maxAttempts int
	now         func() time.Time
}

func NewOutboxService(db *gorm.DB, cascade *Cascade, maxAttempts int, logger *zap.Logger) *OutboxService {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &OutboxService{db: db, cascade: cascade, logger: logger, maxAttempts: maxAttempts, now: utcNow}
}

// Enqueue records an entry inside tx. It becomes due after a short delay so
// the inline attempt can finish first.
func (s *OutboxService) Enqueue(tx *gorm.DB, kind string, aggregateID uuid.UUID) (*models.OutboxEntry, error) {
	entry := models.OutboxEntry{
		Kind:          kind,
		AggregateID:   aggregateID,
		Status:        models.OutboxPending,
		NextAttemptAt: s.now().Add(outboxInitialDelay),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", kind, err)
	}
	return &entry, nil
}

func (s *OutboxService) MarkDone(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.OutboxEntry{}).
		Where("id = ? AND status = ?", id, models.OutboxPending).
		Updates(map[string]any{"status": models.OutboxDone, "last_error": ""}).Error
}

// ProcessDue runs every pending entry whose next attempt is due and returns
// how many completed.
func (s *OutboxService) ProcessDue(ctx context.Context) (int, error) {
	var entries []models.OutboxEntry
	err := s.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.OutboxPending, s.now()).
		Order("next_attempt_at ASC").
		Limit(outboxBatchSize).
		Find(&entries).Error
	if err != nil {
		return 0, dbError(err, "outbox entry")
	}

	done := 0
	for i := range entries {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if s.process(ctx, &entries[i]) {
			done++
		}
	}
	return done, nil
}

func (s *OutboxService) process(ctx context.Context, entry *models.OutboxEntry) bool {
	handleErr := s.handle(ctx, entry)
	db := s.db.WithContext(ctx).Model(&models.OutboxEntry{}).Where("id = ?", entry.ID)

	if handleErr == nil {
		if err := db.Updates(map[string]any{"status": models.OutboxDone, "last_error": ""}).Error; err != nil {
			s.logger.Error("outbox: failed to close entry", zap.String("entryId", entry.ID.String()), zap.Error(err))
		}
		return true
	}

	attempts := entry.Attempts + 1
	updates := map[string]any{
		"attempts":        attempts,
		"last_error":      handleErr.Error(),
		"next_attempt_at": s.now().Add(backoff(attempts)),
	}
	if attempts >= s.maxAttempts {
		updates["status"] = models.OutboxFailed
		s.logger.Error("outbox: giving up",
			zap.String("entryId", entry.ID.String()),
			zap.String("kind", entry.Kind),
			zap.Int("attempts", attempts),
			zap.Error(handleErr))
	} else {
		s.logger.Warn("outbox: attempt failed",
			zap.String("entryId", entry.ID.String()),
			zap.String("kind", entry.Kind),
			zap.Int("attempts", attempts),
			zap.Error(handleErr))
	}
	if err := db.Updates(updates).Error; err != nil {
		s.logger.Error("outbox: failed to record attempt", zap.String("entryId", entry.ID.String()), zap.Error(err))
	}
	return false
}

func (s *OutboxService) handle(ctx context.Context, entry *models.OutboxEntry) error {
	switch entry.Kind {
	case OutboxQuoteAccepted:
		_, err := s.cascade.Run(ctx, entry.AggregateID)
		return err
	default:
		return fmt.Errorf("unknown outbox kind %q", entry.Kind)
	}
}

// backoff grows quadratically in minutes, capped at an hour.
func backoff(attempt int) time.Duration {
	d := time.Duration(attempt*attempt) * time.Minute
	return min(d, outboxMaxBackoff)
}
