// services/reminder_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkdesk-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Default message bodies, overridable per user with a NotificationTemplate.
var defaultTemplates = map[string]string{
	models.NotificationQuoteSent:     "Hi {client}, {artist} sent you quote {quote} for \"{title}\" ({total}). Open InkDesk to review it.",
	models.NotificationEventReminder: "Reminder: {title} at {time}.",
}

// ReminderService sends text notifications and records every attempt.
type ReminderService struct {
	db       *gorm.DB
	notifier Notifier
	events   *EventService
	logger   *zap.Logger
	now      func() time.Time
}

func NewReminderService(db *gorm.DB, notifier Notifier, events *EventService, logger *zap.Logger) *ReminderService {
	return &ReminderService{db: db, notifier: notifier, events: events, logger: logger, now: utcNow}
}

// SendEventReminders notifies the owners of events whose reminder is due.
func (s *ReminderService) SendEventReminders(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.events.DueReminders(ctx, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		event := &due[i]
		var user models.User
		if err := s.db.WithContext(ctx).First(&user, "id = ?", event.UserID).Error; err != nil {
			s.logger.Warn("reminder: owner not found", zap.String("eventId", event.ID.String()), zap.Error(err))
			continue
		}

		body := s.render(ctx, user.ID, models.NotificationEventReminder, map[string]string{
			"title": event.Title,
			"time":  event.StartsAt.Format("Mon 02 Jan 15:04 MST"),
		})
		if s.deliver(ctx, user.ID, user.Phone, models.NotificationEventReminder, body) == models.NotificationStatusSent {
			sent++
		}
		// Marked even on failure so a broken number is not retried every run.
		if err := s.events.MarkReminded(ctx, event.ID, now); err != nil {
			s.logger.Error("reminder: failed to mark event", zap.String("eventId", event.ID.String()), zap.Error(err))
		}
	}
	if len(due) > 0 {
		s.logger.Info("event reminders processed", zap.Int("due", len(due)), zap.Int("sent", sent))
	}
	return sent, nil
}

// NotifyQuoteSent texts the client that a quote is waiting. Failures are
// logged and recorded, never returned.
func (s *ReminderService) NotifyQuoteSent(ctx context.Context, q *models.Quote) {
	var people []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", []uuid.UUID{q.ArtistID, q.ClientID}).Find(&people).Error; err != nil {
		s.logger.Warn("quote notification: load users failed", zap.String("quoteId", q.ID.String()), zap.Error(err))
		return
	}
	var artist, client models.User
	for _, p := range people {
		switch p.ID {
		case q.ArtistID:
			artist = p
		case q.ClientID:
			client = p
		}
	}
	if client.ID == uuid.Nil {
		return
	}

	body := s.render(ctx, artist.ID, models.NotificationQuoteSent, map[string]string{
		"client": client.Name,
		"artist": artist.Name,
		"quote":  q.QuoteNumber,
		"title":  q.Title,
		"total":  formatMoney(q.TotalAmount, q.Currency),
	})
	s.deliver(ctx, client.ID, client.Phone, models.NotificationQuoteSent, body)
}

// render applies the owner's active template for kind, or the default.
func (s *ReminderService) render(ctx context.Context, ownerID uuid.UUID, kind string, vars map[string]string) string {
	tpl := models.NotificationTemplate{Message: defaultTemplates[kind]}
	var custom models.NotificationTemplate
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND is_active = ?", ownerID, kind, true).
		First(&custom).Error
	if err == nil {
		tpl = custom
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Warn("notification template lookup failed", zap.String("kind", kind), zap.Error(err))
	}
	return tpl.Render(vars)
}

// deliver sends body to phone and logs the outcome. It returns the logged status.
func (s *ReminderService) deliver(ctx context.Context, userID uuid.UUID, phone, kind, body string) string {
	entry := models.NotificationLog{
		UserID:    userID,
		Kind:      kind,
		Recipient: phone,
		Body:      body,
		Channel:   models.ChannelSMS,
	}

	switch {
	case phone == "":
		entry.Status = models.NotificationStatusSkipped
		entry.ErrorMessage = "no phone number"
	default:
		channel, sid, err := s.notifier.Send(ctx, phone, body)
		entry.Channel = channel
		entry.ProviderID = sid
		switch {
		case errors.Is(err, ErrNotifierDisabled):
			entry.Status = models.NotificationStatusSkipped
			entry.ErrorMessage = err.Error()
		case err != nil:
			entry.Status = models.NotificationStatusFailed
			entry.ErrorMessage = err.Error()
			s.logger.Warn("notification failed",
				zap.String("userId", userID.String()),
				zap.String("kind", kind),
				zap.Error(err))
		default:
			now := s.now()
			entry.Status = models.NotificationStatusSent
			entry.SentAt = &now
		}
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logger.Error("failed to log notification", zap.String("userId", userID.String()), zap.Error(err))
	}
	return entry.Status
}

// SetTemplate stores the user's override for a notification kind.
func (s *ReminderService) SetTemplate(ctx context.Context, userID uuid.UUID, kind, message string, active bool) (*models.NotificationTemplate, error) {
	if _, ok := defaultTemplates[kind]; !ok {
		return nil, invalidf("unknown notification kind %q", kind)
	}
	if message == "" {
		return nil, invalidf("message is required")
	}
	if len(message) > 480 {
		return nil, invalidf("message must be at most 480 characters")
	}

	db := s.db.WithContext(ctx)
	var tpl models.NotificationTemplate
	err := db.Where("user_id = ? AND kind = ?", userID, kind).First(&tpl).Error
	switch {
	case err == nil:
		tpl.Message = message
		tpl.IsActive = active
		if err := db.Save(&tpl).Error; err != nil {
			return nil, dbError(err, "template")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		tpl = models.NotificationTemplate{UserID: userID, Kind: kind, Message: message, IsActive: true}
		if err := db.Create(&tpl).Error; err != nil {
			return nil, dbError(err, "template")
		}
		if !active {
			if err := db.Model(&tpl).Update("is_active", false).Error; err != nil {
				return nil, dbError(err, "template")
			}
			tpl.IsActive = false
		}
	default:
		return nil, dbError(err, "template")
	}
	return &tpl, nil
}

// Templates returns the effective message for every notification kind.
func (s *ReminderService) Templates(ctx context.Context, userID uuid.UUID) (map[string]string, error) {
	var custom []models.NotificationTemplate
	if err := s.db.WithContext(ctx).Where("user_id = ? AND is_active = ?", userID, true).Find(&custom).Error; err != nil {
		return nil, dbError(err, "template")
	}
	out := make(map[string]string, len(defaultTemplates))
	for k, v := range defaultTemplates {
		out[k] = v
	}
	for _, t := range custom {
		out[t.Kind] = t.Message
	}
	return out, nil
}

// History lists the user's most recent notification attempts.
func (s *ReminderService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.NotificationLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var logs []models.NotificationLog
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("notification history: %w", err)
	}
	return logs, nil
}
