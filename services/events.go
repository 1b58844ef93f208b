package services

import (
	"context"
	"strings"
	"time"

	"inkdesk-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxReminderMinutes = 24 * 60

type EventService struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewEventService(db *gorm.DB, logger *zap.Logger) *EventService {
	return &EventService{db: db, logger: logger, now: utcNow}
}

// List returns the user's events overlapping [from, to). Zero bounds are open.
func (s *EventService) List(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Event, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if !to.IsZero() {
		query = query.Where("starts_at < ?", to.UTC())
	}
	if !from.IsZero() {
		query = query.Where("ends_at > ?", from.UTC())
	}
	var events []models.Event
	if err := query.Order("starts_at ASC").Find(&events).Error; err != nil {
		return nil, dbError(err, "event")
	}
	return events, nil
}

type EventInput struct {
	Title           *string
	Description     *string
	Location        *string
	StartsAt        *time.Time
	EndsAt          *time.Time
	AllDay          *bool
	Color           *string
	ReminderMinutes *int
}

func (in EventInput) apply(e *models.Event) {
	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Location != nil {
		e.Location = *in.Location
	}
	if in.StartsAt != nil {
		e.StartsAt = in.StartsAt.UTC()
	}
	if in.EndsAt != nil {
		e.EndsAt = in.EndsAt.UTC()
	}
	if in.AllDay != nil {
		e.AllDay = *in.AllDay
	}
	if in.Color != nil {
		e.Color = *in.Color
	}
	if in.ReminderMinutes != nil && *in.ReminderMinutes != e.ReminderMinutes {
		e.ReminderMinutes = *in.ReminderMinutes
		e.ReminderSentAt = nil
	}
}

func validateEvent(e *models.Event) error {
	if e.Title == "" {
		return invalidf("title is required")
	}
	if e.StartsAt.IsZero() {
		return invalidf("startsAt is required")
	}
	if e.EndsAt.Before(e.StartsAt) {
		return invalidf("endsAt must not be before startsAt")
	}
	if e.ReminderMinutes < 0 || e.ReminderMinutes > maxReminderMinutes {
		return invalidf("reminderMinutes must be between 0 and %d", maxReminderMinutes)
	}
	return nil
}

func (s *EventService) Create(ctx context.Context, userID uuid.UUID, in EventInput) (*models.Event, error) {
	event := models.Event{UserID: userID}
	in.apply(&event)
	if event.EndsAt.IsZero() && !event.StartsAt.IsZero() {
		event.EndsAt = event.StartsAt.Add(time.Hour)
	}
	if err := validateEvent(&event); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, dbError(err, "event")
	}
	return &event, nil
}

func (s *EventService) owned(ctx context.Context, userID, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := s.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&event).Error; err != nil {
		return nil, dbError(err, "event")
	}
	return &event, nil
}

func (s *EventService) Update(ctx context.Context, userID, id uuid.UUID, in EventInput) (*models.Event, error) {
	event, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	in.apply(event)
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(event).Error; err != nil {
		return nil, dbError(err, "event")
	}
	return event, nil
}

func (s *EventService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&models.Event{})
	if res.Error != nil {
		return dbError(res.Error, "event")
	}
	if res.RowsAffected == 0 {
		return notFound("event")
	}
	return nil
}

// DueReminders returns events whose reminder should go out at now.
func (s *EventService) DueReminders(ctx context.Context, now time.Time) ([]models.Event, error) {
	var candidates []models.Event
	err := s.db.WithContext(ctx).
		Where("reminder_minutes > 0 AND reminder_sent_at IS NULL AND starts_at > ? AND starts_at <= ?",
			now, now.Add(maxReminderMinutes*time.Minute)).
		Order("starts_at ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, dbError(err, "event")
	}
	due := candidates[:0]
	for _, e := range candidates {
		if e.ReminderDue(now) {
			due = append(due, e)
		}
	}
	return due, nil
}

func (s *EventService) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", at).Error
}
