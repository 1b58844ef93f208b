package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkdesk-backend/config"
	"inkdesk-backend/models"
	"inkdesk-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuoteDeps wires a QuoteService.
type QuoteDeps struct {
	DB        *gorm.DB
	Users     *UserService
	Chat      *ChatService
	Cascade   *Cascade
	Outbox    *OutboxService
	Reminders *ReminderService
	Renderer  PDFRenderer
	Bus       Publisher
	Push      Broadcaster
	Logger    *zap.Logger
	Settings  config.QuoteConfig
}

// QuoteService runs the quote lifecycle: draft -> sent -> accepted | declined | expired.
type QuoteService struct {
	db        *gorm.DB
	users     *UserService
	chat      *ChatService
	cascade   *Cascade
	outbox    *OutboxService
	reminders *ReminderService
	renderer  PDFRenderer
	bus       Publisher
	push      Broadcaster
	logger    *zap.Logger
	settings  config.QuoteConfig
	now       func() time.Time
}

func NewQuoteService(d QuoteDeps) *QuoteService {
	if d.Bus == nil {
		d.Bus = NopPublisher{}
	}
	if d.Push == nil {
		d.Push = nopBroadcaster{}
	}
	return &QuoteService{
		db:        d.DB,
		users:     d.Users,
		chat:      d.Chat,
		cascade:   d.Cascade,
		outbox:    d.Outbox,
		reminders: d.Reminders,
		renderer:  d.Renderer,
		bus:       d.Bus,
		push:      d.Push,
		logger:    d.Logger,
		settings:  d.Settings,
		now:       utcNow,
	}
}

func (s *QuoteService) load(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var q models.Quote
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&q, "id = ?", id).Error
	if err != nil {
		return nil, dbError(err, "quote")
	}
	return &q, nil
}

func (s *QuoteService) applyDraft(q *models.Quote, d QuoteDraft) {
	q.Title = d.Title
	q.Description = d.Description
	q.TaxRate = d.TaxRate
	q.DepositAmount = utils.Round2(d.DepositAmount)
	q.Terms = d.Terms
	q.Notes = d.Notes
	q.EstimatedSessions = max(d.EstimatedSessions, 1)
	if d.Currency != "" {
		q.Currency = d.Currency
	}
	if q.Currency == "" {
		q.Currency = s.settings.Currency
	}
	days := d.ValidityDays
	if days == 0 {
		days = s.settings.ValidityDays
	}
	q.ValidUntil = s.now().AddDate(0, 0, days)

	q.Items = make([]models.QuoteItem, len(d.Items))
	for i, it := range d.Items {
		q.Items[i] = models.QuoteItem{
			QuoteID:     q.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
	}
	q.Recalculate()
}

// Create stores a draft quote from the artist to the referenced client.
func (s *QuoteService) Create(ctx context.Context, artistID uuid.UUID, d QuoteDraft) (*models.Quote, error) {
	artist, err := s.users.Get(ctx, artistID)
	if err != nil {
		return nil, err
	}
	if !artist.IsArtist() {
		return nil, forbiddenf("only artists can create quotes")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	client, err := s.users.ResolveClient(ctx, d.Client)
	if err != nil {
		return nil, err
	}

	var conversationID uuid.UUID
	if d.ConversationID != nil {
		conv, err := s.chat.participantConversation(ctx, artistID, *d.ConversationID)
		if err != nil {
			return nil, err
		}
		if conv.ClientID != client.ID {
			return nil, invalidf("conversation does not belong to this client")
		}
		conversationID = conv.ID
	} else {
		conv, _, err := s.chat.ensureConversation(ctx, client.ID, artist.ID)
		if err != nil {
			return nil, err
		}
		conversationID = conv.ID
	}

	q := models.Quote{
		ID:             uuid.New(),
		ArtistID:       artist.ID,
		ClientID:       client.ID,
		ConversationID: conversationID,
		Status:         models.QuoteDraft,
	}
	s.applyDraft(&q, d)
	if q.DepositAmount > q.TotalAmount {
		return nil, invalidf("deposit cannot exceed the quote total")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := nextQuoteNumber(tx, artist.ID, s.now())
		if err != nil {
			return err
		}
		q.QuoteNumber = number
		return tx.Create(&q).Error
	})
	if err != nil {
		return nil, dbError(err, "quote")
	}

	s.logger.Info("quote created",
		zap.String("quoteId", q.ID.String()),
		zap.String("quoteNumber", q.QuoteNumber),
		zap.Float64("total", q.TotalAmount))
	return &q, nil
}

// nextQuoteNumber allocates DEV-{year}{month}-{seq}; the sequence is an
// atomic per-artist, per-year counter.
func nextQuoteNumber(tx *gorm.DB, artistID uuid.UUID, now time.Time) (string, error) {
	seq := models.QuoteSequence{ArtistID: artistID, Year: now.Year(), Counter: 1}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "artist_id"}, {Name: "year"}},
		DoUpdates: clause.Assignments(map[string]any{"counter": gorm.Expr("quote_sequences.counter + 1")}),
	}).Create(&seq).Error
	if err != nil {
		return "", fmt.Errorf("allocate quote number: %w", err)
	}
	if err := tx.Where("artist_id = ? AND year = ?", artistID, now.Year()).First(&seq).Error; err != nil {
		return "", fmt.Errorf("read quote number: %w", err)
	}
	return fmt.Sprintf("DEV-%d%02d-%04d", now.Year(), int(now.Month()), seq.Counter), nil
}

// Update replaces the content of a draft quote.
func (s *QuoteService) Update(ctx context.Context, artistID, quoteID uuid.UUID, d QuoteDraft) (*models.Quote, error) {
	q, err := s.load(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if q.ArtistID != artistID {
		return nil, forbiddenf("only the quote's artist can edit it")
	}
	if q.Status != models.QuoteDraft {
		return nil, fmt.Errorf("%w: only draft quotes can be edited (quote is %s)", ErrInvalidTransition, q.Status)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	s.applyDraft(q, d)
	if q.DepositAmount > q.TotalAmount {
		return nil, invalidf("deposit cannot exceed the quote total")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quote_id = ?", q.ID).Delete(&models.QuoteItem{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Items").Save(q).Error; err != nil {
			return err
		}
		return tx.Create(&q.Items).Error
	})
	if err != nil {
		return nil, dbError(err, "quote")
	}
	return q, nil
}

// Delete removes a draft quote.
func (s *QuoteService) Delete(ctx context.Context, artistID, quoteID uuid.UUID) error {
	q, err := s.load(ctx, quoteID)
	if err != nil {
		return err
	}
	if q.ArtistID != artistID {
		return forbiddenf("only the quote's artist can delete it")
	}
	if q.Status != models.QuoteDraft {
		return fmt.Errorf("%w: only draft quotes can be deleted (quote is %s)", ErrInvalidTransition, q.Status)
	}
	res := s.db.WithContext(ctx).Where("id = ? AND status = ?", q.ID, models.QuoteDraft).Delete(&models.Quote{})
	if res.Error != nil {
		return dbError(res.Error, "quote")
	}
	if res.RowsAffected == 0 {
		return notFound("quote")
	}
	return nil
}

// Get returns a quote to one of its participants.
func (s *QuoteService) Get(ctx context.Context, userID uuid.UUID, role string, quoteID uuid.UUID) (*models.Quote, error) {
	q, err := s.load(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && q.ArtistID != userID && q.ClientID != userID {
		return nil, forbiddenf("not a participant of this quote")
	}
	return q, nil
}

type QuoteFilter struct {
	Status     string
	Pagination utils.Pagination
}

// List returns the quotes the user issued (artists) or received (clients).
func (s *QuoteService) List(ctx context.Context, userID uuid.UUID, role string, f QuoteFilter) ([]models.Quote, int64, error) {
	p := f.Pagination.Normalize()
	query := s.db.WithContext(ctx).Model(&models.Quote{})
	switch role {
	case models.RoleArtist:
		query = query.Where("artist_id = ?", userID)
	case models.RoleClient:
		query = query.Where("client_id = ?", userID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "quote")
	}
	var quotes []models.Quote
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC").
		Offset(p.Offset()).Limit(p.Limit).
		Find(&quotes).Error
	if err != nil {
		return nil, 0, dbError(err, "quote")
	}
	return quotes, total, nil
}

// Send moves a draft to sent and posts it into the conversation.
func (s *QuoteService) Send(ctx context.Context, artistID, quoteID uuid.UUID) (*models.Quote, error) {
	q, err := s.load(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if q.ArtistID != artistID {
		return nil, forbiddenf("only the quote's artist can send it")
	}
	if !models.QuoteTransitionAllowed(q.Status, models.QuoteSent) {
		return nil, transitionError("quote", q.Status, models.QuoteSent)
	}

	now := s.now()
	q.Status = models.QuoteSent
	q.SentAt = &now
	content, err := renderTemplate("quote_message.html", quoteDocument{Quote: q})
	if err != nil {
		return nil, err
	}
	msg := models.Message{
		ConversationID: q.ConversationID,
		SenderID:       q.ArtistID,
		Type:           models.MessageQuote,
		Content:        content,
		Metadata: datatypes.JSONMap{
			"quoteId":     q.ID.String(),
			"quoteNumber": q.QuoteNumber,
			"totalAmount": q.TotalAmount,
			"currency":    q.Currency,
			"validUntil":  q.ValidUntil,
		},
		CreatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Quote{}).
			Where("id = ? AND status = ?", q.ID, models.QuoteDraft).
			Updates(map[string]any{"status": models.QuoteSent, "sent_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: quote is no longer a draft", ErrInvalidTransition)
		}
		return s.chat.appendMessage(tx, &msg)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, dbError(err, "quote")
	}

	config.QuoteTransitions.WithLabelValues(models.QuoteSent).Inc()
	s.logger.Info("quote sent", zap.String("quoteId", q.ID.String()), zap.String("quoteNumber", q.QuoteNumber))
	publish(ctx, s.bus, s.logger, SubjectQuoteSent, s.domainEvent(q, ""))
	s.chat.notifyMessage(&models.Conversation{ID: q.ConversationID, ClientID: q.ClientID, ArtistID: q.ArtistID}, &msg)
	s.notifyQuote(q)
	if s.settings.NotifySMS && s.reminders != nil {
		s.reminders.NotifyQuoteSent(ctx, q)
	}
	return q, nil
}

// Accept lets the recipient accept a sent, unexpired quote and runs the
// acceptance cascade. A cascade failure leaves the quote accepted; the
// outbox retries it.
func (s *QuoteService) Accept(ctx context.Context, clientID, quoteID uuid.UUID) (*models.Quote, *models.Project, error) {
	q, err := s.load(ctx, quoteID)
	if err != nil {
		return nil, nil, err
	}
	if q.ClientID != clientID {
		return nil, nil, forbiddenf("only the quote's client can accept it")
	}
	if !models.QuoteTransitionAllowed(q.Status, models.QuoteAccepted) {
		return nil, nil, transitionError("quote", q.Status, models.QuoteAccepted)
	}

	now := s.now()
	if q.IsExpiredAt(now) {
		if err := s.expire(ctx, q); err != nil {
			s.logger.Warn("failed to mark quote expired", zap.String("quoteId", q.ID.String()), zap.Error(err))
		}
		return nil, nil, fmt.Errorf("%w: %s was valid until %s", ErrQuoteExpired, q.QuoteNumber, q.ValidUntil.Format("2006-01-02"))
	}

	var entry *models.OutboxEntry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Quote{}).
			Where("id = ? AND status = ?", q.ID, models.QuoteSent).
			Updates(map[string]any{"status": models.QuoteAccepted, "accepted_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: quote is no longer awaiting an answer", ErrInvalidTransition)
		}
		var err error
		entry, err = s.outbox.Enqueue(tx, OutboxQuoteAccepted, q.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, nil, err
		}
		return nil, nil, dbError(err, "quote")
	}
	q.Status = models.QuoteAccepted
	q.AcceptedAt = &now

	config.QuoteTransitions.WithLabelValues(models.QuoteAccepted).Inc()
	s.logger.Info("quote accepted", zap.String("quoteId", q.ID.String()), zap.String("quoteNumber", q.QuoteNumber))
	publish(ctx, s.bus, s.logger, SubjectQuoteAccepted, s.domainEvent(q, ""))

	project, cascadeErr := s.cascade.Run(ctx, q.ID)
	if cascadeErr != nil {
		s.logger.Error("acceptance cascade incomplete, outbox will retry",
			zap.String("quoteId", q.ID.String()), zap.Error(cascadeErr))
	} else if err := s.outbox.MarkDone(ctx, entry.ID); err != nil {
		s.logger.Warn("failed to close outbox entry", zap.String("entryId", entry.ID.String()), zap.Error(err))
	}
	if project != nil {
		q.ProjectID = &project.ID
	}
	s.notifyQuote(q)
	return q, project, nil
}

// Reject lets the recipient decline a sent quote with an optional reason.
func (s *QuoteService) Reject(ctx context.Context, clientID, quoteID uuid.UUID, reason string) (*models.Quote, error) {
	q, err := s.load(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if q.ClientID != clientID {
		return nil, forbiddenf("only the quote's client can decline it")
	}
	if !models.QuoteTransitionAllowed(q.Status, models.QuoteDeclined) {
		return nil, transitionError("quote", q.Status, models.QuoteDeclined)
	}

	now := s.now()
	content := fmt.Sprintf("Quote %s was declined.", q.QuoteNumber)
	if reason != "" {
		content += " Reason: " + reason
	}
	msg := models.Message{
		ConversationID: q.ConversationID,
		SenderID:       uuid.Nil,
		Type:           models.MessageSystem,
		Content:        s.chat.sanitizer.Sanitize(content),
		Metadata:       datatypes.JSONMap{"quoteId": q.ID.String(), "event": SubjectQuoteDeclined},
		CreatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Quote{}).
			Where("id = ? AND status = ?", q.ID, models.QuoteSent).
			Updates(map[string]any{"status": models.QuoteDeclined, "declined_at": now, "decline_reason": reason})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: quote is no longer awaiting an answer", ErrInvalidTransition)
		}
		return s.chat.appendMessage(tx, &msg)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, dbError(err, "quote")
	}
	q.Status = models.QuoteDeclined
	q.DeclinedAt = &now
	q.DeclineReason = reason

	config.QuoteTransitions.WithLabelValues(models.QuoteDeclined).Inc()
	s.logger.Info("quote declined", zap.String("quoteId", q.ID.String()), zap.String("quoteNumber", q.QuoteNumber))
	publish(ctx, s.bus, s.logger, SubjectQuoteDeclined, s.domainEvent(q, reason))
	s.chat.notifyMessage(&models.Conversation{ID: q.ConversationID, ClientID: q.ClientID, ArtistID: q.ArtistID}, &msg)
	s.notifyQuote(q)
	return q, nil
}

func (s *QuoteService) expire(ctx context.Context, q *models.Quote) error {
	res := s.db.WithContext(ctx).Model(&models.Quote{}).
		Where("id = ? AND status = ?", q.ID, models.QuoteSent).
		Update("status", models.QuoteExpired)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		q.Status = models.QuoteExpired
		config.QuoteTransitions.WithLabelValues(models.QuoteExpired).Inc()
		publish(ctx, s.bus, s.logger, SubjectQuoteExpired, s.domainEvent(q, ""))
	}
	return nil
}

// ExpireOverdue marks every sent quote past its validity as expired.
func (s *QuoteService) ExpireOverdue(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Quote{}).
		Where("status = ? AND valid_until < ?", models.QuoteSent, s.now()).
		Update("status", models.QuoteExpired)
	if res.Error != nil {
		return 0, dbError(res.Error, "quote")
	}
	if res.RowsAffected > 0 {
		config.QuoteTransitions.WithLabelValues(models.QuoteExpired).Add(float64(res.RowsAffected))
		s.logger.Info("expired overdue quotes", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// RenderPDF prints the quote for one of its participants.
func (s *QuoteService) RenderPDF(ctx context.Context, userID uuid.UUID, role string, quoteID uuid.UUID) (*models.Quote, []byte, error) {
	q, err := s.Get(ctx, userID, role, quoteID)
	if err != nil {
		return nil, nil, err
	}
	if s.renderer == nil {
		return nil, nil, ErrPDFUnavailable
	}
	people, err := s.users.GetMany(ctx, []uuid.UUID{q.ArtistID, q.ClientID})
	if err != nil {
		return nil, nil, err
	}
	artist, client := people[q.ArtistID], people[q.ClientID]

	html, err := QuoteHTML(q, &artist, &client)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.renderer.Render(ctx, html)
	if err != nil {
		return nil, nil, err
	}
	return q, data, nil
}

func (s *QuoteService) domainEvent(q *models.Quote, reason string) DomainEvent {
	return DomainEvent{
		QuoteID:   q.ID,
		ProjectID: q.ProjectID,
		ArtistID:  q.ArtistID,
		ClientID:  q.ClientID,
		Number:    q.QuoteNumber,
		Total:     q.TotalAmount,
		Reason:    reason,
	}
}

func (s *QuoteService) notifyQuote(q *models.Quote) {
	s.push.Broadcast([]uuid.UUID{q.ArtistID, q.ClientID}, q.ConversationID, EventQuoteUpdated, map[string]any{
		"quoteId":   q.ID,
		"status":    q.Status,
		"projectId": q.ProjectID,
	})
}
