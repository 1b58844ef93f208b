package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkdesk-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cascade performs the follow-up of an accepted quote: project creation,
// client profile upsert and the announcement message. Every step is guarded
// so running it again after a partial failure completes the missing steps
// without duplicating the others.
type Cascade struct {
	db     *gorm.DB
	chat   *ChatService
	bus    Publisher
	logger *zap.Logger
	now    func() time.Time
}

func NewCascade(db *gorm.DB, chat *ChatService, bus Publisher, logger *zap.Logger) *Cascade {
	if bus == nil {
		bus = NopPublisher{}
	}
	return &Cascade{db: db, chat: chat, bus: bus, logger: logger, now: utcNow}
}

// Run executes the cascade for an accepted quote and returns its project.
// The project is returned even when a later step failed.
func (c *Cascade) Run(ctx context.Context, quoteID uuid.UUID) (*models.Project, error) {
	var quote models.Quote
	if err := c.db.WithContext(ctx).First(&quote, "id = ?", quoteID).Error; err != nil {
		return nil, dbError(err, "quote")
	}
	if quote.Status != models.QuoteAccepted {
		return nil, fmt.Errorf("%w: cascade needs an accepted quote, %s is %s", ErrInvalidTransition, quote.QuoteNumber, quote.Status)
	}

	project, err := c.ensureProject(ctx, &quote)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	var errs []error
	if err := c.linkClientProfile(ctx, &quote, project); err != nil {
		c.logger.Error("cascade: client profile step failed",
			zap.String("quoteId", quote.ID.String()), zap.Error(err))
		errs = append(errs, fmt.Errorf("client profile: %w", err))
	}
	if err := c.announce(ctx, &quote, project); err != nil {
		c.logger.Error("cascade: announcement step failed",
			zap.String("quoteId", quote.ID.String()), zap.Error(err))
		errs = append(errs, fmt.Errorf("announce project: %w", err))
	}
	return project, errors.Join(errs...)
}

// ensureProject looks the project up by quote and creates it when missing.
// The unique quote_id index settles concurrent runs.
func (c *Cascade) ensureProject(ctx context.Context, quote *models.Quote) (*models.Project, error) {
	db := c.db.WithContext(ctx)

	var project models.Project
	err := db.Unscoped().Where("quote_id = ?", quote.ID).First(&project).Error
	if err == nil {
		return &project, c.linkQuote(ctx, quote, &project)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	title := quote.Title
	if title == "" {
		title = "Project " + quote.QuoteNumber
	}
	project = models.Project{
		QuoteID:        quote.ID,
		ArtistID:       quote.ArtistID,
		ClientID:       quote.ClientID,
		ConversationID: quote.ConversationID,
		Title:          title,
		Description:    quote.Description,
		Style:          models.ProjectPlaceholder,
		BodyZone:       models.ProjectPlaceholder,
		Size:           models.ProjectPlaceholder,
		Status:         models.ProjectPending,
		TotalAmount:    quote.TotalAmount,
	}
	res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "quote_id"}}, DoNothing: true}).Create(&project)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if err := db.Unscoped().Where("quote_id = ?", quote.ID).First(&project).Error; err != nil {
			return nil, err
		}
	} else {
		c.logger.Info("project created from quote",
			zap.String("projectId", project.ID.String()),
			zap.String("quoteId", quote.ID.String()))
		publish(ctx, c.bus, c.logger, SubjectProjectCreated, DomainEvent{
			QuoteID:   quote.ID,
			ProjectID: &project.ID,
			ArtistID:  quote.ArtistID,
			ClientID:  quote.ClientID,
			Number:    quote.QuoteNumber,
			Total:     quote.TotalAmount,
		})
	}
	return &project, c.linkQuote(ctx, quote, &project)
}

func (c *Cascade) linkQuote(ctx context.Context, quote *models.Quote, project *models.Project) error {
	if quote.ProjectID != nil {
		return nil
	}
	err := c.db.WithContext(ctx).Model(&models.Quote{}).
		Where("id = ? AND project_id IS NULL", quote.ID).
		Update("project_id", project.ID).Error
	if err != nil {
		return err
	}
	quote.ProjectID = &project.ID
	return nil
}

// linkClientProfile attaches the project to the artist's profile of the
// client and counts it once. The stats increment is guarded by the project
// not being linked yet.
func (c *Cascade) linkClientProfile(ctx context.Context, quote *models.Quote, project *models.Project) error {
	if project.ClientProfileID != nil {
		return nil
	}
	now := c.now()
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client models.User
		if err := tx.Unscoped().First(&client, "id = ?", quote.ClientID).Error; err != nil {
			return err
		}
		profile, err := findOrCreateProfile(tx, quote.ArtistID, &client, models.SourceQuote)
		if err != nil {
			return err
		}

		res := tx.Model(&models.Project{}).
			Where("id = ? AND client_profile_id IS NULL", project.ID).
			Update("client_profile_id", profile.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		project.ClientProfileID = &profile.ID

		return tx.Model(&models.ClientProfile{}).Where("id = ?", profile.ID).Updates(map[string]any{
			"total_projects": gorm.Expr("total_projects + ?", 1),
			"total_revenue":  gorm.Expr("total_revenue + ?", quote.TotalAmount),
			"last_contact":   now,
			"status":         models.ClientActive,
		}).Error
	})
}

// findOrCreateProfile returns the artist's profile of the client, restoring
// a soft-deleted one.
func findOrCreateProfile(tx *gorm.DB, artistID uuid.UUID, client *models.User, source string) (*models.ClientProfile, error) {
	var profile models.ClientProfile
	err := tx.Unscoped().Where("artist_id = ? AND client_id = ?", artistID, client.ID).First(&profile).Error
	switch {
	case err == nil:
		if profile.DeletedAt.Valid {
			if err := tx.Unscoped().Model(&profile).Update("deleted_at", nil).Error; err != nil {
				return nil, err
			}
			profile.DeletedAt = gorm.DeletedAt{}
		}
		return &profile, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	clientID := client.ID
	profile = models.ClientProfile{
		ArtistID: artistID,
		ClientID: &clientID,
		Name:     client.Name,
		Email:    client.Email,
		Phone:    client.Phone,
		Tags:     []string{},
		Source:   source,
		Status:   models.ClientProspect,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "artist_id"}, {Name: "client_id"}},
		DoNothing: true,
	}).Create(&profile)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if err := tx.Where("artist_id = ? AND client_id = ?", artistID, client.ID).First(&profile).Error; err != nil {
			return nil, err
		}
	}
	return &profile, nil
}

// announce posts the project message once, guarded by announced_at.
func (c *Cascade) announce(ctx context.Context, quote *models.Quote, project *models.Project) error {
	if project.AnnouncedAt != nil {
		return nil
	}
	now := c.now()
	content, err := renderTemplate("project_created.html", struct {
		Quote   *models.Quote
		Project *models.Project
	}{quote, project})
	if err != nil {
		return err
	}
	msg := models.Message{
		ConversationID: quote.ConversationID,
		SenderID:       uuid.Nil,
		Type:           models.MessageProject,
		Content:        content,
		Metadata: datatypes.JSONMap{
			"event":     SubjectProjectCreated,
			"projectId": project.ID.String(),
			"quoteId":   quote.ID.String(),
		},
		CreatedAt: now,
	}

	posted := false
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Project{}).
			Where("id = ? AND announced_at IS NULL", project.ID).
			Update("announced_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		posted = true
		return c.chat.appendMessage(tx, &msg)
	})
	if err != nil {
		return err
	}
	if posted {
		project.AnnouncedAt = &now
		c.chat.notifyMessage(&models.Conversation{
			ID:       quote.ConversationID,
			ClientID: quote.ClientID,
			ArtistID: quote.ArtistID,
		}, &msg)
	}
	return nil
}
