package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkdesk-backend/config"
	"inkdesk-backend/models"
	"inkdesk-backend/routes"
	"inkdesk-backend/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const seedPassword = "inkdesk-demo"

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo accounts, a public page and a sent quote",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			if err := config.Migrate(ctx, a.db); err != nil {
				return err
			}
			return seed(ctx, a.deps)
		},
	}
}

// seed is idempotent on accounts; quotes and events are added on every run.
func seed(ctx context.Context, d routes.Dependencies) error {
	artist, err := seedUser(ctx, d.Users, services.RegisterInput{
		Email:     "artist@inkdesk.local",
		Password:  seedPassword,
		Name:      "Mara Blackwell",
		Role:      models.RoleArtist,
		Specialty: "fine line",
		Instagram: "mara.ink",
	})
	if err != nil {
		return err
	}
	client, err := seedUser(ctx, d.Users, services.RegisterInput{
		Email:    "client@inkdesk.local",
		Password: seedPassword,
		Name:     "Jules Moreau",
		Phone:    "+33612345678",
		Role:     models.RoleClient,
	})
	if err != nil {
		return err
	}

	headline, about, published := "Fine line and botanical work", "Private studio, by appointment.", true
	if _, err := d.Pages.Update(ctx, artist.ID, services.UpdatePageInput{
		Headline:  &headline,
		About:     &about,
		Styles:    []string{"fine line", "botanical", "blackwork"},
		Published: &published,
	}); err != nil {
		return fmt.Errorf("seed page: %w", err)
	}

	conv, _, err := d.Chat.GetOrCreateConversation(ctx, client.ID, artist.ID.String(), &services.ProjectRequest{
		BodyZone:    "forearm",
		Style:       "botanical",
		Size:        "15cm",
		Budget:      "300",
		Description: "A sprig of lavender wrapping the forearm.",
	})
	if err != nil {
		return fmt.Errorf("seed conversation: %w", err)
	}

	quote, err := d.Quotes.Create(ctx, artist.ID, services.QuoteDraft{
		Client:         services.ClientRef{ID: &client.ID},
		ConversationID: &conv.ID,
		Title:          "Lavender forearm piece",
		Items: []services.DraftItem{
			{Description: "Design", Quantity: 1, UnitPrice: 80},
			{Description: "Session (3h)", Quantity: 1, UnitPrice: 240},
		},
		TaxRate:           20,
		DepositAmount:     100,
		EstimatedSessions: 1,
	})
	if err != nil {
		return fmt.Errorf("seed quote: %w", err)
	}
	if _, err := d.Quotes.Send(ctx, artist.ID, quote.ID); err != nil {
		return fmt.Errorf("seed send quote: %w", err)
	}

	title, reminder := "Consultation with Jules", 60
	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	if _, err := d.Events.Create(ctx, artist.ID, services.EventInput{
		Title:           &title,
		StartsAt:        &start,
		ReminderMinutes: &reminder,
	}); err != nil {
		return fmt.Errorf("seed event: %w", err)
	}

	d.Logger.Info("demo data seeded",
		zap.String("artist", artist.Email),
		zap.String("client", client.Email),
		zap.String("quote", quote.QuoteNumber))
	return nil
}

func seedUser(ctx context.Context, users *services.UserService, in services.RegisterInput) (*models.User, error) {
	user, err := users.Register(ctx, in)
	if errors.Is(err, services.ErrConflict) {
		user, err = users.Authenticate(ctx, in.Email, in.Password)
	}
	if err != nil {
		return nil, fmt.Errorf("seed user %s: %w", in.Email, err)
	}
	return user, nil
}
