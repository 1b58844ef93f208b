package services

import (
	"context"
	"errors"
	"strings"

	"inkdesk-backend/config"
	"inkdesk-backend/models"
	"inkdesk-backend/utils"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrNotifierDisabled is returned when no messaging provider is configured.
var ErrNotifierDisabled = errors.New("notifier disabled")

// Notifier delivers a short text message and reports the channel used and
// the provider message id.
type Notifier interface {
	Send(ctx context.Context, to, body string) (channel, providerID string, err error)
}

type TwilioNotifier struct {
	client       *twilio.RestClient
	from         string
	whatsappFrom string
}

// NewNotifier returns a Twilio notifier, or a disabled one when credentials are missing.
func NewNotifier(cfg config.TwilioConfig) Notifier {
	if !cfg.Enabled() {
		return disabledNotifier{}
	}
	return &TwilioNotifier{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		from:         cfg.FromNumber,
		whatsappFrom: cfg.WhatsAppFrom,
	}
}

func (n *TwilioNotifier) Send(_ context.Context, to, body string) (string, string, error) {
	channel := models.ChannelSMS
	phone := utils.CleanPhone(to)

	params := &twilioApi.CreateMessageParams{}
	params.SetBody(body)
	// WhatsApp needs an E.164 number and a configured sender.
	if n.whatsappFrom != "" && utils.IsE164(phone) {
		channel = models.ChannelWhatsApp
		params.SetTo("whatsapp:" + phone)
		params.SetFrom("whatsapp:" + strings.TrimPrefix(n.whatsappFrom, "whatsapp:"))
	} else {
		params.SetTo(phone)
		params.SetFrom(n.from)
	}

	resp, err := n.client.Api.CreateMessage(params)
	if err != nil {
		return channel, "", err
	}
	if resp.Sid != nil {
		return channel, *resp.Sid, nil
	}
	return channel, "", nil
}

type disabledNotifier struct{}

func (disabledNotifier) Send(context.Context, string, string) (string, string, error) {
	return models.ChannelSMS, "", ErrNotifierDisabled
}
