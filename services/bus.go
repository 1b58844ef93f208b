package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectQuoteSent      = "quote.sent"
	SubjectQuoteAccepted  = "quote.accepted"
	SubjectQuoteDeclined  = "quote.declined"
	SubjectQuoteExpired   = "quote.expired"
	SubjectProjectCreated = "project.created"
)

// Publisher emits domain events for other systems.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Broadcaster pushes realtime events about a conversation to connected users.
type Broadcaster interface {
	Broadcast(userIDs []uuid.UUID, conversationID uuid.UUID, event string, payload any)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast([]uuid.UUID, uuid.UUID, string, any) {}

// NATSPublisher publishes JSON payloads to "<prefix>.<subject>".
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(url, prefix string, logger *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("inkdesk-backend"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	if p.prefix != "" {
		subject = p.prefix + "." + subject
	}
	return p.conn.Publish(subject, data)
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// publish logs rather than returns failures; domain events are best effort.
func publish(ctx context.Context, bus Publisher, logger *zap.Logger, subject string, payload any) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, subject, payload); err != nil {
		logger.Warn("publish event failed", zap.String("subject", subject), zap.Error(err))
	}
}

// DomainEvent is the payload of a published domain event.
type DomainEvent struct {
	QuoteID   uuid.UUID  `json:"quoteId,omitempty"`
	ProjectID *uuid.UUID `json:"projectId,omitempty"`
	ArtistID  uuid.UUID  `json:"artistId"`
	ClientID  uuid.UUID  `json:"clientId"`
	Number    string     `json:"quoteNumber,omitempty"`
	Total     float64    `json:"totalAmount,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}
