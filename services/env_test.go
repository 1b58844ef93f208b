package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"inkdesk-backend/config"
	"inkdesk-backend/models"
	"inkdesk-backend/testutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingBus struct {
	mu       sync.Mutex
	subjects []string
}

func (b *recordingBus) Publish(_ context.Context, subject string, _ any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	return nil
}

func (b *recordingBus) count(subject string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range b.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

type pushed struct {
	users        []uuid.UUID
	conversation uuid.UUID
	event        string
}

type recordingPush struct {
	mu     sync.Mutex
	events []pushed
}

func (p *recordingPush) Broadcast(userIDs []uuid.UUID, conversationID uuid.UUID, event string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{users: userIDs, conversation: conversationID, event: event})
}

func (p *recordingPush) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.event == event {
			n++
		}
	}
	return n
}

type sentText struct {
	to, body string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentText
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, to, body string) (string, string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return "", "", n.err
	}
	n.sent = append(n.sent, sentText{to: to, body: body})
	return models.ChannelSMS, "SM" + uuid.NewString()[:8], nil
}

type fakeRenderer struct {
	html string
	err  error
}

func (r *fakeRenderer) Render(_ context.Context, html string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.html = html
	return []byte("%PDF-1.4 test"), nil
}

// testEnv wires every service on one in-memory database.
type testEnv struct {
	db        *gorm.DB
	bus       *recordingBus
	push      *recordingPush
	notifier  *fakeNotifier
	renderer  *fakeRenderer
	users     *UserService
	pages     *PageService
	chat      *ChatService
	cascade   *Cascade
	outbox    *OutboxService
	events    *EventService
	reminders *ReminderService
	quotes    *QuoteService
	clients   *ClientService
	projects  *ProjectService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	e := &testEnv{
		db:       testutil.NewDB(t),
		bus:      &recordingBus{},
		push:     &recordingPush{},
		notifier: &fakeNotifier{},
		renderer: &fakeRenderer{},
	}
	e.users = NewUserService(e.db, logger)
	e.pages = NewPageService(e.db, e.users, logger)
	e.chat = NewChatService(e.db, e.users, e.push, logger)
	e.cascade = NewCascade(e.db, e.chat, e.bus, logger)
	e.outbox = NewOutboxService(e.db, e.cascade, 3, logger)
	e.events = NewEventService(e.db, logger)
	e.reminders = NewReminderService(e.db, e.notifier, e.events, logger)
	e.quotes = NewQuoteService(QuoteDeps{
		DB:        e.db,
		Users:     e.users,
		Chat:      e.chat,
		Cascade:   e.cascade,
		Outbox:    e.outbox,
		Reminders: e.reminders,
		Renderer:  e.renderer,
		Bus:       e.bus,
		Push:      e.push,
		Logger:    logger,
		Settings:  config.QuoteConfig{ValidityDays: 30, Currency: "EUR", NotifySMS: true},
	})
	e.clients = NewClientService(e.db, logger)
	e.projects = NewProjectService(e.db, logger)
	return e
}

// setNow pins the clock of every time-dependent service.
func (e *testEnv) setNow(t time.Time) {
	now := func() time.Time { return t }
	e.users.now = now
	e.chat.now = now
	e.cascade.now = now
	e.outbox.now = now
	e.events.now = now
	e.reminders.now = now
	e.quotes.now = now
	e.clients.now = now
	e.projects.now = now
}

func sampleDraft(clientID uuid.UUID) QuoteDraft {
	return QuoteDraft{
		Client: ClientRef{ID: &clientID},
		Title:  "Rose on the shoulder",
		Items: []DraftItem{
			{Description: "Design", Quantity: 1, UnitPrice: 150},
			{Description: "Session", Quantity: 2, UnitPrice: 50},
		},
		TaxRate: 10,
	}
}

// sentQuote creates and sends the sample quote.
func (e *testEnv) sentQuote(t *testing.T, artist, client *models.User) *models.Quote {
	t.Helper()
	ctx := context.Background()
	q, err := e.quotes.Create(ctx, artist.ID, sampleDraft(client.ID))
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	q, err = e.quotes.Send(ctx, artist.ID, q.ID)
	if err != nil {
		t.Fatalf("send quote: %v", err)
	}
	return q
}
