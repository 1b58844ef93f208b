package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"inkdesk-backend/models"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const previewLength = 120

// Realtime event names pushed to participants.
const (
	EventMessageCreated   = "message.created"
	EventConversationRead = "conversation.read"
	EventQuoteUpdated     = "quote.updated"
)

// ChatService owns conversations and messages.
type ChatService struct {
	db        *gorm.DB
	users     *UserService
	push      Broadcaster
	logger    *zap.Logger
	now       func() time.Time
	sanitizer *bluemonday.Policy
	converter *md.Converter
}

func NewChatService(db *gorm.DB, users *UserService, push Broadcaster, logger *zap.Logger) *ChatService {
	if push == nil {
		push = nopBroadcaster{}
	}
	return &ChatService{
		db:        db,
		users:     users,
		push:      push,
		logger:    logger,
		now:       utcNow,
		sanitizer: bluemonday.UGCPolicy(),
		converter: md.NewConverter("", true, nil),
	}
}

// ProjectRequest is the optional form a client fills when opening a conversation.
type ProjectRequest struct {
	BodyZone       string
	Style          string
	Size           string
	Budget         string
	Description    string
	PlacementPhoto *models.Attachment
}

func (r *ProjectRequest) empty() bool {
	return r == nil || (r.BodyZone == "" && r.Style == "" && r.Size == "" && r.Budget == "" &&
		r.Description == "" && r.PlacementPhoto == nil)
}

// GetOrCreateConversation returns the conversation between the client and
// the artist named by id or slug. The project request is posted only when
// the conversation is new.
func (s *ChatService) GetOrCreateConversation(ctx context.Context, clientID uuid.UUID, artistRef string, req *ProjectRequest) (*models.Conversation, bool, error) {
	client, err := s.users.Get(ctx, clientID)
	if err != nil {
		return nil, false, err
	}
	if !client.IsClient() {
		return nil, false, forbiddenf("only clients can start a conversation with an artist")
	}
	artist, err := s.users.ResolveArtist(ctx, artistRef)
	if err != nil {
		return nil, false, err
	}

	conv, created, err := s.ensureConversation(ctx, client.ID, artist.ID)
	if err != nil {
		return nil, false, err
	}
	if !created || req.empty() {
		return conv, created, nil
	}

	content, err := renderTemplate("project_request.html", req)
	if err != nil {
		return nil, false, err
	}
	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       client.ID,
		Type:           models.MessageProject,
		Content:        s.sanitizer.Sanitize(content),
		Metadata: datatypes.JSONMap{
			"bodyZone":    req.BodyZone,
			"style":       req.Style,
			"size":        req.Size,
			"budget":      req.Budget,
			"description": req.Description,
		},
	}
	if req.PlacementPhoto != nil {
		msg.Metadata["placementPhoto"] = req.PlacementPhoto.URL
		msg.Attachments = []models.Attachment{*req.PlacementPhoto}
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.appendMessage(tx, &msg)
	})
	if err != nil {
		return nil, false, err
	}
	conv.LastMessageID = &msg.ID
	conv.LastActivity = msg.CreatedAt
	s.notifyMessage(conv, &msg)
	return conv, true, nil
}

// ensureConversation inserts the (client, artist) pair unless it exists.
func (s *ChatService) ensureConversation(ctx context.Context, clientID, artistID uuid.UUID) (*models.Conversation, bool, error) {
	db := s.db.WithContext(ctx)
	conv := models.Conversation{
		ClientID:     clientID,
		ArtistID:     artistID,
		Status:       models.ConversationActive,
		LastActivity: s.now(),
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}, {Name: "artist_id"}},
		DoNothing: true,
	}).Create(&conv)
	if res.Error != nil {
		return nil, false, dbError(res.Error, "conversation")
	}
	if res.RowsAffected == 1 {
		s.logger.Info("conversation created",
			zap.String("conversationId", conv.ID.String()),
			zap.String("clientId", clientID.String()),
			zap.String("artistId", artistID.String()))
		return &conv, true, nil
	}

	var existing models.Conversation
	if err := db.Where("client_id = ? AND artist_id = ?", clientID, artistID).First(&existing).Error; err != nil {
		return nil, false, dbError(err, "conversation")
	}
	if existing.Status == models.ConversationArchived {
		if err := db.Model(&existing).Update("status", models.ConversationActive).Error; err != nil {
			return nil, false, dbError(err, "conversation")
		}
	}
	return &existing, false, nil
}

// participantConversation loads a conversation the user takes part in.
func (s *ChatService) participantConversation(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, "id = ?", conversationID).Error; err != nil {
		return nil, dbError(err, "conversation")
	}
	if !conv.HasParticipant(userID) {
		return nil, forbiddenf("not a participant of this conversation")
	}
	return &conv, nil
}

func (s *ChatService) GetConversation(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	return s.participantConversation(ctx, userID, conversationID)
}

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	models.Conversation
	Participant models.PublicUser `json:"participant"`
	LastMessage *models.Message   `json:"lastMessage,omitempty"`
	Preview     string            `json:"preview"`
	UnreadCount int64             `json:"unreadCount"`
}

// ListConversations returns the user's conversations, most recent activity first.
func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]ConversationSummary, error) {
	db := s.db.WithContext(ctx)
	query := db.Where("client_id = ? OR artist_id = ?", userID, userID)
	if !includeArchived {
		query = query.Where("status = ?", models.ConversationActive)
	}
	var convs []models.Conversation
	if err := query.Order("last_activity DESC").Find(&convs).Error; err != nil {
		return nil, dbError(err, "conversation")
	}
	if len(convs) == 0 {
		return []ConversationSummary{}, nil
	}

	ids := make([]uuid.UUID, 0, len(convs))
	others := make([]uuid.UUID, 0, len(convs))
	var lastIDs []uuid.UUID
	for _, c := range convs {
		ids = append(ids, c.ID)
		others = append(others, c.OtherParticipant(userID))
		if c.LastMessageID != nil {
			lastIDs = append(lastIDs, *c.LastMessageID)
		}
	}

	participants, err := s.users.GetMany(ctx, others)
	if err != nil {
		return nil, err
	}

	lastMessages := map[uuid.UUID]models.Message{}
	if len(lastIDs) > 0 {
		var msgs []models.Message
		if err := db.Where("id IN ?", lastIDs).Find(&msgs).Error; err != nil {
			return nil, dbError(err, "message")
		}
		for _, m := range msgs {
			lastMessages[m.ID] = m
		}
	}

	var counts []struct {
		ConversationID uuid.UUID
		Count          int64
	}
	err = db.Model(&models.Message{}).
		Select("conversation_id, COUNT(*) AS count").
		Where("conversation_id IN ? AND sender_id <> ? AND is_read = ?", ids, userID, false).
		Group("conversation_id").
		Scan(&counts).Error
	if err != nil {
		return nil, dbError(err, "message")
	}
	unread := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		unread[c.ConversationID] = c.Count
	}

	out := make([]ConversationSummary, len(convs))
	for i, c := range convs {
		other := participants[c.OtherParticipant(userID)]
		summary := ConversationSummary{
			Conversation: c,
			Participant:  other.Public(),
			UnreadCount:  unread[c.ID],
		}
		if c.LastMessageID != nil {
			if m, ok := lastMessages[*c.LastMessageID]; ok {
				summary.LastMessage = &m
				summary.Preview = s.preview(&m)
			}
		}
		out[i] = summary
	}
	return out, nil
}

// preview turns message HTML into a short single-line text.
func (s *ChatService) preview(m *models.Message) string {
	text := m.Content
	if strings.Contains(text, "<") {
		if converted, err := s.converter.ConvertString(text); err == nil {
			text = converted
		}
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" && len(m.Attachments) > 0 {
		text = m.Attachments[0].Name
	}
	if utf8.RuneCountInString(text) > previewLength {
		runes := []rune(text)
		text = string(runes[:previewLength-1]) + "…"
	}
	return text
}

func (s *ChatService) ArchiveConversation(ctx context.Context, userID, conversationID uuid.UUID) (*models.Conversation, error) {
	conv, err := s.participantConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(conv).Update("status", models.ConversationArchived).Error; err != nil {
		return nil, dbError(err, "conversation")
	}
	conv.Status = models.ConversationArchived
	return conv, nil
}
