package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"inkdesk-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultMessagePage = 50
	maxMessagePage     = 200
)

type SendMessageInput struct {
	Content     string
	Type        string
	Attachments []models.Attachment
}

// SendMessage posts a participant message and pushes it to both sides.
func (s *ChatService) SendMessage(ctx context.Context, userID, conversationID uuid.UUID, in SendMessageInput) (*models.Message, error) {
	conv, err := s.participantConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	msgType := in.Type
	if msgType == "" {
		msgType = inferMessageType(in.Attachments)
	}
	if !slices.Contains([]string{models.MessageText, models.MessageImage, models.MessageFile}, msgType) {
		return nil, invalidf("message type must be text, image or file")
	}

	content := strings.TrimSpace(s.sanitizer.Sanitize(in.Content))
	if content == "" && len(in.Attachments) == 0 {
		return nil, invalidf("message must have content or attachments")
	}

	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       userID,
		Content:        content,
		Type:           msgType,
		Attachments:    in.Attachments,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.appendMessage(tx, &msg)
	})
	if err != nil {
		return nil, err
	}
	if conv.Status == models.ConversationArchived {
		if err := s.db.WithContext(ctx).Model(conv).Update("status", models.ConversationActive).Error; err != nil {
			s.logger.Warn("failed to reopen conversation", zap.String("conversationId", conv.ID.String()), zap.Error(err))
		}
	}

	s.notifyMessage(conv, &msg)
	return &msg, nil
}

func inferMessageType(attachments []models.Attachment) string {
	if len(attachments) == 0 {
		return models.MessageText
	}
	for _, a := range attachments {
		if !strings.HasPrefix(a.MimeType, "image/") {
			return models.MessageFile
		}
	}
	return models.MessageImage
}

// appendMessage stores msg and moves the conversation's last message
// pointer. Must run inside tx.
func (s *ChatService) appendMessage(tx *gorm.DB, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	if err := tx.Create(msg).Error; err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	err := tx.Model(&models.Conversation{}).Where("id = ?", msg.ConversationID).
		Updates(map[string]any{"last_message_id": msg.ID, "last_activity": msg.CreatedAt}).Error
	if err != nil {
		return fmt.Errorf("update conversation activity: %w", err)
	}
	return nil
}

func (s *ChatService) notifyMessage(conv *models.Conversation, msg *models.Message) {
	s.push.Broadcast([]uuid.UUID{conv.ClientID, conv.ArtistID}, conv.ID, EventMessageCreated, msg)
}

// ListMessages pages backwards from before (or now) and returns the page oldest first.
func (s *ChatService) ListMessages(ctx context.Context, userID, conversationID uuid.UUID, before *time.Time, limit int) ([]models.Message, error) {
	if _, err := s.participantConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMessagePage
	}
	limit = min(limit, maxMessagePage)

	query := s.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if before != nil {
		query = query.Where("created_at < ?", before.UTC())
	}
	var msgs []models.Message
	if err := query.Order("created_at DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, dbError(err, "message")
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// MarkConversationAsRead flags every message not authored by the user as read.
func (s *ChatService) MarkConversationAsRead(ctx context.Context, userID, conversationID uuid.UUID) (int64, error) {
	conv, err := s.participantConversation(ctx, userID, conversationID)
	if err != nil {
		return 0, err
	}
	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conv.ID, userID, false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if res.Error != nil {
		return 0, dbError(res.Error, "message")
	}
	if res.RowsAffected > 0 {
		s.push.Broadcast([]uuid.UUID{conv.OtherParticipant(userID)}, conv.ID, EventConversationRead,
			map[string]any{"readerId": userID, "readAt": now})
	}
	return res.RowsAffected, nil
}

// UnreadCount is the number of messages waiting for the user across conversations.
func (s *ChatService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("(conversations.client_id = ? OR conversations.artist_id = ?) AND messages.sender_id <> ? AND messages.is_read = ?",
			userID, userID, userID, false).
		Count(&count).Error
	if err != nil {
		return 0, dbError(err, "message")
	}
	return count, nil
}
