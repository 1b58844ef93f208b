package services

import (
	"context"
	"testing"
	"time"

	"inkdesk-backend/models"
	"inkdesk-backend/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateConversationIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	ctx := context.Background()

	req := &ProjectRequest{BodyZone: "forearm", Style: "fine line", Size: "10cm", Budget: "300", Description: "A small swallow"}
	first, created, err := e.chat.GetOrCreateConversation(ctx, client.ID, artist.ID.String(), req)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, first.LastMessageID)

	second, created, err := e.chat.GetOrCreateConversation(ctx, client.ID, "ana-ink", req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var msgs []models.Message
	require.NoError(t, e.db.Where("conversation_id = ?", first.ID).Find(&msgs).Error)
	require.Len(t, msgs, 1, "the project request is posted only once")
	assert.Equal(t, models.MessageProject, msgs[0].Type)
	assert.Equal(t, client.ID, msgs[0].SenderID)
	assert.Equal(t, "forearm", msgs[0].Metadata["bodyZone"])
	assert.Contains(t, msgs[0].Content, "A small swallow")
}

func TestGetOrCreateConversationWithoutRequestPostsNothing(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")

	conv, created, err := e.chat.GetOrCreateConversation(context.Background(), client.ID, "ana-ink", nil)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, conv.LastMessageID)
	assert.Equal(t, artist.ID, conv.ArtistID)
}

func TestGetOrCreateConversationChecksRoles(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	other := testutil.Artist(t, e.db, "Bea Needle")
	client := testutil.Client(t, e.db, "Carl Client")
	ctx := context.Background()

	_, _, err := e.chat.GetOrCreateConversation(ctx, artist.ID, other.ID.String(), nil)
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = e.chat.GetOrCreateConversation(ctx, client.ID, "nobody-here", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = e.chat.GetOrCreateConversation(ctx, client.ID, client.ID.String(), nil)
	assert.ErrorIs(t, err, ErrNotFound, "a client is not an artist")
}

func TestSendMessageUpdatesConversation(t *testing.T) {
	e := newTestEnv(t)
	start := time.Date(2025, time.February, 3, 15, 0, 0, 0, time.UTC)
	e.setNow(start)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	ctx := context.Background()

	conv, _, err := e.chat.GetOrCreateConversation(ctx, client.ID, "ana-ink", nil)
	require.NoError(t, err)

	e.setNow(start.Add(time.Minute))
	msg, err := e.chat.SendMessage(ctx, client.ID, conv.ID, SendMessageInput{Content: `Hello <script>alert(1)</script><b>there</b>`})
	require.NoError(t, err)
	assert.Equal(t, models.MessageText, msg.Type)
	assert.NotContains(t, msg.Content, "<script>")
	assert.Contains(t, msg.Content, "<b>there</b>")

	stored, err := e.chat.GetConversation(ctx, artist.ID, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastMessageID)
	assert.Equal(t, msg.ID, *stored.LastMessageID)
	assert.True(t, stored.LastActivity.Equal(start.Add(time.Minute)))

	require.Len(t, e.push.events, 1)
	assert.Equal(t, EventMessageCreated, e.push.events[0].event)
	assert.ElementsMatch(t, []uuid.UUID{client.ID, artist.ID}, e.push.events[0].users)
	assert.Equal(t, conv.ID, e.push.events[0].conversation)
}

func TestSendMessageValidation(t *testing.T) {
	e := newTestEnv(t)
	testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	stranger := testutil.Client(t, e.db, "Stan Stranger")
	ctx := context.Background()

	conv, _, err := e.chat.GetOrCreateConversation(ctx, client.ID, "ana-ink", nil)
	require.NoError(t, err)

	_, err = e.chat.SendMessage(ctx, client.ID, conv.ID, SendMessageInput{Content: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.chat.SendMessage(ctx, client.ID, conv.ID, SendMessageInput{Content: "hi", Type: models.MessageQuote})
	assert.ErrorIs(t, err, ErrValidation, "clients cannot forge quote messages")

	_, err = e.chat.SendMessage(ctx, stranger.ID, conv.ID, SendMessageInput{Content: "hi"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.chat.SendMessage(ctx, client.ID, uuid.New(), SendMessageInput{Content: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendMessageInfersAttachmentType(t *testing.T) {
	e := newTestEnv(t)
	testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	ctx := context.Background()
	conv, _, err := e.chat.GetOrCreateConversation(ctx, client.ID, "ana-ink", nil)
	require.NoError(t, err)

	img, err := e.chat.SendMessage(ctx, client.ID, conv.ID, SendMessageInput{
		Attachments: []models.Attachment{{URL: "/uploads/chat/a.png", Name: "a.png", MimeType: "image/png", Size: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.MessageImage, img.Type)

	file, err := e.chat.SendMessage(ctx, client.ID, conv.ID, SendMessageInput{
		Attachments: []models.Attachment{
			{URL: "/uploads/chat/a.png", Name: "a.png", MimeType: "image/png"},
			{URL: "/uploads/chat/b.pdf", Name: "b.pdf", MimeType: "application/pdf"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.MessageFile, file.Type)
}

func TestListConversationsWithPreviewAndUnread(t *testing.T) {
	e := newTestEnv(t)
	start := time.Date(2025, time.February, 3, 15, 0, 0, 0, time.UTC)
	e.setNow(start)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	carl := testutil.Client(t, e.db, "Carl Client")
	dana := testutil.Client(t, e.db, "Dana Doe")
	ctx := context.Background()

	older, _, err := e.chat.GetOrCreateConversation(ctx, carl.ID, "ana-ink", nil)
	require.NoError(t, err)
	_, err = e.chat.SendMessage(ctx, carl.ID, older.ID, SendMessageInput{Content: "<p>Is <b>Friday</b> free?</p>"})
	require.NoError(t, err)

	e.setNow(start.Add(time.Hour))
	newer, _, err := e.chat.GetOrCreateConversation(ctx, dana.ID, "ana-ink", nil)
	require.NoError(t, err)
	for _, text := range []string{"hello", "are you there?"} {
		_, err = e.chat.SendMessage(ctx, dana.ID, newer.ID, SendMessageInput{Content: text})
		require.NoError(t, err)
	}

	list, err := e.chat.ListConversations(ctx, artist.ID, false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID, "most recent activity first")
	assert.Equal(t, dana.Name, list[0].Participant.Name)
	assert.Equal(t, int64(2), list[0].UnreadCount)
	assert.Equal(t, "are you there?", list[0].Preview)
	assert.Equal(t, int64(1), list[1].UnreadCount)
	assert.Equal(t, "Is **Friday** free?", list[1].Preview)

	unread, err := e.chat.UnreadCount(ctx, artist.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	mine, err := e.chat.ListConversations(ctx, carl.ID, false)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Zero(t, mine[0].UnreadCount, "own messages are never unread")
}

func TestMarkConversationAsRead(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	ctx := context.Background()

	conv, _, err := e.chat.GetOrCreateConversation(ctx, client.ID, "ana-ink", nil)
	require.NoError(t, err)
	_, err = e.chat.SendMessage(ctx, client.ID, conv.ID, SendMessageInput{Content: "one"})
	require.NoError(t, err)
	_, err = e.chat.SendMessage(ctx, client.ID, conv.ID, SendMessageInput{Content: "two"})
	require.NoError(t, err)

	n, err := e.chat.MarkConversationAsRead(ctx, client.ID, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "the sender has nothing to read")

	n, err = e.chat.MarkConversationAsRead(ctx, artist.ID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 1, e.push.count(EventConversationRead))

	unread, err := e.chat.UnreadCount(ctx, artist.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestListMessagesPagesBackwards(t *testing.T) {
	e := newTestEnv(t)
	start := time.Date(2025, time.February, 3, 15, 0, 0, 0, time.UTC)
	testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	ctx := context.Background()

	e.setNow(start)
	conv, _, err := e.chat.GetOrCreateConversation(ctx, client.ID, "ana-ink", nil)
	require.NoError(t, err)
	for i, text := range []string{"first", "second", "third"} {
		e.setNow(start.Add(time.Duration(i+1) * time.Minute))
		_, err := e.chat.SendMessage(ctx, client.ID, conv.ID, SendMessageInput{Content: text})
		require.NoError(t, err)
	}

	page, err := e.chat.ListMessages(ctx, client.ID, conv.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "second", page[0].Content)
	assert.Equal(t, "third", page[1].Content)

	before := page[0].CreatedAt
	older, err := e.chat.ListMessages(ctx, client.ID, conv.ID, &before, 2)
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, "first", older[0].Content)
}

func TestArchivedConversationReopensOnMessage(t *testing.T) {
	e := newTestEnv(t)
	artist := testutil.Artist(t, e.db, "Ana Ink")
	client := testutil.Client(t, e.db, "Carl Client")
	ctx := context.Background()

	conv, _, err := e.chat.GetOrCreateConversation(ctx, client.ID, "ana-ink", nil)
	require.NoError(t, err)
	archived, err := e.chat.ArchiveConversation(ctx, artist.ID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationArchived, archived.Status)

	active, err := e.chat.ListConversations(ctx, artist.ID, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := e.chat.ListConversations(ctx, artist.ID, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = e.chat.SendMessage(ctx, client.ID, conv.ID, SendMessageInput{Content: "back again"})
	require.NoError(t, err)
	active, err = e.chat.ListConversations(ctx, artist.ID, false)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
