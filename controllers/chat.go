package controllers

import (
	"net/http"
	"strconv"

	"inkdesk-backend/models"
	"inkdesk-backend/services"
	"inkdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StartConversationInput is accepted as JSON or as a multipart form carrying
// the optional placementPhoto upload.
type StartConversationInput struct {
	Artist      string `json:"artist" form:"artist" binding:"required"`
	BodyZone    string `json:"bodyZone" form:"bodyZone"`
	Style       string `json:"style" form:"style"`
	Size        string `json:"size" form:"size"`
	Budget      string `json:"budget" form:"budget"`
	Description string `json:"description" form:"description"`
}

type SendMessageInput struct {
	Content string `json:"content" form:"content"`
	Type    string `json:"type" form:"type" binding:"omitempty,oneof=text image file"`
}

type ChatController struct {
	chat   *services.ChatService
	store  services.FileStore
	logger *zap.Logger
}

func NewChatController(chat *services.ChatService, store services.FileStore, logger *zap.Logger) *ChatController {
	return &ChatController{chat: chat, store: store, logger: logger}
}

func (cc *ChatController) ListConversations(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	archived, _ := strconv.ParseBool(c.Query("archived"))
	convs, err := cc.chat.ListConversations(c.Request.Context(), userID, archived)
	if err != nil {
		respondServiceError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

func (cc *ChatController) StartConversation(c *gin.Context) {
	clientID, _, ok := currentUser(c)
	if !ok {
		return
	}
	var input StartConversationInput
	if err := c.ShouldBind(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	req := &services.ProjectRequest{
		BodyZone:    input.BodyZone,
		Style:       input.Style,
		Size:        input.Size,
		Budget:      input.Budget,
		Description: input.Description,
	}
	if fh, err := c.FormFile("placementPhoto"); err == nil {
		att, err := cc.store.Save(ctx, "placements", fh, services.ImageTypes)
		if err != nil {
			respondServiceError(c, cc.logger, err)
			return
		}
		req.PlacementPhoto = att
	}

	conv, created, err := cc.chat.GetOrCreateConversation(ctx, clientID, input.Artist, req)
	if req.PlacementPhoto != nil && (err != nil || !created) {
		cc.discard(c, req.PlacementPhoto.URL)
	}
	if err != nil {
		respondServiceError(c, cc.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"conversation": conv, "created": created})
}

func (cc *ChatController) GetConversation(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	convID, ok := parseIDParam(c, "id", "conversation")
	if !ok {
		return
	}
	conv, err := cc.chat.GetConversation(c.Request.Context(), userID, convID)
	if err != nil {
		respondServiceError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (cc *ChatController) ArchiveConversation(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	convID, ok := parseIDParam(c, "id", "conversation")
	if !ok {
		return
	}
	conv, err := cc.chat.ArchiveConversation(c.Request.Context(), userID, convID)
	if err != nil {
		respondServiceError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (cc *ChatController) ListMessages(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	convID, ok := parseIDParam(c, "id", "conversation")
	if !ok {
		return
	}
	before, ok := parseTimeQuery(c, "before")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	msgs, err := cc.chat.ListMessages(c.Request.Context(), userID, convID, before, limit)
	if err != nil {
		respondServiceError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (cc *ChatController) SendMessage(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	convID, ok := parseIDParam(c, "id", "conversation")
	if !ok {
		return
	}
	var input SendMessageInput
	if err := c.ShouldBind(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	var attachments []models.Attachment
	if form, err := c.MultipartForm(); err == nil {
		for _, fh := range form.File["attachments"] {
			att, err := cc.store.Save(ctx, "attachments", fh, services.AttachmentTypes)
			if err != nil {
				for _, a := range attachments {
					cc.discard(c, a.URL)
				}
				respondServiceError(c, cc.logger, err)
				return
			}
			attachments = append(attachments, *att)
		}
	}

	msg, err := cc.chat.SendMessage(ctx, userID, convID, services.SendMessageInput{
		Content:     input.Content,
		Type:        input.Type,
		Attachments: attachments,
	})
	if err != nil {
		for _, a := range attachments {
			cc.discard(c, a.URL)
		}
		respondServiceError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (cc *ChatController) MarkAsRead(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	convID, ok := parseIDParam(c, "id", "conversation")
	if !ok {
		return
	}
	n, err := cc.chat.MarkConversationAsRead(c.Request.Context(), userID, convID)
	if err != nil {
		respondServiceError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Conversation marked as read", "updated": n})
}

func (cc *ChatController) UnreadCount(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := cc.chat.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

func (cc *ChatController) discard(c *gin.Context, url string) {
	if err := cc.store.Delete(c.Request.Context(), url); err != nil {
		cc.logger.Warn("stored file not removed", zap.String("url", url), zap.Error(err))
	}
}
