package controllers

import (
	"net/http"
	"strconv"

	"inkdesk-backend/services"
	"inkdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UpdateProfileInput struct {
	Name      *string `json:"name"`
	Phone     *string `json:"phone"`
	Bio       *string `json:"bio"`
	Specialty *string `json:"specialty"`
	Instagram *string `json:"instagram"`
	Slug      *string `json:"slug"`
}

type UpdateTemplateInput struct {
	Kind     string `json:"kind" binding:"required"`
	Message  string `json:"message" binding:"required"`
	IsActive *bool  `json:"isActive"`
}

// ProfileController serves the account settings of the signed-in user.
type ProfileController struct {
	users     *services.UserService
	reminders *services.ReminderService
	store     services.FileStore
	logger    *zap.Logger
}

func NewProfileController(users *services.UserService, reminders *services.ReminderService, store services.FileStore, logger *zap.Logger) *ProfileController {
	return &ProfileController{users: users, reminders: reminders, store: store, logger: logger}
}

func (pc *ProfileController) GetProfile(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := pc.users.Get(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (pc *ProfileController) UpdateProfile(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	user, err := pc.users.UpdateProfile(c.Request.Context(), userID, services.UpdateProfileInput{
		Name:      input.Name,
		Phone:     input.Phone,
		Bio:       input.Bio,
		Specialty: input.Specialty,
		Instagram: input.Instagram,
		Slug:      input.Slug,
	})
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
}

func (pc *ProfileController) UploadPhoto(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("profilePhoto")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "profilePhoto file is required")
		return
	}

	ctx := c.Request.Context()
	before, err := pc.users.Get(ctx, userID)
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	att, err := pc.store.Save(ctx, "profiles", fh, services.ImageTypes)
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	user, err := pc.users.SetProfilePhoto(ctx, userID, att.URL)
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	if before.ProfilePhoto != "" {
		if err := pc.store.Delete(ctx, before.ProfilePhoto); err != nil {
			pc.logger.Warn("old profile photo not removed", zap.String("url", before.ProfilePhoto), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile photo updated", "user": user})
}

func (pc *ProfileController) GetTemplates(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	templates, err := pc.reminders.Templates(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

func (pc *ProfileController) UpdateTemplate(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	var input UpdateTemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	tpl, err := pc.reminders.SetTemplate(c.Request.Context(), userID, input.Kind, input.Message, active)
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Template updated", "template": tpl})
}

func (pc *ProfileController) GetNotifications(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := pc.reminders.History(c.Request.Context(), userID, limit)
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": logs})
}
