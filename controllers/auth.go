package controllers

import (
	"net/http"
	"time"

	"inkdesk-backend/models"
	"inkdesk-backend/services"
	"inkdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RegisterInput struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Name      string `json:"name" binding:"required"`
	Phone     string `json:"phone"`
	Role      string `json:"role" binding:"omitempty,oneof=client tattoo_artist"`
	Specialty string `json:"specialty"`
	Instagram string `json:"instagram"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthController struct {
	users        *services.UserService
	secret       string
	ttl          time.Duration
	secureCookie bool
	logger       *zap.Logger
}

func NewAuthController(users *services.UserService, secret string, ttl time.Duration, secureCookie bool, logger *zap.Logger) *AuthController {
	return &AuthController{users: users, secret: secret, ttl: ttl, secureCookie: secureCookie, logger: logger}
}

func (ac *AuthController) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	user, err := ac.users.Register(c.Request.Context(), services.RegisterInput{
		Email:     input.Email,
		Password:  input.Password,
		Name:      input.Name,
		Phone:     input.Phone,
		Role:      input.Role,
		Specialty: input.Specialty,
		Instagram: input.Instagram,
	})
	if err != nil {
		respondServiceError(c, ac.logger, err)
		return
	}

	token, ok := ac.issueToken(c, user)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"token":   token,
		"user":    user,
	})
}

func (ac *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	user, err := ac.users.Authenticate(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondServiceError(c, ac.logger, err)
		return
	}

	token, ok := ac.issueToken(c, user)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

func (ac *AuthController) Me(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := ac.users.Get(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// issueToken signs a token and mirrors it into an http-only cookie.
func (ac *AuthController) issueToken(c *gin.Context, user *models.User) (string, bool) {
	token, err := utils.GenerateToken(user.ID, user.Role, ac.secret, ac.ttl)
	if err != nil {
		ac.logger.Error("token generation failed", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return "", false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("token", token, int(ac.ttl.Seconds()), "/", "", ac.secureCookie, true)
	return token, true
}
