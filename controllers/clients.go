package controllers

import (
	"net/http"

	"inkdesk-backend/services"
	"inkdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreateClientInput defines the expected JSON structure for creating a client record
type CreateClientInput struct {
	Name      string   `json:"name" binding:"required"`
	Email     string   `json:"email" binding:"omitempty,email"`
	Phone     string   `json:"phone"`
	Notes     string   `json:"notes"`
	SkinNotes string   `json:"skinNotes"`
	Tags      []string `json:"tags"`
	Status    string   `json:"status"`
	Source    string   `json:"source"`
}

// UpdateClientInput defines the expected JSON structure for updating a client record
type UpdateClientInput struct {
	Name      *string  `json:"name"`
	Email     *string  `json:"email" binding:"omitempty,email"`
	Phone     *string  `json:"phone"`
	Notes     *string  `json:"notes"`
	SkinNotes *string  `json:"skinNotes"`
	Tags      []string `json:"tags"`
	Status    *string  `json:"status"`
}

type ClientController struct {
	clients *services.ClientService
	logger  *zap.Logger
}

func NewClientController(clients *services.ClientService, logger *zap.Logger) *ClientController {
	return &ClientController{clients: clients, logger: logger}
}

func (cc *ClientController) CreateClient(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	var input CreateClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	profile, err := cc.clients.Create(c.Request.Context(), artistID, services.CreateClientInput{
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Notes:     input.Notes,
		SkinNotes: input.SkinNotes,
		Tags:      input.Tags,
		Status:    input.Status,
		Source:    input.Source,
	})
	if err != nil {
		respondServiceError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

// GetClients lists the artist's clients with ?page, ?limit, ?status and ?search.
func (cc *ClientController) GetClients(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	p := utils.ParsePagination(c)
	clients, total, err := cc.clients.List(c.Request.Context(), artistID, services.ClientFilter{
		Status:     c.Query("status"),
		Search:     c.Query("search"),
		Pagination: p,
	})
	if err != nil {
		respondServiceError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients, "meta": p.Meta(total)})
}

func (cc *ClientController) GetClientStats(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	stats, err := cc.clients.Stats(c.Request.Context(), artistID)
	if err != nil {
		respondServiceError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (cc *ClientController) GetClient(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}
	detail, err := cc.clients.Get(c.Request.Context(), artistID, id)
	if err != nil {
		respondServiceError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (cc *ClientController) UpdateClient(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}
	var input UpdateClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	profile, err := cc.clients.Update(c.Request.Context(), artistID, id, services.UpdateClientInput{
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		Notes:     input.Notes,
		SkinNotes: input.SkinNotes,
		Tags:      input.Tags,
		Status:    input.Status,
	})
	if err != nil {
		respondServiceError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (cc *ClientController) DeleteClient(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}
	if err := cc.clients.Delete(c.Request.Context(), artistID, id); err != nil {
		respondServiceError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Client deleted successfully"})
}
