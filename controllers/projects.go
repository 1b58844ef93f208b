package controllers

import (
	"net/http"
	"time"

	"inkdesk-backend/services"
	"inkdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UpdateProjectInput struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Style       *string  `json:"style"`
	BodyZone    *string  `json:"bodyZone"`
	Size        *string  `json:"size"`
	Status      *string  `json:"status"`
	DepositPaid *float64 `json:"depositPaid" binding:"omitempty,min=0"`
}

type SessionInput struct {
	ScheduledAt     time.Time `json:"scheduledAt" binding:"required"`
	DurationMinutes int       `json:"durationMinutes" binding:"omitempty,min=0"`
	Notes           string    `json:"notes"`
}

type SessionStatusInput struct {
	Status string `json:"status" binding:"required,oneof=planned done cancelled"`
}

type ProjectController struct {
	projects *services.ProjectService
	logger   *zap.Logger
}

func NewProjectController(projects *services.ProjectService, logger *zap.Logger) *ProjectController {
	return &ProjectController{projects: projects, logger: logger}
}

func (pc *ProjectController) GetProjects(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := pc.projects.List(c.Request.Context(), userID, role, services.ProjectFilter{
		Status:     c.Query("status"),
		Pagination: utils.ParsePagination(c),
	})
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (pc *ProjectController) GetProject(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "project")
	if !ok {
		return
	}
	project, err := pc.projects.Get(c.Request.Context(), userID, role, id)
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (pc *ProjectController) UpdateProject(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "project")
	if !ok {
		return
	}
	var input UpdateProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	project, err := pc.projects.Update(c.Request.Context(), artistID, id, services.UpdateProjectInput{
		Title:       input.Title,
		Description: input.Description,
		Style:       input.Style,
		BodyZone:    input.BodyZone,
		Size:        input.Size,
		Status:      input.Status,
		DepositPaid: input.DepositPaid,
	})
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (pc *ProjectController) DeleteProject(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "project")
	if !ok {
		return
	}
	if err := pc.projects.Delete(c.Request.Context(), artistID, id); err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

func (pc *ProjectController) AddSession(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "project")
	if !ok {
		return
	}
	var input SessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	session, err := pc.projects.AddSession(c.Request.Context(), artistID, id, services.SessionInput{
		ScheduledAt:     input.ScheduledAt,
		DurationMinutes: input.DurationMinutes,
		Notes:           input.Notes,
	})
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (pc *ProjectController) UpdateSessionStatus(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "project")
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(c, "sessionId", "session")
	if !ok {
		return
	}
	var input SessionStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	session, err := pc.projects.UpdateSessionStatus(c.Request.Context(), artistID, id, sessionID, input.Status)
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (pc *ProjectController) RemoveSession(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "project")
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(c, "sessionId", "session")
	if !ok {
		return
	}
	if err := pc.projects.RemoveSession(c.Request.Context(), artistID, id, sessionID); err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session removed"})
}
