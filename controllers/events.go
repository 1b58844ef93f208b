package controllers

import (
	"net/http"
	"time"

	"inkdesk-backend/services"
	"inkdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EventInput struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Location        *string    `json:"location"`
	StartsAt        *time.Time `json:"startsAt"`
	EndsAt          *time.Time `json:"endsAt"`
	AllDay          *bool      `json:"allDay"`
	Color           *string    `json:"color"`
	ReminderMinutes *int       `json:"reminderMinutes"`
}

func (in EventInput) toService() services.EventInput {
	return services.EventInput{
		Title:           in.Title,
		Description:     in.Description,
		Location:        in.Location,
		StartsAt:        in.StartsAt,
		EndsAt:          in.EndsAt,
		AllDay:          in.AllDay,
		Color:           in.Color,
		ReminderMinutes: in.ReminderMinutes,
	}
}

type EventController struct {
	events *services.EventService
	logger *zap.Logger
}

func NewEventController(events *services.EventService, logger *zap.Logger) *EventController {
	return &EventController{events: events, logger: logger}
}

// GetEvents lists events overlapping ?from..?to, defaulting to the current month.
func (ec *EventController) GetEvents(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return
	}
	start := utils.BeginningOfMonth(time.Now().UTC())
	if from != nil {
		start = *from
	}
	end := start.AddDate(0, 1, 0)
	if to != nil {
		end = *to
	}
	if end.Before(start) {
		utils.RespondWithError(c, http.StatusBadRequest, "to must not be before from")
		return
	}

	events, err := ec.events.List(c.Request.Context(), userID, start, end)
	if err != nil {
		respondServiceError(c, ec.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (ec *EventController) CreateEvent(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	var input EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	event, err := ec.events.Create(c.Request.Context(), userID, input.toService())
	if err != nil {
		respondServiceError(c, ec.logger, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (ec *EventController) UpdateEvent(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "event")
	if !ok {
		return
	}
	var input EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	event, err := ec.events.Update(c.Request.Context(), userID, id, input.toService())
	if err != nil {
		respondServiceError(c, ec.logger, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (ec *EventController) DeleteEvent(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id", "event")
	if !ok {
		return
	}
	if err := ec.events.Delete(c.Request.Context(), userID, id); err != nil {
		respondServiceError(c, ec.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
}
