package controllers

import (
	"net/http"
	"time"

	"inkdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func currentUser(c *gin.Context) (uuid.UUID, string, bool) {
	userID, role, ok := utils.CurrentUser(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
	}
	return userID, role, ok
}

// parseIDParam reads a uuid path parameter, answering 400 on garbage.
func parseIDParam(c *gin.Context, param, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+entity+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		if d, derr := time.Parse(time.DateOnly, raw); derr == nil {
			return &d, true
		}
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+key+" date, expected RFC3339 or YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}
