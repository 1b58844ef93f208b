package controllers

import (
	"errors"
	"net/http"

	"inkdesk-backend/services"
	"inkdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondServiceError maps a service error onto an HTTP status. Unknown
// errors are logged and hidden behind a generic 500.
func respondServiceError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrQuoteExpired):
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		utils.RespondWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.RespondWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrConflict):
		utils.RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrPDFUnavailable):
		logger.Warn("pdf renderer unavailable", zap.Error(err))
		utils.RespondWithError(c, http.StatusServiceUnavailable, "PDF export is temporarily unavailable")
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}
