package controllers

import (
	"net/http"
	"slices"

	"inkdesk-backend/realtime"
	"inkdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// RealtimeController upgrades authenticated clients to a push socket.
type RealtimeController struct {
	hub      *realtime.Hub
	secret   string
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewRealtimeController(hub *realtime.Hub, secret string, origins []string, logger *zap.Logger) *RealtimeController {
	return &RealtimeController{
		hub:    hub,
		secret: secret,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin)
			},
		},
	}
}

// Connect reads the token from ?token or the Authorization header, since
// browsers cannot set headers on a websocket handshake.
func (rc *RealtimeController) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = utils.BearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		utils.RespondWithError(c, http.StatusUnauthorized, "Token required")
		return
	}
	claims, err := utils.ParseToken(token, rc.secret)
	if err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid token")
		return
	}

	conn, err := rc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		rc.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	userID := uuid.MustParse(claims.Subject)
	realtime.Serve(rc.hub, userID, conn)
	rc.logger.Debug("websocket connected", zap.String("userId", userID.String()), zap.Int("connections", rc.hub.Connections(userID)))
}
