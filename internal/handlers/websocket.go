package handlers

import (
	"github.com/chachabrian/rescuelink-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler subscribes the caller to the live incident feed.
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		services.HandleWebSocket(hub, c.Writer, c.Request, c.GetUint("userId"))
	}
}
