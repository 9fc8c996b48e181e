package handlers

import (
	"github.com/chachabrian/chefbook-backend/internal/middleware"
	"github.com/chachabrian/chefbook-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler streams booking updates to the connected principal
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.CurrentPrincipal(c)
		if !ok {
			c.JSON(401, gin.H{"error": "Unauthorized"})
			return
		}

		services.HandleWebSocket(hub, c.Writer, c.Request, principal.PrincipalID())
	}
}
