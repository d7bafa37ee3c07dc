package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dm-service/internal/middleware"
	"dm-service/internal/telemetry"
	"dm-service/internal/ws"
)

// RegisterDebugRoutes wires debug-only endpoints onto an authenticated group.
func RegisterDebugRoutes(router gin.IRouter, emitter *telemetry.AuditEmitter, hub *ws.Hub, enabled bool) {
	if !enabled {
		return
	}

	debug := router.Group("/debug")
	debug.GET("/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitAudit(c, emitter, "debug.audit_test", "audit test", "")
		c.JSON(http.StatusOK, gin.H{"status": "ok", "request_id": requestIDFromContext(c)})
	})
	debug.GET("/ws", func(c *gin.Context) {
		userID := c.GetString(middleware.UserIDKey)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "connections": hub.Connections(userID)})
	})
}
