package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dm-service/internal/middleware"
	"dm-service/internal/observability"
	"dm-service/internal/service"
	"dm-service/internal/telemetry"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if userID := c.GetString(middleware.UserIDKey); userID != "" {
		return &userID
	}
	return nil
}

func eventHeaders(c *gin.Context) map[string]string {
	return observability.BuildHeaders(requestIDFromContext(c), "")
}

// writeError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported as fallback with 500.
func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrSelfReference), errors.Is(err, service.ErrEmptyContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Printf("%s: request_id=%s err=%v", fallback, requestIDFromContext(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func emitAudit(c *gin.Context, emitter *telemetry.AuditEmitter, action, text, targetID string) {
	emitter.Emit(c.Request.Context(), telemetry.AuditEvent{
		Action:    action,
		Level:     "info",
		Text:      text,
		TargetID:  targetID,
		RequestID: requestIDFromContext(c),
		UserID:    userIDFromContext(c),
	})
}
