package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dm-service/internal/middleware"
	"dm-service/internal/models"
	"dm-service/internal/service"
	"dm-service/internal/telemetry"
)

// UserHandler serves the user directory.
type UserHandler struct {
	directory *service.Directory
	audit     *telemetry.AuditEmitter
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(directory *service.Directory, audit *telemetry.AuditEmitter) *UserHandler {
	return &UserHandler{directory: directory, audit: audit}
}

// UpsertMe refreshes the caller's profile from their token and optional hints.
func (h *UserHandler) UpsertMe(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		writeError(c, service.ErrUnauthenticated, "")
		return
	}

	var hints models.ProfileHints
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&hints); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	userID, err := h.directory.UpsertCurrentUser(c.Request.Context(), id, hints)
	if err != nil {
		writeError(c, err, "failed to save user")
		return
	}

	emitAudit(c, h.audit, "user.upsert", "profile refreshed", userID)
	c.JSON(http.StatusOK, gin.H{"user_id": userID})
}

// GetUser returns a user by id.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.directory.GetUserByID(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeError(c, err, "failed to load user")
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// FindByEmail looks a user up by exact email.
func (h *UserHandler) FindByEmail(c *gin.Context) {
	email := c.Query("email")
	if strings.TrimSpace(email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	user, err := h.directory.FindByEmail(c.Request.Context(), email)
	if err != nil {
		writeError(c, err, "failed to load user")
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}
