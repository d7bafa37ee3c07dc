package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dm-service/internal/middleware"
	"dm-service/internal/models"
	"dm-service/internal/observability"
	"dm-service/internal/service"
	"dm-service/internal/telemetry"
	"dm-service/internal/ws"
)

// ContactHandler serves the caller's contact list.
type ContactHandler struct {
	contacts *service.Contacts
	hub      *ws.Hub
	audit    *telemetry.AuditEmitter
}

// NewContactHandler builds a ContactHandler.
func NewContactHandler(contacts *service.Contacts, hub *ws.Hub, audit *telemetry.AuditEmitter) *ContactHandler {
	return &ContactHandler{contacts: contacts, hub: hub, audit: audit}
}

// ListContacts returns the caller's contacts with profiles, or the raw edges
// when profiles=false.
func (h *ContactHandler) ListContacts(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)

	if c.Query("profiles") == "false" {
		contacts, err := h.contacts.ListContacts(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err, "failed to load contacts")
			return
		}
		c.JSON(http.StatusOK, gin.H{"contacts": contacts})
		return
	}

	contacts, err := h.contacts.ListContactsWithProfiles(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "failed to load contacts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

// AddContact adds a contact by user id.
func (h *ContactHandler) AddContact(c *gin.Context) {
	var req struct {
		ContactID string `json:"contact_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact, err := h.contacts.AddContactByID(c.Request.Context(), c.GetString(middleware.UserIDKey), req.ContactID)
	if err != nil {
		writeError(c, err, "could not add contact")
		return
	}

	observability.IncContactAdded("BY_ID")
	emitAudit(c, h.audit, "contact.add", "contact added by id", contact.ContactID)
	c.JSON(http.StatusOK, contact)
}

// AddContactByEmail adds a contact by email. Routine outcomes come back as a
// status rather than an error status code.
func (h *ContactHandler) AddContactByEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.contacts.AddContactByEmail(c.Request.Context(), c.GetString(middleware.UserIDKey), req.Email)
	if err != nil {
		writeError(c, err, "could not add contact")
		return
	}

	observability.IncContactAdded(string(result.Status))
	status := http.StatusOK
	if result.Status == models.AddContactCreated {
		status = http.StatusCreated
		emitAudit(c, h.audit, "contact.add", "contact added by email", result.ContactID)
	}
	c.JSON(status, result)
}

// DeleteContact removes a contact and erases the conversation with them for
// both sides.
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	contactID := c.Param("contact_id")

	result, err := h.contacts.DeleteContact(c.Request.Context(), userID, contactID)
	if err != nil {
		writeError(c, err, "could not delete contact")
		return
	}

	if result.DeletedContact || result.DeletedMessages > 0 {
		observability.IncContactDeleted()
		h.hub.NotifyUser(userID, models.ChatEvent{Type: models.EventContactDeleted, OtherUserID: contactID, Deleted: &result})
		h.hub.NotifyUser(contactID, models.ChatEvent{Type: models.EventContactDeleted, OtherUserID: userID, Deleted: &result})
		_ = observability.PublishEvent(c.Request.Context(), observability.RouteContactDeleted, "contact_deleted", gin.H{
			"owner_id":         userID,
			"contact_id":       contactID,
			"deleted_contact":  result.DeletedContact,
			"deleted_messages": result.DeletedMessages,
		}, eventHeaders(c))
		emitAudit(c, h.audit, "contact.delete", "contact deleted with conversation", contactID)
	}

	c.JSON(http.StatusOK, result)
}
