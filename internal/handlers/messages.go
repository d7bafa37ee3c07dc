package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dm-service/internal/middleware"
	"dm-service/internal/models"
	"dm-service/internal/observability"
	"dm-service/internal/service"
	"dm-service/internal/telemetry"
	"dm-service/internal/ws"
)

// MessageHandler serves conversations between the caller and another user.
type MessageHandler struct {
	messages *service.Messages
	hub      *ws.Hub
	audit    *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messages *service.Messages, hub *ws.Hub, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{messages: messages, hub: hub, audit: audit}
}

// GetMessages returns the conversation with :user_id as the caller sees it.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	msgs, err := h.messages.GetConversationWithProfiles(c.Request.Context(), c.GetString(middleware.UserIDKey), c.Param("user_id"))
	if err != nil {
		writeError(c, err, "failed to load messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage posts a message to :user_id.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString(middleware.UserIDKey)
	receiverID := c.Param("user_id")
	sent, err := h.messages.SendMessage(c.Request.Context(), userID, receiverID, req.Content)
	if err != nil {
		writeError(c, err, "could not send message")
		return
	}

	msg := sent.Message
	observability.IncMessageSent()
	h.hub.NotifyUsers(models.ChatEvent{Type: models.EventMessage, Message: &msg}, msg.SenderID, msg.ReceiverID)
	_ = observability.PublishEvent(c.Request.Context(), observability.RouteMessageSent, "message_sent", gin.H{
		"message_id":         msg.ID,
		"sender_id":          msg.SenderID,
		"receiver_id":        msg.ReceiverID,
		"sent_at":            msg.Timestamp,
		"reciprocal_created": sent.ReciprocalCreated,
	}, eventHeaders(c))
	emitAudit(c, h.audit, "message.send", "message sent", receiverID)

	c.JSON(http.StatusCreated, msg)
}

// ClearConversation hides the current conversation with :user_id from the
// caller only.
func (h *MessageHandler) ClearConversation(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	otherUserID := c.Param("user_id")

	watermark, err := h.messages.ClearConversation(c.Request.Context(), userID, otherUserID)
	if err != nil {
		writeError(c, err, "could not clear conversation")
		return
	}

	observability.IncConversationCleared()
	clearedAt := watermark.ClearedAt
	h.hub.NotifyUser(userID, models.ChatEvent{Type: models.EventConversationCleared, OtherUserID: otherUserID, ClearedAt: &clearedAt})
	_ = observability.PublishEvent(c.Request.Context(), observability.RouteConversationCleared, "conversation_cleared", gin.H{
		"owner_id":      userID,
		"other_user_id": otherUserID,
		"cleared_at":    clearedAt,
	}, eventHeaders(c))
	emitAudit(c, h.audit, "conversation.clear", "conversation cleared", otherUserID)

	c.Status(http.StatusNoContent)
}

// DeleteMessage removes one of the caller's own messages.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	msg, deleted, err := h.messages.DeleteMessage(c.Request.Context(), c.GetString(middleware.UserIDKey), messageID)
	if err != nil {
		writeError(c, err, "could not delete message")
		return
	}

	if deleted {
		observability.IncMessageDeleted()
		h.hub.NotifyUser(msg.SenderID, models.ChatEvent{Type: models.EventMessageDeleted, MessageID: msg.ID, OtherUserID: msg.ReceiverID})
		h.hub.NotifyUser(msg.ReceiverID, models.ChatEvent{Type: models.EventMessageDeleted, MessageID: msg.ID, OtherUserID: msg.SenderID})
		_ = observability.PublishEvent(c.Request.Context(), observability.RouteMessageDeleted, "message_deleted", gin.H{
			"message_id":  msg.ID,
			"sender_id":   msg.SenderID,
			"receiver_id": msg.ReceiverID,
		}, eventHeaders(c))
		emitAudit(c, h.audit, "message.delete", "message deleted", strconv.FormatInt(msg.ID, 10))
	}

	c.Status(http.StatusNoContent)
}
