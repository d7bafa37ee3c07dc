package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dm-service/internal/mocks"
	"dm-service/internal/models"
	"dm-service/internal/observability"
	"dm-service/internal/repositories"
	"dm-service/internal/service"
	"dm-service/internal/telemetry"
	"dm-service/internal/ws"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	r := setupRouter()
	r.GET("/conversations/:user_id/messages", handler.GetMessages)
	r.POST("/conversations/:user_id/messages", handler.SendMessage)
	r.POST("/conversations/:user_id/clear", handler.ClearConversation)
	r.DELETE("/messages/:message_id", handler.DeleteMessage)
	return r
}

func newMessageHandler(users *mocks.UserRepositoryMock, conversations *mocks.ConversationRepositoryMock, audit *telemetry.AuditEmitter) *MessageHandler {
	return NewMessageHandler(service.NewMessages(users, conversations, testClock()), ws.NewHub(), audit)
}

func TestSendMessageSuccess(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	emitter, auditPublisher := newAuditEmitter(t)
	events := new(mocks.PublisherMock)
	observability.SetPublisher(events)
	t.Cleanup(func() { observability.SetPublisher(nil) })
	router := setupMessageRouter(newMessageHandler(new(mocks.UserRepositoryMock), conversations, emitter))

	sent := repositories.SentMessage{
		Message:           models.Message{ID: 11, Content: "hi", SenderID: "user-a", ReceiverID: "user-b", Timestamp: fixedNow},
		ReciprocalCreated: true,
	}
	conversations.On("CreateMessage", mock.Anything, "user-a", "user-b", "hi", fixedNow).Return(sent, nil).Once()
	events.On("Publish", mock.Anything, observability.RouteMessageSent, mock.Anything, mock.Anything).Return(nil).Once()
	auditPublisher.On("Publish", mock.Anything, "audit.dm", mock.MatchedBy(func(env telemetry.AuditEnvelope) bool {
		return env.Payload.Action == "message.send" && env.Payload.TargetID == "user-b"
	}), mock.Anything).Return(nil).Once()

	rec := doRequest(router, http.MethodPost, "/conversations/user-b/messages", `{"content":"hi"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var msg models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, int64(11), msg.ID)
	assert.Equal(t, "user-b", msg.ReceiverID)
	conversations.AssertExpectations(t)
	events.AssertExpectations(t)
	auditPublisher.AssertExpectations(t)
}

func TestSendMessageWithoutContactIsForbidden(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	router := setupMessageRouter(newMessageHandler(new(mocks.UserRepositoryMock), conversations, nil))

	conversations.On("CreateMessage", mock.Anything, "user-a", "user-c", "hi", fixedNow).
		Return(repositories.SentMessage{}, repositories.ErrNotContact).Once()

	rec := doRequest(router, http.MethodPost, "/conversations/user-c/messages", `{"content":"hi"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	conversations.AssertExpectations(t)
}

func TestSendMessageRejectsBlankContent(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	router := setupMessageRouter(newMessageHandler(new(mocks.UserRepositoryMock), conversations, nil))

	rec := doRequest(router, http.MethodPost, "/conversations/user-b/messages", `{"content":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPost, "/conversations/user-b/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	conversations.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetMessagesAppliesWatermarkAndNames(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	conversations := new(mocks.ConversationRepositoryMock)
	router := setupMessageRouter(newMessageHandler(users, conversations, nil))

	early := models.Message{ID: 1, Content: "old", SenderID: "user-a", ReceiverID: "user-b", Timestamp: fixedNow.Add(-2 * time.Second)}
	late := models.Message{ID: 2, Content: "new", SenderID: "user-b", ReceiverID: "user-a", Timestamp: fixedNow.Add(2 * time.Second)}
	conversations.On("ListConversation", mock.Anything, "user-a", "user-b").Return([]models.Message{early, late}, nil).Once()
	conversations.On("GetWatermark", mock.Anything, "user-a", "user-b").
		Return(models.ClearWatermark{OwnerID: "user-a", OtherUserID: "user-b", ClearedAt: fixedNow}, nil).Once()
	users.On("BulkUsers", mock.Anything, []string{"user-a", "user-b"}).
		Return([]models.User{{ID: "user-a", Username: strPtr("ann")}, {ID: "user-b", DisplayName: "Bob"}}, nil).Once()

	rec := doRequest(router, http.MethodGet, "/conversations/user-b/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []models.MessageWithNames `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "new", resp.Messages[0].Content)
	assert.Equal(t, "Bob", resp.Messages[0].SenderName)
	assert.Equal(t, "ann", resp.Messages[0].ReceiverName)
	users.AssertExpectations(t)
	conversations.AssertExpectations(t)
}

func TestClearConversation(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	router := setupMessageRouter(newMessageHandler(new(mocks.UserRepositoryMock), conversations, nil))

	conversations.On("UpsertWatermark", mock.Anything, "user-a", "user-b", fixedNow).
		Return(models.ClearWatermark{OwnerID: "user-a", OtherUserID: "user-b", ClearedAt: fixedNow}, nil).Once()

	rec := doRequest(router, http.MethodPost, "/conversations/user-b/clear", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	conversations.AssertExpectations(t)
}

func TestDeleteMessage(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	router := setupMessageRouter(newMessageHandler(new(mocks.UserRepositoryMock), conversations, nil))

	own := models.Message{ID: 3, SenderID: "user-a", ReceiverID: "user-b"}
	conversations.On("GetMessage", mock.Anything, int64(3)).Return(own, nil).Once()
	conversations.On("DeleteMessage", mock.Anything, int64(3), "user-a").Return(true, nil).Once()

	rec := doRequest(router, http.MethodDelete, "/messages/3", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	conversations.AssertExpectations(t)
}

func TestDeleteMessageErrors(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	router := setupMessageRouter(newMessageHandler(new(mocks.UserRepositoryMock), conversations, nil))

	conversations.On("GetMessage", mock.Anything, int64(4)).
		Return(models.Message{ID: 4, SenderID: "user-b", ReceiverID: "user-a"}, nil).Once()
	conversations.On("GetMessage", mock.Anything, int64(5)).
		Return(models.Message{}, repositories.ErrMessageNotFound).Once()

	assert.Equal(t, http.StatusForbidden, doRequest(router, http.MethodDelete, "/messages/4", "").Code)
	assert.Equal(t, http.StatusNoContent, doRequest(router, http.MethodDelete, "/messages/5", "").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodDelete, "/messages/abc", "").Code)
	conversations.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything)
	conversations.AssertExpectations(t)
}
