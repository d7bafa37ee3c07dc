package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) UpsertUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) BulkUsers(ctx context.Context, ids []string) ([]models.User, error) {
	args := m.Called(ctx, ids)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type ContactRepositoryMock struct {
	mock.Mock
}

func (m *ContactRepositoryMock) AddContact(ctx context.Context, ownerID string, contactID string, at time.Time) (models.Contact, bool, error) {
	args := m.Called(ctx, ownerID, contactID, at)
	var contact models.Contact
	if val := args.Get(0); val != nil {
		contact = val.(models.Contact)
	}
	return contact, args.Bool(1), args.Error(2)
}

func (m *ContactRepositoryMock) GetContact(ctx context.Context, ownerID string, contactID string) (models.Contact, error) {
	args := m.Called(ctx, ownerID, contactID)
	var contact models.Contact
	if val := args.Get(0); val != nil {
		contact = val.(models.Contact)
	}
	return contact, args.Error(1)
}

func (m *ContactRepositoryMock) ListContacts(ctx context.Context, ownerID string) ([]models.Contact, error) {
	args := m.Called(ctx, ownerID)
	var list []models.Contact
	if val := args.Get(0); val != nil {
		list = val.([]models.Contact)
	}
	return list, args.Error(1)
}

func (m *ContactRepositoryMock) ListContactsWithProfiles(ctx context.Context, ownerID string) ([]repositories.ContactWithUser, error) {
	args := m.Called(ctx, ownerID)
	var list []repositories.ContactWithUser
	if val := args.Get(0); val != nil {
		list = val.([]repositories.ContactWithUser)
	}
	return list, args.Error(1)
}

func (m *ContactRepositoryMock) DeleteContact(ctx context.Context, ownerID string, contactID string) (models.DeleteContactResult, error) {
	args := m.Called(ctx, ownerID, contactID)
	var result models.DeleteContactResult
	if val := args.Get(0); val != nil {
		result = val.(models.DeleteContactResult)
	}
	return result, args.Error(1)
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) CreateMessage(ctx context.Context, senderID string, receiverID string, content string, at time.Time) (repositories.SentMessage, error) {
	args := m.Called(ctx, senderID, receiverID, content, at)
	var sent repositories.SentMessage
	if val := args.Get(0); val != nil {
		sent = val.(repositories.SentMessage)
	}
	return sent, args.Error(1)
}

func (m *ConversationRepositoryMock) ListConversation(ctx context.Context, userID string, otherUserID string) ([]models.Message, error) {
	args := m.Called(ctx, userID, otherUserID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *ConversationRepositoryMock) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ConversationRepositoryMock) DeleteMessage(ctx context.Context, messageID int64, senderID string) (bool, error) {
	args := m.Called(ctx, messageID, senderID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) UpsertWatermark(ctx context.Context, ownerID string, otherUserID string, at time.Time) (models.ClearWatermark, error) {
	args := m.Called(ctx, ownerID, otherUserID, at)
	var w models.ClearWatermark
	if val := args.Get(0); val != nil {
		w = val.(models.ClearWatermark)
	}
	return w, args.Error(1)
}

func (m *ConversationRepositoryMock) GetWatermark(ctx context.Context, ownerID string, otherUserID string) (models.ClearWatermark, error) {
	args := m.Called(ctx, ownerID, otherUserID)
	var w models.ClearWatermark
	if val := args.Get(0); val != nil {
		w = val.(models.ClearWatermark)
	}
	return w, args.Error(1)
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.ContactRepository = (*ContactRepositoryMock)(nil)
var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
