package service

import (
	"context"
	"errors"
	"strings"

	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

// Messages stores and retrieves two-party conversations.
type Messages struct {
	users         repositories.UserRepository
	conversations repositories.ConversationRepository
	clock         *Clock
}

// NewMessages constructs a Messages service.
func NewMessages(users repositories.UserRepository, conversations repositories.ConversationRepository, clock *Clock) *Messages {
	return &Messages{users: users, conversations: conversations, clock: clock}
}

// SendMessage appends a message from senderID to receiverID. The sender must
// already have the receiver as a contact; the receiver gets the sender as a
// contact automatically.
func (s *Messages) SendMessage(ctx context.Context, senderID, receiverID, content string) (repositories.SentMessage, error) {
	if senderID == "" {
		return repositories.SentMessage{}, ErrUnauthenticated
	}
	if strings.TrimSpace(content) == "" {
		return repositories.SentMessage{}, ErrEmptyContent
	}

	sent, err := s.conversations.CreateMessage(ctx, senderID, receiverID, content, s.clock.Now())
	if errors.Is(err, repositories.ErrNotContact) {
		return repositories.SentMessage{}, ErrForbidden
	}
	return sent, err
}

// GetConversation returns the conversation as viewerID sees it: every message
// between the pair in chronological order, minus anything at or before the
// viewer's clear watermark.
func (s *Messages) GetConversation(ctx context.Context, viewerID, otherUserID string) ([]models.Message, error) {
	if viewerID == "" {
		return nil, ErrUnauthenticated
	}
	msgs, err := s.conversations.ListConversation(ctx, viewerID, otherUserID)
	if err != nil {
		return nil, err
	}

	watermark, err := s.conversations.GetWatermark(ctx, viewerID, otherUserID)
	if errors.Is(err, repositories.ErrWatermarkNotFound) {
		return msgs, nil
	}
	if err != nil {
		return nil, err
	}

	visible := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if !watermark.Hides(m.Timestamp) {
			visible = append(visible, m)
		}
	}
	return visible, nil
}

// GetConversationWithProfiles is GetConversation with sender and receiver
// names resolved: username, then display name, then the raw id.
func (s *Messages) GetConversationWithProfiles(ctx context.Context, viewerID, otherUserID string) ([]models.MessageWithNames, error) {
	msgs, err := s.GetConversation(ctx, viewerID, otherUserID)
	if err != nil {
		return nil, err
	}

	users, err := s.users.BulkUsers(ctx, []string{viewerID, otherUserID})
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	for _, u := range users {
		names[u.ID] = firstNonEmpty(deref(u.Username), u.DisplayName)
	}
	nameOf := func(id string) string {
		if name := names[id]; name != "" {
			return name
		}
		return id
	}

	result := make([]models.MessageWithNames, 0, len(msgs))
	for _, m := range msgs {
		result = append(result, models.MessageWithNames{
			Message:      m,
			SenderName:   nameOf(m.SenderID),
			ReceiverName: nameOf(m.ReceiverID),
		})
	}
	return result, nil
}

// DeleteMessage removes a message sent by requesterID. Deleting someone
// else's message is forbidden; deleting a missing message is a no-op that
// reports false.
func (s *Messages) DeleteMessage(ctx context.Context, requesterID string, messageID int64) (models.Message, bool, error) {
	if requesterID == "" {
		return models.Message{}, false, ErrUnauthenticated
	}
	msg, err := s.conversations.GetMessage(ctx, messageID)
	if errors.Is(err, repositories.ErrMessageNotFound) {
		return models.Message{}, false, nil
	}
	if err != nil {
		return models.Message{}, false, err
	}
	if msg.SenderID != requesterID {
		return models.Message{}, false, ErrForbidden
	}

	deleted, err := s.conversations.DeleteMessage(ctx, messageID, requesterID)
	if err != nil {
		return models.Message{}, false, err
	}
	return msg, deleted, nil
}

// ClearConversation hides everything currently in the conversation from
// viewerID only. No message is deleted.
func (s *Messages) ClearConversation(ctx context.Context, viewerID, otherUserID string) (models.ClearWatermark, error) {
	if viewerID == "" {
		return models.ClearWatermark{}, ErrUnauthenticated
	}
	return s.conversations.UpsertWatermark(ctx, viewerID, otherUserID, s.clock.Now())
}
