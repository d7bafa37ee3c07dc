package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

// Contacts manages the directed contact graph.
type Contacts struct {
	users    repositories.UserRepository
	contacts repositories.ContactRepository
	clock    *Clock
}

// NewContacts constructs a Contacts service.
func NewContacts(users repositories.UserRepository, contacts repositories.ContactRepository, clock *Clock) *Contacts {
	return &Contacts{users: users, contacts: contacts, clock: clock}
}

// AddContactByID adds contactID to ownerID's contacts. Adding an existing
// contact returns the existing edge.
func (s *Contacts) AddContactByID(ctx context.Context, ownerID, contactID string) (models.Contact, error) {
	if ownerID == "" {
		return models.Contact{}, ErrUnauthenticated
	}
	contactID = strings.TrimSpace(contactID)
	if ownerID == contactID {
		return models.Contact{}, ErrSelfReference
	}
	if _, err := s.users.GetUser(ctx, contactID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.Contact{}, fmt.Errorf("%w: no user with id %q", ErrNotFound, contactID)
		}
		return models.Contact{}, err
	}

	contact, _, err := s.contacts.AddContact(ctx, ownerID, contactID, s.clock.Now())
	return contact, err
}

// AddContactByEmail resolves email and adds the matching user. Routine
// outcomes are reported in the result rather than as errors.
func (s *Contacts) AddContactByEmail(ctx context.Context, ownerID, email string) (models.AddContactResult, error) {
	if ownerID == "" {
		return models.AddContactResult{}, ErrUnauthenticated
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.AddContactResult{Status: models.AddContactNotFound}, nil
	}
	if err != nil {
		return models.AddContactResult{}, err
	}
	if user.ID == ownerID {
		return models.AddContactResult{Status: models.AddContactSelf, ContactID: user.ID}, nil
	}

	contact, created, err := s.contacts.AddContact(ctx, ownerID, user.ID, s.clock.Now())
	if err != nil {
		return models.AddContactResult{}, err
	}
	status := models.AddContactExists
	if created {
		status = models.AddContactCreated
	}
	return models.AddContactResult{Status: status, ContactID: user.ID, EdgeID: contact.ID}, nil
}

// ListContacts returns the raw edges owned by ownerID.
func (s *Contacts) ListContacts(ctx context.Context, ownerID string) ([]models.Contact, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	return s.contacts.ListContacts(ctx, ownerID)
}

// ListContactsWithProfiles returns ownerID's edges with each contact's profile.
// The name falls back to the username, then to the raw id.
func (s *Contacts) ListContactsWithProfiles(ctx context.Context, ownerID string) ([]models.ContactProfile, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	items, err := s.contacts.ListContactsWithProfiles(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	result := make([]models.ContactProfile, 0, len(items))
	for _, item := range items {
		profile := models.ContactProfile{Contact: item.Contact, Name: item.Contact.ContactID}
		if u := item.User; u != nil {
			profile.Name = firstNonEmpty(u.DisplayName, deref(u.Username), item.Contact.ContactID)
			profile.Email = u.Email
			profile.AvatarURL = u.AvatarURL
		}
		result = append(result, profile)
	}
	return result, nil
}

// DeleteContact removes ownerID's edge to contactID and erases the whole
// conversation between them. A missing edge reports zero counts.
func (s *Contacts) DeleteContact(ctx context.Context, ownerID, contactID string) (models.DeleteContactResult, error) {
	if ownerID == "" {
		return models.DeleteContactResult{}, ErrUnauthenticated
	}
	if ownerID == contactID {
		return models.DeleteContactResult{}, nil
	}
	return s.contacts.DeleteContact(ctx, ownerID, contactID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
