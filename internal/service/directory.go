package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dm-service/internal/identity"
	"dm-service/internal/models"
	"dm-service/internal/repositories"
)

const anonymousName = "Anonymous"

// Directory keeps user profiles fresh and answers profile lookups.
type Directory struct {
	users repositories.UserRepository
	clock *Clock
}

// NewDirectory constructs a Directory.
func NewDirectory(users repositories.UserRepository, clock *Clock) *Directory {
	return &Directory{users: users, clock: clock}
}

// UpsertCurrentUser creates or refreshes the caller's profile and returns its id.
func (d *Directory) UpsertCurrentUser(ctx context.Context, id identity.Identity, hints models.ProfileHints) (string, error) {
	if strings.TrimSpace(id.Subject) == "" {
		return "", ErrUnauthenticated
	}

	existing, err := d.users.GetUser(ctx, id.Subject)
	if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
		return "", fmt.Errorf("load user: %w", err)
	}
	found := err == nil

	user := models.User{
		ID:          id.Subject,
		DisplayName: firstNonEmpty(hints.Name, id.Name, id.GivenName, id.FamilyName, emailLocalPart(id.Email), anonymousName),
		LastSeenAt:  d.clock.Now(),
	}
	user.Username = firstNonEmptyPtr(hints.Username, id.Username)
	user.Email = firstNonEmptyPtr(id.Email)
	user.AvatarURL = firstNonEmptyPtr(id.AvatarURL)
	if found {
		if user.Username == nil {
			user.Username = existing.Username
		}
		if user.Email == nil {
			user.Email = existing.Email
		}
		if user.AvatarURL == nil {
			user.AvatarURL = existing.AvatarURL
		}
	}

	if err := d.users.UpsertUser(ctx, user); err != nil {
		return "", err
	}
	return user.ID, nil
}

// GetUserByID returns the user or nil when none exists.
func (d *Directory) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return optionalUser(d.users.GetUser(ctx, userID))
}

// FindByEmail returns the user whose stored email matches exactly, or nil.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return optionalUser(d.users.GetUserByEmail(ctx, email))
}

func optionalUser(user models.User, err error) (*models.User, error) {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptyPtr(values ...string) *string {
	if v := firstNonEmpty(values...); v != "" {
		return &v
	}
	return nil
}

func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}
