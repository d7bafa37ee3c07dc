package models

import "time"

// User is a profile record keyed by the identity provider's subject id.
type User struct {
	ID          string    `json:"id"`
	Email       *string   `json:"email,omitempty"`
	Username    *string   `json:"username,omitempty"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// ProfileHints are caller-supplied overrides for the derived profile fields.
type ProfileHints struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}
