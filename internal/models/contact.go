package models

import "time"

// Contact is a directed edge letting OwnerID message ContactID.
type Contact struct {
	ID        int64     `json:"id"`
	OwnerID   string    `json:"owner_id"`
	ContactID string    `json:"contact_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactProfile joins a contact edge with the contact's current profile.
type ContactProfile struct {
	Contact
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	AvatarURL *string `json:"avatar_url"`
}

// AddContactStatus is the outcome of adding a contact by email.
type AddContactStatus string

const (
	AddContactNotFound AddContactStatus = "NOT_FOUND"
	AddContactSelf     AddContactStatus = "SELF"
	AddContactExists   AddContactStatus = "EXISTS"
	AddContactCreated  AddContactStatus = "CREATED"
)

// AddContactResult reports what an add-by-email call did.
type AddContactResult struct {
	Status    AddContactStatus `json:"status"`
	ContactID string           `json:"contact_id,omitempty"`
	EdgeID    int64            `json:"edge_id,omitempty"`
}

// DeleteContactResult reports what a contact deletion removed.
type DeleteContactResult struct {
	DeletedContact  bool  `json:"deleted_contact"`
	DeletedMessages int64 `json:"deleted_messages"`
}
