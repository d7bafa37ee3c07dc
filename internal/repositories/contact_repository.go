package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"dm-service/internal/models"
)

var ErrContactNotFound = errors.New("contact not found")

// ContactRepository abstracts the directed contact graph.
type ContactRepository interface {
	AddContact(ctx context.Context, ownerID string, contactID string, at time.Time) (models.Contact, bool, error)
	GetContact(ctx context.Context, ownerID string, contactID string) (models.Contact, error)
	ListContacts(ctx context.Context, ownerID string) ([]models.Contact, error)
	ListContactsWithProfiles(ctx context.Context, ownerID string) ([]ContactWithUser, error)
	DeleteContact(ctx context.Context, ownerID string, contactID string) (models.DeleteContactResult, error)
}

// ContactWithUser is a contact edge left-joined with the contact's user row.
// User is nil when no profile exists for the contact.
type ContactWithUser struct {
	Contact models.Contact
	User    *models.User
}

// ContactRepo is a sqlx implementation of ContactRepository.
type ContactRepo struct {
	db *sqlx.DB
}

// NewContactRepo constructs a ContactRepo.
func NewContactRepo(db *sqlx.DB) *ContactRepo {
	return &ContactRepo{db: db}
}

type contactRow struct {
	ID        int64  `db:"id"`
	OwnerID   string `db:"owner_id"`
	ContactID string `db:"contact_id"`
	CreatedAt int64  `db:"created_at"`
}

func (r contactRow) model() models.Contact {
	return models.Contact{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		ContactID: r.ContactID,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Rebind(query string) string
}

// insertContactIfAbsent relies on the (owner_id, contact_id) unique constraint so
// concurrent duplicate adds never create a second edge.
func insertContactIfAbsent(ctx context.Context, e execer, ownerID, contactID string, at time.Time) (bool, error) {
	res, err := e.ExecContext(ctx, e.Rebind(`INSERT INTO contacts (owner_id, contact_id, created_at) VALUES (?, ?, ?)
        ON CONFLICT (owner_id, contact_id) DO NOTHING`), ownerID, contactID, toMillis(at))
	if err != nil {
		return false, fmt.Errorf("insert contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddContact inserts the edge when absent and reports whether it was created.
func (r *ContactRepo) AddContact(ctx context.Context, ownerID string, contactID string, at time.Time) (models.Contact, bool, error) {
	if ownerID == contactID {
		return models.Contact{}, false, errors.New("cannot add self as contact")
	}
	created, err := insertContactIfAbsent(ctx, r.db, ownerID, contactID, at)
	if err != nil {
		return models.Contact{}, false, err
	}
	contact, err := r.GetContact(ctx, ownerID, contactID)
	if err != nil {
		return models.Contact{}, false, err
	}
	return contact, created, nil
}

// GetContact fetches a single directed edge.
func (r *ContactRepo) GetContact(ctx context.Context, ownerID string, contactID string) (models.Contact, error) {
	var row contactRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT id, owner_id, contact_id, created_at FROM contacts WHERE owner_id = ? AND contact_id = ?`), ownerID, contactID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contact{}, ErrContactNotFound
	}
	if err != nil {
		return models.Contact{}, err
	}
	return row.model(), nil
}

// ListContacts returns every edge owned by ownerID.
func (r *ContactRepo) ListContacts(ctx context.Context, ownerID string) ([]models.Contact, error) {
	var rows []contactRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`SELECT id, owner_id, contact_id, created_at FROM contacts WHERE owner_id = ? ORDER BY id`), ownerID); err != nil {
		return nil, err
	}
	contacts := make([]models.Contact, 0, len(rows))
	for _, row := range rows {
		contacts = append(contacts, row.model())
	}
	return contacts, nil
}

// ListContactsWithProfiles returns every edge owned by ownerID joined with the
// contact's current user row.
func (r *ContactRepo) ListContactsWithProfiles(ctx context.Context, ownerID string) ([]ContactWithUser, error) {
	query := `SELECT c.id, c.owner_id, c.contact_id, c.created_at,
            u.id AS user_id, u.email, u.username, u.display_name, u.avatar_url, u.last_seen_at
        FROM contacts c
        LEFT JOIN users u ON u.id = c.contact_id
        WHERE c.owner_id = ?
        ORDER BY c.id`
	rows, err := r.db.QueryxContext(ctx, r.db.Rebind(query), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []ContactWithUser{}
	for rows.Next() {
		var (
			contact     contactRow
			userID      *string
			email       *string
			username    *string
			displayName *string
			avatarURL   *string
			lastSeenAt  *int64
		)
		if err := rows.Scan(&contact.ID, &contact.OwnerID, &contact.ContactID, &contact.CreatedAt,
			&userID, &email, &username, &displayName, &avatarURL, &lastSeenAt); err != nil {
			return nil, err
		}
		item := ContactWithUser{Contact: contact.model()}
		if userID != nil {
			user := models.User{ID: *userID, Email: email, Username: username, AvatarURL: avatarURL}
			if displayName != nil {
				user.DisplayName = *displayName
			}
			if lastSeenAt != nil {
				user.LastSeenAt = fromMillis(*lastSeenAt)
			}
			item.User = &user
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// DeleteContact removes the owner's edge and erases the whole conversation
// between the pair, in both directions, together with both clear watermarks.
// All of it happens in one transaction.
func (r *ContactRepo) DeleteContact(ctx context.Context, ownerID string, contactID string) (models.DeleteContactResult, error) {
	var result models.DeleteContactResult
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM contacts WHERE owner_id = ? AND contact_id = ?`), ownerID, contactID)
		if err != nil {
			return fmt.Errorf("delete contact: %w", err)
		}
		edges, err := res.RowsAffected()
		if err != nil {
			return err
		}
		result.DeletedContact = edges > 0

		res, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM messages
            WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)`),
			ownerID, contactID, contactID, ownerID)
		if err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if result.DeletedMessages, err = res.RowsAffected(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM clear_watermarks
            WHERE (owner_id = ? AND other_user_id = ?) OR (owner_id = ? AND other_user_id = ?)`),
			ownerID, contactID, contactID, ownerID); err != nil {
			return fmt.Errorf("delete watermarks: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.DeleteContactResult{}, err
	}
	return result, nil
}
