package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"dm-service/internal/db"
	"dm-service/internal/models"
)

var (
	ErrMessageNotFound   = errors.New("message not found")
	ErrNotContact        = errors.New("receiver is not a contact of sender")
	ErrWatermarkNotFound = errors.New("clear watermark not found")
)

// ConversationRepository stores messages and per-viewer clear watermarks.
// Conversations are served by the (sender_id, receiver_id) and
// (receiver_id, sender_id) indexes; watermarks by their primary key.
type ConversationRepository interface {
	CreateMessage(ctx context.Context, senderID string, receiverID string, content string, at time.Time) (SentMessage, error)
	ListConversation(ctx context.Context, userID string, otherUserID string) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int64) (models.Message, error)
	DeleteMessage(ctx context.Context, messageID int64, senderID string) (bool, error)
	UpsertWatermark(ctx context.Context, ownerID string, otherUserID string, at time.Time) (models.ClearWatermark, error)
	GetWatermark(ctx context.Context, ownerID string, otherUserID string) (models.ClearWatermark, error)
}

// SentMessage is the outcome of CreateMessage.
type SentMessage struct {
	Message           models.Message
	ReciprocalCreated bool
}

// ConversationRepo is a sqlx-backed ConversationRepository.
type ConversationRepo struct {
	db      *sqlx.DB
	dialect db.Dialect
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(database *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: database, dialect: db.DialectOf(database)}
}

type messageRow struct {
	ID         int64  `db:"id"`
	Content    string `db:"content"`
	SenderID   string `db:"sender_id"`
	ReceiverID string `db:"receiver_id"`
	SentAt     int64  `db:"sent_at"`
}

func (r messageRow) model() models.Message {
	return models.Message{
		ID:         r.ID,
		Content:    r.Content,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Timestamp:  fromMillis(r.SentAt),
	}
}

// lockClause keeps the gating contact row from being deleted until the
// sending transaction commits. SQLite serializes writers, so it needs none.
func (r *ConversationRepo) lockClause() string {
	if r.dialect == db.Postgres {
		return " FOR SHARE"
	}
	return ""
}

// CreateMessage inserts a message if senderID has receiverID as a contact and
// creates the reciprocal edge when it is missing, in a single transaction.
func (r *ConversationRepo) CreateMessage(ctx context.Context, senderID string, receiverID string, content string, at time.Time) (SentMessage, error) {
	var sent SentMessage
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var edgeID int64
		err := tx.GetContext(ctx, &edgeID, tx.Rebind(`SELECT id FROM contacts WHERE owner_id = ? AND contact_id = ?`+r.lockClause()), senderID, receiverID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotContact
		}
		if err != nil {
			return fmt.Errorf("check contact: %w", err)
		}

		row := messageRow{Content: content, SenderID: senderID, ReceiverID: receiverID, SentAt: toMillis(at)}
		if err := tx.QueryRowxContext(ctx, tx.Rebind(`INSERT INTO messages (content, sender_id, receiver_id, sent_at) VALUES (?, ?, ?, ?) RETURNING id`),
			row.Content, row.SenderID, row.ReceiverID, row.SentAt).Scan(&row.ID); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		sent.Message = row.model()

		sent.ReciprocalCreated, err = insertContactIfAbsent(ctx, tx, receiverID, senderID, at)
		return err
	})
	if err != nil {
		return SentMessage{}, err
	}
	return sent, nil
}

// ListConversation returns every message exchanged between the two users in
// ascending timestamp order, ties broken by insertion order.
func (r *ConversationRepo) ListConversation(ctx context.Context, userID string, otherUserID string) ([]models.Message, error) {
	query := `SELECT id, content, sender_id, receiver_id, sent_at FROM messages WHERE sender_id = ? AND receiver_id = ?
        UNION ALL
        SELECT id, content, sender_id, receiver_id, sent_at FROM messages WHERE sender_id = ? AND receiver_id = ?
        ORDER BY sent_at ASC, id ASC`
	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), userID, otherUserID, otherUserID, userID); err != nil {
		return nil, err
	}
	msgs := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, row.model())
	}
	return msgs, nil
}

// GetMessage retrieves a single message.
func (r *ConversationRepo) GetMessage(ctx context.Context, messageID int64) (models.Message, error) {
	var row messageRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT id, content, sender_id, receiver_id, sent_at FROM messages WHERE id = ?`), messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	return row.model(), nil
}

// DeleteMessage permanently removes a message owned by senderID and reports
// whether a row was removed.
func (r *ConversationRepo) DeleteMessage(ctx context.Context, messageID int64, senderID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM messages WHERE id = ? AND sender_id = ?`), messageID, senderID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpsertWatermark records a clear for ownerID's view of otherUserID. The stored
// value only ever moves forward.
func (r *ConversationRepo) UpsertWatermark(ctx context.Context, ownerID string, otherUserID string, at time.Time) (models.ClearWatermark, error) {
	query := `INSERT INTO clear_watermarks (owner_id, other_user_id, cleared_at) VALUES (?, ?, ?)
        ON CONFLICT (owner_id, other_user_id) DO UPDATE SET cleared_at =
            CASE WHEN excluded.cleared_at > clear_watermarks.cleared_at THEN excluded.cleared_at ELSE clear_watermarks.cleared_at END
        RETURNING cleared_at`
	var clearedAt int64
	if err := r.db.QueryRowxContext(ctx, r.db.Rebind(query), ownerID, otherUserID, toMillis(at)).Scan(&clearedAt); err != nil {
		return models.ClearWatermark{}, fmt.Errorf("upsert watermark: %w", err)
	}
	return models.ClearWatermark{OwnerID: ownerID, OtherUserID: otherUserID, ClearedAt: fromMillis(clearedAt)}, nil
}

// GetWatermark fetches ownerID's watermark for otherUserID.
func (r *ConversationRepo) GetWatermark(ctx context.Context, ownerID string, otherUserID string) (models.ClearWatermark, error) {
	var clearedAt int64
	err := r.db.GetContext(ctx, &clearedAt, r.db.Rebind(`SELECT cleared_at FROM clear_watermarks WHERE owner_id = ? AND other_user_id = ?`), ownerID, otherUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ClearWatermark{}, ErrWatermarkNotFound
	}
	if err != nil {
		return models.ClearWatermark{}, err
	}
	return models.ClearWatermark{OwnerID: ownerID, OtherUserID: otherUserID, ClearedAt: fromMillis(clearedAt)}, nil
}
