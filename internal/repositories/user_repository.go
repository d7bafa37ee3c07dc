package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"dm-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository abstracts the user directory.
type UserRepository interface {
	UpsertUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, userID string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	BulkUsers(ctx context.Context, ids []string) ([]models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

type userRow struct {
	ID          string  `db:"id"`
	Email       *string `db:"email"`
	Username    *string `db:"username"`
	DisplayName string  `db:"display_name"`
	AvatarURL   *string `db:"avatar_url"`
	LastSeenAt  int64   `db:"last_seen_at"`
}

func (r userRow) model() models.User {
	return models.User{
		ID:          r.ID,
		Email:       r.Email,
		Username:    r.Username,
		DisplayName: r.DisplayName,
		AvatarURL:   r.AvatarURL,
		LastSeenAt:  fromMillis(r.LastSeenAt),
	}
}

const userColumns = `id, email, username, display_name, avatar_url, last_seen_at`

// UpsertUser inserts the user or replaces its mutable profile fields.
func (r *UserRepo) UpsertUser(ctx context.Context, user models.User) error {
	query := r.db.Rebind(`INSERT INTO users (id, email, username, display_name, avatar_url, last_seen_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            email = excluded.email,
            username = excluded.username,
            display_name = excluded.display_name,
            avatar_url = excluded.avatar_url,
            last_seen_at = excluded.last_seen_at`)
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.Username, user.DisplayName, user.AvatarURL, toMillis(user.LastSeenAt))
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUser fetches a user by subject id.
func (r *UserRepo) GetUser(ctx context.Context, userID string) (models.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return row.model(), nil
}

// GetUserByEmail fetches the first user whose stored email matches exactly.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ? ORDER BY id LIMIT 1`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return row.model(), nil
}

// BulkUsers fetches the users that exist among ids.
func (r *UserRepo) BulkUsers(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.model())
	}
	return users, nil
}
