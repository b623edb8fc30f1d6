// internal/auth/repository.go
// Database operations for users and sessions

package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/xperia/xperia-backend/internal/common/database"
)

// Repository defines all database operations for auth
type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error

	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	RevokeSession(ctx context.Context, id string, at time.Time) error
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new auth repository
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const userColumns = `id, email, password_hash, name, phone, is_active, last_login_at, created_at, updated_at`

func (r *postgresRepository) CreateUser(ctx context.Context, user *User) error {
	query := r.db.Rebind(`
		INSERT INTO users (email, password_hash, name, phone, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.QueryRowxContext(ctx, query,
		user.Email, user.PasswordHash, user.Name, user.Phone, user.IsActive,
		user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil && database.IsUniqueViolation(err) {
		return ErrEmailAlreadyExists
	}
	return err
}

func (r *postgresRepository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *postgresRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *postgresRepository) getUser(ctx context.Context, query string, arg interface{}) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *postgresRepository) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := r.db.Rebind(`SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`)
	err := r.db.QueryRowxContext(ctx, query, email).Scan(&exists)
	return exists, err
}

func (r *postgresRepository) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	query := r.db.Rebind(`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, query, at, at, userID)
	return err
}

func (r *postgresRepository) CreateSession(ctx context.Context, session *Session) error {
	query := r.db.Rebind(`
		INSERT INTO auth_sessions (id, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query, session.ID, session.UserID, session.ExpiresAt, session.CreatedAt)
	return err
}

func (r *postgresRepository) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	query := r.db.Rebind(`SELECT id, user_id, expires_at, revoked_at, created_at FROM auth_sessions WHERE id = ?`)
	err := r.db.GetContext(ctx, &session, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *postgresRepository) RevokeSession(ctx context.Context, id string, at time.Time) error {
	query := r.db.Rebind(`UPDATE auth_sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`)
	_, err := r.db.ExecContext(ctx, query, at, id)
	return err
}
