// internal/notification/repository.go

package notifications

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateNotification(ctx context.Context, notification *Notification) error
	GetNotification(ctx context.Context, notificationID int64) (*Notification, error)
	GetUserNotifications(ctx context.Context, userID int64, limit int) ([]*Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkAsRead(ctx context.Context, notificationID int64, at time.Time) error
	MarkAllAsRead(ctx context.Context, userID int64, at time.Time) (int64, error)

	SavePushToken(ctx context.Context, token *PushToken) error
	GetUserPushTokens(ctx context.Context, userID int64) ([]string, error)
	DeletePushToken(ctx context.Context, token string) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const notificationColumns = `id, user_id, title, message, type, is_read, action_url, data, read_at, created_at`

// CreateNotification creates a new notification
func (r *postgresRepository) CreateNotification(ctx context.Context, n *Notification) error {
	query := r.db.Rebind(`
		INSERT INTO notifications (user_id, title, message, type, is_read, action_url, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`)

	return r.db.QueryRowContext(ctx, query,
		n.UserID, n.Title, n.Message, n.Type, n.IsRead, n.ActionURL, n.Data, n.CreatedAt,
	).Scan(&n.ID)
}

// GetNotification retrieves a notification by ID
func (r *postgresRepository) GetNotification(ctx context.Context, notificationID int64) (*Notification, error) {
	var n Notification
	query := r.db.Rebind(`SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`)

	err := r.db.GetContext(ctx, &n, query, notificationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetUserNotifications returns the newest notifications of a user
func (r *postgresRepository) GetUserNotifications(ctx context.Context, userID int64, limit int) ([]*Notification, error) {
	notifications := []*Notification{}
	query := r.db.Rebind(`
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`)

	if err := r.db.SelectContext(ctx, &notifications, query, userID, limit); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *postgresRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = ?`)
	err := r.db.GetContext(ctx, &count, query, userID, false)
	return count, err
}

func (r *postgresRepository) MarkAsRead(ctx context.Context, notificationID int64, at time.Time) error {
	query := r.db.Rebind(`
		UPDATE notifications SET is_read = ?, read_at = ?
		WHERE id = ? AND is_read = ?`)
	_, err := r.db.ExecContext(ctx, query, true, at, notificationID, false)
	return err
}

func (r *postgresRepository) MarkAllAsRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	query := r.db.Rebind(`
		UPDATE notifications SET is_read = ?, read_at = ?
		WHERE user_id = ? AND is_read = ?`)
	res, err := r.db.ExecContext(ctx, query, true, at, userID, false)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SavePushToken registers a device token. A token moves to the latest user
// that registers it.
func (r *postgresRepository) SavePushToken(ctx context.Context, t *PushToken) error {
	query := r.db.Rebind(`
		INSERT INTO push_tokens (user_id, token, platform, device_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (token) DO UPDATE SET
			user_id = excluded.user_id,
			platform = excluded.platform,
			device_id = excluded.device_id,
			updated_at = excluded.updated_at`)

	_, err := r.db.ExecContext(ctx, query, t.UserID, t.Token, t.Platform, t.DeviceID, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *postgresRepository) GetUserPushTokens(ctx context.Context, userID int64) ([]string, error) {
	tokens := []string{}
	query := r.db.Rebind(`SELECT token FROM push_tokens WHERE user_id = ? ORDER BY id`)
	if err := r.db.SelectContext(ctx, &tokens, query, userID); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *postgresRepository) DeletePushToken(ctx context.Context, token string) error {
	query := r.db.Rebind(`DELETE FROM push_tokens WHERE token = ?`)
	_, err := r.db.ExecContext(ctx, query, token)
	return err
}
