// internal/messaging/repository.go

package messaging

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/xperia/xperia-backend/internal/common/database"
)

// Repository interface for data access
type Repository interface {
	CreateForMatch(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, conversationID int64) (*Conversation, error)
	GetByMatchID(ctx context.Context, matchID int64) (*Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]*ConversationSummary, error)

	CreateMessage(ctx context.Context, message *Message) error
	GetConversationMessages(ctx context.Context, conversationID int64) ([]*Message, error)
	UpdateConversationLastMessage(ctx context.Context, conversationID int64, preview string, at time.Time) error

	GetUserInfo(ctx context.Context, userID int64) (*UserInfo, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const conversationColumns = `id, match_id, participant1_id, participant2_id, is_active, last_message, last_message_at, created_at`

// CreateForMatch inserts the conversation unless the match already has one
func (r *postgresRepository) CreateForMatch(ctx context.Context, c *Conversation) error {
	query := r.db.Rebind(`
		INSERT INTO conversations (match_id, participant1_id, participant2_id, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (match_id) DO NOTHING`)

	_, err := r.db.ExecContext(ctx, query, c.MatchID, c.Participant1ID, c.Participant2ID, c.IsActive, c.CreatedAt)
	return err
}

func (r *postgresRepository) GetConversation(ctx context.Context, conversationID int64) (*Conversation, error) {
	return r.getConversation(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, conversationID)
}

func (r *postgresRepository) GetByMatchID(ctx context.Context, matchID int64) (*Conversation, error) {
	return r.getConversation(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE match_id = ?`, matchID)
}

func (r *postgresRepository) getConversation(ctx context.Context, query string, arg int64) (*Conversation, error) {
	var c Conversation
	err := r.db.GetContext(ctx, &c, r.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type conversationRow struct {
	Conversation
	OtherUserID        int64               `db:"other_user_id"`
	OtherName          string              `db:"other_name"`
	OtherImage         string              `db:"other_image"`
	CompatibilityScore int                 `db:"compatibility_score"`
	MatchReason        string              `db:"match_reason"`
	CommonInterests    database.StringList `db:"common_interests"`
}

// ListForUser returns the user's conversations, most recent activity first,
// joined with the counterpart and the match
func (r *postgresRepository) ListForUser(ctx context.Context, userID int64) ([]*ConversationSummary, error) {
	query := r.db.Rebind(`
		SELECT c.id, c.match_id, c.participant1_id, c.participant2_id, c.is_active,
			c.last_message, c.last_message_at, c.created_at,
			u.id AS other_user_id,
			COALESCE(p.name, u.name) AS other_name,
			COALESCE(p.profile_image, '') AS other_image,
			m.compatibility_score, m.match_reason, m.common_interests
		FROM conversations c
		JOIN matches m ON m.id = c.match_id
		JOIN users u ON u.id = CASE WHEN c.participant1_id = ? THEN c.participant2_id ELSE c.participant1_id END
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE c.participant1_id = ? OR c.participant2_id = ?
		ORDER BY COALESCE(c.last_message_at, c.created_at) DESC, c.id DESC`)

	var rows []conversationRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, userID, userID); err != nil {
		return nil, err
	}

	summaries := make([]*ConversationSummary, 0, len(rows))
	for i := range rows {
		row := rows[i]
		conv := row.Conversation
		summaries = append(summaries, &ConversationSummary{
			Conversation: &conv,
			OtherUser: &UserInfo{
				UserID:       row.OtherUserID,
				Name:         row.OtherName,
				ProfileImage: row.OtherImage,
			},
			Match: &MatchSummary{
				ID:                 conv.MatchID,
				CompatibilityScore: row.CompatibilityScore,
				MatchReason:        row.MatchReason,
				CommonInterests:    row.CommonInterests,
			},
		})
	}
	return summaries, nil
}

func (r *postgresRepository) CreateMessage(ctx context.Context, m *Message) error {
	query := r.db.Rebind(`
		INSERT INTO messages (conversation_id, sender_id, content, message_type, is_from_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)

	return r.db.QueryRowContext(ctx, query,
		m.ConversationID, m.SenderID, m.Content, m.MessageType, m.IsFromAgent, m.CreatedAt,
	).Scan(&m.ID)
}

type messageRow struct {
	Message
	SenderName  string `db:"sender_name"`
	SenderImage string `db:"sender_image"`
}

// GetConversationMessages returns every message of a conversation, oldest
// first, with its sender
func (r *postgresRepository) GetConversationMessages(ctx context.Context, conversationID int64) ([]*Message, error) {
	query := r.db.Rebind(`
		SELECT msg.id, msg.conversation_id, msg.sender_id, msg.content, msg.message_type,
			msg.is_from_agent, msg.created_at,
			COALESCE(p.name, u.name) AS sender_name,
			COALESCE(p.profile_image, '') AS sender_image
		FROM messages msg
		JOIN users u ON u.id = msg.sender_id
		LEFT JOIN profiles p ON p.user_id = msg.sender_id
		WHERE msg.conversation_id = ?
		ORDER BY msg.created_at ASC, msg.id ASC`)

	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, query, conversationID); err != nil {
		return nil, err
	}

	messages := make([]*Message, 0, len(rows))
	for i := range rows {
		msg := rows[i].Message
		msg.Sender = &UserInfo{
			UserID:       msg.SenderID,
			Name:         rows[i].SenderName,
			ProfileImage: rows[i].SenderImage,
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

func (r *postgresRepository) UpdateConversationLastMessage(ctx context.Context, conversationID int64, preview string, at time.Time) error {
	query := r.db.Rebind(`UPDATE conversations SET last_message = ?, last_message_at = ? WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, query, preview, at, conversationID)
	return err
}

// GetUserInfo returns the display name and image of a user, preferring the
// traveler profile over the account
func (r *postgresRepository) GetUserInfo(ctx context.Context, userID int64) (*UserInfo, error) {
	var row struct {
		Name  string `db:"name"`
		Image string `db:"image"`
	}
	query := r.db.Rebind(`
		SELECT COALESCE(p.name, u.name) AS name, COALESCE(p.profile_image, '') AS image
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = ?`)

	err := r.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &UserInfo{UserID: userID, Name: row.Name, ProfileImage: row.Image}, nil
}
