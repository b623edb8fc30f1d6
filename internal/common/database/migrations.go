// internal/common/database/migrations.go
// Schema creation for Postgres and SQLite

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {{id}},
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		name VARCHAR(100) NOT NULL DEFAULT '',
		phone VARCHAR(30) NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_login_at {{ts}},
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS auth_sessions (
		id VARCHAR(64) PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at {{ts}} NOT NULL,
		revoked_at {{ts}},
		created_at {{ts}} NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS profiles (
		user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(100) NOT NULL,
		age INTEGER NOT NULL,
		bio TEXT NOT NULL DEFAULT '',
		interests {{json}} NOT NULL,
		languages {{json}} NOT NULL,
		travel_style VARCHAR(20) NOT NULL,
		profile_image TEXT NOT NULL DEFAULT '',
		latitude {{float}},
		longitude {{float}},
		city VARCHAR(100) NOT NULL DEFAULT '',
		country VARCHAR(100) NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_seen {{ts}} NOT NULL,
		auto_match BOOLEAN NOT NULL DEFAULT TRUE,
		notification_radius {{float}} NOT NULL DEFAULT 50,
		compatibility_threshold INTEGER NOT NULL DEFAULT 50,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_profiles_active ON profiles(is_active)`,

	`CREATE TABLE IF NOT EXISTS matches (
		id {{id}},
		pair_key VARCHAR(64) UNIQUE NOT NULL,
		user1_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		user2_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		compatibility_score INTEGER NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		match_reason TEXT NOT NULL DEFAULT '',
		common_interests {{json}} NOT NULL,
		suggested_activities {{json}} NOT NULL,
		created_by_agent BOOLEAN NOT NULL DEFAULT FALSE,
		expires_at {{ts}} NOT NULL,
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_user1 ON matches(user1_id)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_user2 ON matches(user2_id)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_status_expiry ON matches(status, expires_at)`,

	`CREATE TABLE IF NOT EXISTS conversations (
		id {{id}},
		match_id BIGINT UNIQUE NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
		participant1_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		participant2_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_message TEXT,
		last_message_at {{ts}},
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_p1 ON conversations(participant1_id)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_p2 ON conversations(participant2_id)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id {{id}},
		conversation_id BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		sender_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		message_type VARCHAR(20) NOT NULL DEFAULT 'text',
		is_from_agent BOOLEAN NOT NULL DEFAULT FALSE,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id {{id}},
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		type VARCHAR(20) NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		action_url TEXT,
		data {{json}},
		read_at {{ts}},
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS push_tokens (
		id {{id}},
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token TEXT UNIQUE NOT NULL,
		platform VARCHAR(20) NOT NULL,
		device_id VARCHAR(255) NOT NULL DEFAULT '',
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_push_tokens_user ON push_tokens(user_id)`,
}

// Migrate creates all tables and indexes using the column types of the
// connected driver
func Migrate(ctx context.Context, db *sqlx.DB) error {
	replacer := dialectTypes(db.DriverName())

	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, replacer.Replace(stmt)); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	return nil
}

func dialectTypes(driver string) *strings.Replacer {
	if driver == "sqlite3" {
		return strings.NewReplacer(
			"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{ts}}", "TIMESTAMP",
			"{{float}}", "REAL",
			"{{json}}", "TEXT",
		)
	}

	return strings.NewReplacer(
		"{{id}}", "BIGSERIAL PRIMARY KEY",
		"{{ts}}", "TIMESTAMPTZ",
		"{{float}}", "DOUBLE PRECISION",
		"{{json}}", "JSONB",
	)
}
