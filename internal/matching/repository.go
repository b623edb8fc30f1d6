// internal/matching/repository.go

package matching

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// Repository is the match store
type Repository interface {
	FindExisting(ctx context.Context, a, b int64) (*Match, error)
	Insert(ctx context.Context, match *Match) (bool, error)
	Get(ctx context.Context, id int64) (*Match, error)
	SetStatus(ctx context.Context, id int64, to Status, from ...Status) (bool, error)
	ListForUser(ctx context.Context, userID int64) ([]*Match, error)
	ListExpiredPending(ctx context.Context, now time.Time) ([]*Match, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const matchColumns = `id, pair_key, user1_id, user2_id, compatibility_score, status, match_reason,
	common_interests, suggested_activities, created_by_agent, expires_at, created_at, updated_at`

// FindExisting returns the match of a pair in any status, or nil
func (r *postgresRepository) FindExisting(ctx context.Context, a, b int64) (*Match, error) {
	var m Match
	err := r.db.GetContext(ctx, &m, r.db.Rebind(`SELECT `+matchColumns+` FROM matches WHERE pair_key = ?`), PairKey(a, b))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Insert stores a new match and fills its ID. It returns false when the
// pair already has a match.
func (r *postgresRepository) Insert(ctx context.Context, m *Match) (bool, error) {
	m.PairKey = PairKey(m.User1ID, m.User2ID)

	query := r.db.Rebind(`
		INSERT INTO matches (pair_key, user1_id, user2_id, compatibility_score, status, match_reason,
			common_interests, suggested_activities, created_by_agent, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (pair_key) DO NOTHING
		RETURNING id`)

	err := r.db.QueryRowContext(ctx, query,
		m.PairKey, m.User1ID, m.User2ID, m.CompatibilityScore, m.Status, m.MatchReason,
		m.CommonInterests, m.SuggestedActivities, m.CreatedByAgent, m.ExpiresAt, m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *postgresRepository) Get(ctx context.Context, id int64) (*Match, error) {
	var m Match
	err := r.db.GetContext(ctx, &m, r.db.Rebind(`SELECT `+matchColumns+` FROM matches WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// SetStatus moves the match to status to. With from given, only a match
// currently in one of those states is changed. It reports whether a row
// changed.
func (r *postgresRepository) SetStatus(ctx context.Context, id int64, to Status, from ...Status) (bool, error) {
	query := `UPDATE matches SET status = ?, updated_at = ? WHERE id = ?`
	args := []interface{}{to, time.Now().UTC(), id}

	if len(from) > 0 {
		inQuery, inArgs, err := sqlx.In(` AND status IN (?)`, from)
		if err != nil {
			return false, err
		}
		query += inQuery
		args = append(args, inArgs...)
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n > 0, err
}

// ListForUser returns the user's open and mutual matches, newest first.
// Declined and expired matches are hidden.
func (r *postgresRepository) ListForUser(ctx context.Context, userID int64) ([]*Match, error) {
	query := r.db.Rebind(`
		SELECT ` + matchColumns + `
		FROM matches
		WHERE (user1_id = ? OR user2_id = ?) AND status NOT IN (?, ?)
		ORDER BY created_at DESC, id DESC`)

	matches := []*Match{}
	if err := r.db.SelectContext(ctx, &matches, query, userID, userID, StatusDeclined, StatusExpired); err != nil {
		return nil, err
	}
	return matches, nil
}

// ListExpiredPending returns pending matches whose expiry is strictly
// before now
func (r *postgresRepository) ListExpiredPending(ctx context.Context, now time.Time) ([]*Match, error) {
	query := r.db.Rebind(`
		SELECT ` + matchColumns + `
		FROM matches
		WHERE status = ? AND expires_at < ?
		ORDER BY expires_at ASC, id ASC`)

	matches := []*Match{}
	if err := r.db.SelectContext(ctx, &matches, query, StatusPending, now.UTC()); err != nil {
		return nil, err
	}
	return matches, nil
}
