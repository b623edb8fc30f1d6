// internal/travelers/repository.go
// Database operations for traveler profiles

package travelers

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// Repository defines all database operations for profiles
type Repository interface {
	Create(ctx context.Context, profile *Profile) (bool, error)
	Update(ctx context.Context, profile *Profile) error
	Get(ctx context.Context, userID int64) (*Profile, error)
	UpdateLocation(ctx context.Context, userID int64, loc Location, at time.Time) error
	UpdatePreferences(ctx context.Context, userID int64, prefs AgentPreferences, at time.Time) error
	SetActive(ctx context.Context, userID int64, active bool, at time.Time) error
	SetProfileImage(ctx context.Context, userID int64, url string, at time.Time) error
	ListActive(ctx context.Context) ([]*Profile, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new profile repository
func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const profileColumns = `
	user_id, name, age, bio, interests, languages, travel_style, profile_image,
	latitude, longitude, city, country, is_active, last_seen,
	auto_match, notification_radius, compatibility_threshold, created_at, updated_at`

// Create inserts the profile unless one already exists for the user
func (r *postgresRepository) Create(ctx context.Context, p *Profile) (bool, error) {
	query := r.db.Rebind(`
		INSERT INTO profiles (` + profileColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`)

	res, err := r.db.ExecContext(ctx, query,
		p.UserID, p.Name, p.Age, p.Bio, p.Interests, p.Languages, p.TravelStyle, p.ProfileImage,
		p.Latitude, p.Longitude, p.City, p.Country, p.IsActive, p.LastSeen,
		p.AutoMatch, p.NotificationRadius, p.CompatibilityThreshold, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n == 1, err
}

// Update writes the form fields. Agent preferences and the image are
// changed through their own methods.
func (r *postgresRepository) Update(ctx context.Context, p *Profile) error {
	query := r.db.Rebind(`
		UPDATE profiles
		SET name = ?, age = ?, bio = ?, interests = ?, languages = ?, travel_style = ?,
			latitude = ?, longitude = ?, city = ?, country = ?,
			is_active = ?, last_seen = ?, updated_at = ?
		WHERE user_id = ?
	`)

	return r.execOne(ctx, query,
		p.Name, p.Age, p.Bio, p.Interests, p.Languages, p.TravelStyle,
		p.Latitude, p.Longitude, p.City, p.Country,
		p.IsActive, p.LastSeen, p.UpdatedAt,
		p.UserID,
	)
}

func (r *postgresRepository) Get(ctx context.Context, userID int64) (*Profile, error) {
	var p Profile
	query := r.db.Rebind(`SELECT ` + profileColumns + ` FROM profiles WHERE user_id = ?`)

	err := r.db.GetContext(ctx, &p, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepository) UpdateLocation(ctx context.Context, userID int64, loc Location, at time.Time) error {
	query := r.db.Rebind(`
		UPDATE profiles
		SET latitude = ?, longitude = ?, city = ?, country = ?, last_seen = ?, updated_at = ?
		WHERE user_id = ?
	`)
	return r.execOne(ctx, query, loc.Latitude, loc.Longitude, loc.City, loc.Country, at, at, userID)
}

func (r *postgresRepository) UpdatePreferences(ctx context.Context, userID int64, prefs AgentPreferences, at time.Time) error {
	query := r.db.Rebind(`
		UPDATE profiles
		SET auto_match = ?, notification_radius = ?, compatibility_threshold = ?, updated_at = ?
		WHERE user_id = ?
	`)
	return r.execOne(ctx, query, prefs.AutoMatch, prefs.NotificationRadius, prefs.CompatibilityThreshold, at, userID)
}

func (r *postgresRepository) SetActive(ctx context.Context, userID int64, active bool, at time.Time) error {
	query := r.db.Rebind(`UPDATE profiles SET is_active = ?, updated_at = ? WHERE user_id = ?`)
	return r.execOne(ctx, query, active, at, userID)
}

func (r *postgresRepository) SetProfileImage(ctx context.Context, userID int64, url string, at time.Time) error {
	query := r.db.Rebind(`UPDATE profiles SET profile_image = ?, updated_at = ? WHERE user_id = ?`)
	return r.execOne(ctx, query, url, at, userID)
}

// ListActive returns every active profile. The nearby search and the agent
// sweep scan this list in memory.
func (r *postgresRepository) ListActive(ctx context.Context) ([]*Profile, error) {
	profiles := []*Profile{}
	query := r.db.Rebind(`SELECT ` + profileColumns + ` FROM profiles WHERE is_active = ? ORDER BY user_id`)

	if err := r.db.SelectContext(ctx, &profiles, query, true); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *postgresRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}
