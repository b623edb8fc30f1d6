// internal/travelers/models.go
// Traveler profile models and request types

package travelers

import (
	"time"

	"github.com/xperia/xperia-backend/internal/common/database"
)

// TravelStyle is the single style tag a traveler picks
type TravelStyle string

const (
	StyleAdventure TravelStyle = "adventure"
	StyleCultural  TravelStyle = "cultural"
	StyleRelaxed   TravelStyle = "relaxed"
	StyleParty     TravelStyle = "party"
	StyleNature    TravelStyle = "nature"
)

// Agent preference defaults applied when a profile is first created
const (
	DefaultNotificationRadiusKm   = 50.0
	DefaultCompatibilityThreshold = 50
)

// AgentPreferences control the autonomous matching agent
type AgentPreferences struct {
	AutoMatch              bool    `json:"auto_match" db:"auto_match"`
	NotificationRadius     float64 `json:"notification_radius" db:"notification_radius"`
	CompatibilityThreshold int     `json:"compatibility_threshold" db:"compatibility_threshold"`
}

// DefaultAgentPreferences returns the preferences of a new profile
func DefaultAgentPreferences() AgentPreferences {
	return AgentPreferences{
		AutoMatch:              true,
		NotificationRadius:     DefaultNotificationRadiusKm,
		CompatibilityThreshold: DefaultCompatibilityThreshold,
	}
}

// Profile is a traveler profile. UserID is shared with the auth user.
type Profile struct {
	UserID       int64               `json:"user_id" db:"user_id"`
	Name         string              `json:"name" db:"name"`
	Age          int                 `json:"age" db:"age"`
	Bio          string              `json:"bio" db:"bio"`
	Interests    database.StringList `json:"interests" db:"interests"`
	Languages    database.StringList `json:"languages" db:"languages"`
	TravelStyle  TravelStyle         `json:"travel_style" db:"travel_style"`
	ProfileImage string              `json:"profile_image,omitempty" db:"profile_image"`
	Latitude     *float64            `json:"latitude,omitempty" db:"latitude"`
	Longitude    *float64            `json:"longitude,omitempty" db:"longitude"`
	City         string              `json:"city" db:"city"`
	Country      string              `json:"country" db:"country"`
	IsActive     bool                `json:"is_active" db:"is_active"`
	LastSeen     time.Time           `json:"last_seen" db:"last_seen"`
	CreatedAt    time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at" db:"updated_at"`

	AgentPreferences `json:"agent_preferences"`
}

// HasLocation reports whether both coordinates are set
func (p *Profile) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Complete returns ErrIncompleteProfile when a field needed for scoring
// is missing
func (p *Profile) Complete() error {
	if p.Age <= 0 || len(p.Interests) == 0 || p.TravelStyle == "" || len(p.Languages) == 0 || !p.HasLocation() {
		return ErrIncompleteProfile
	}
	return nil
}

// EffectiveRadius is the search radius with zero treated as unset
func (p *Profile) EffectiveRadius() float64 {
	if p.NotificationRadius <= 0 {
		return DefaultNotificationRadiusKm
	}
	return p.NotificationRadius
}

// EffectiveThreshold is the compatibility threshold with zero treated as unset
func (p *Profile) EffectiveThreshold() int {
	if p.CompatibilityThreshold <= 0 {
		return DefaultCompatibilityThreshold
	}
	return p.CompatibilityThreshold
}

// PublicProfile is what other travelers get to see
type PublicProfile struct {
	UserID       int64               `json:"user_id"`
	Name         string              `json:"name"`
	Age          int                 `json:"age"`
	Bio          string              `json:"bio"`
	Interests    database.StringList `json:"interests"`
	Languages    database.StringList `json:"languages"`
	TravelStyle  TravelStyle         `json:"travel_style"`
	ProfileImage string              `json:"profile_image,omitempty"`
	City         string              `json:"city"`
	Country      string              `json:"country"`
}

// Public strips private fields from the profile
func (p *Profile) Public() *PublicProfile {
	return &PublicProfile{
		UserID:       p.UserID,
		Name:         p.Name,
		Age:          p.Age,
		Bio:          p.Bio,
		Interests:    p.Interests,
		Languages:    p.Languages,
		TravelStyle:  p.TravelStyle,
		ProfileImage: p.ProfileImage,
		City:         p.City,
		Country:      p.Country,
	}
}

// NearbyTraveler is a public profile with its distance from the viewer
type NearbyTraveler struct {
	*PublicProfile
	DistanceKm float64 `json:"distance_km"`
}

// UpsertProfileRequest is the profile form payload
type UpsertProfileRequest struct {
	Name        string      `json:"name" validate:"required,min=1,max=100"`
	Age         int         `json:"age" validate:"required,gte=18,lte=120"`
	Languages   []string    `json:"languages" validate:"required,min=1,max=10,dive,required"`
	Interests   []string    `json:"interests" validate:"required,min=1,max=20,dive,required"`
	TravelStyle TravelStyle `json:"travel_style" validate:"required,oneof=adventure cultural relaxed party nature"`
	Bio         string      `json:"bio" validate:"max=500"`
	Location    Location    `json:"location"`
}

// Location is a coordinate plus its place names
type Location struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	City      string  `json:"city" validate:"max=100"`
	Country   string  `json:"country" validate:"max=100"`
}

// UpdateLocationRequest refreshes the traveler's position
type UpdateLocationRequest = Location

// UpdatePreferencesRequest changes the agent preferences
type UpdatePreferencesRequest struct {
	AutoMatch              *bool    `json:"auto_match,omitempty"`
	NotificationRadius     *float64 `json:"notification_radius,omitempty" validate:"omitempty,gt=0,lte=500"`
	CompatibilityThreshold *int     `json:"compatibility_threshold,omitempty" validate:"omitempty,gte=0,lte=100"`
}
