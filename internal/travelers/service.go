// internal/travelers/service.go

package travelers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xperia/xperia-backend/internal/geo"
)

var (
	ErrProfileNotFound   = errors.New("profile not found")
	ErrIncompleteProfile = errors.New("profile is incomplete")
	ErrInvalidImage      = errors.New("file must be a JPEG, PNG or WebP image")
	ErrImageTooLarge     = errors.New("image exceeds the maximum upload size")
)

// Service interface
type Service interface {
	UpsertProfile(ctx context.Context, userID int64, req *UpsertProfileRequest) (*Profile, error)
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	UpdateLocation(ctx context.Context, userID int64, req *UpdateLocationRequest) (*Profile, error)
	UpdateAgentPreferences(ctx context.Context, userID int64, req *UpdatePreferencesRequest) (*Profile, error)
	Deactivate(ctx context.Context, userID int64) error
	UploadProfileImage(ctx context.Context, userID int64, file multipart.File, header *multipart.FileHeader) (*Profile, error)

	ListActive(ctx context.Context) ([]*Profile, error)
	FindNearby(ctx context.Context, userID int64, radiusKm float64) ([]*NearbyTraveler, error)
}

type service struct {
	repo          Repository
	uploads       UploadService
	maxUploadSize int64
	logger        *zap.Logger
	now           func() time.Time
}

// NewService creates a new profile service. uploads may be nil when image
// uploads are disabled.
func NewService(repo Repository, uploads UploadService, maxUploadSize int64, logger *zap.Logger) Service {
	return &service{
		repo:          repo,
		uploads:       uploads,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(zap.String("component", "travelers")),
		now:           time.Now,
	}
}

// UpsertProfile creates the profile on first submission with default agent
// preferences. Later submissions keep the stored preferences.
func (s *service) UpsertProfile(ctx context.Context, userID int64, req *UpsertProfileRequest) (*Profile, error) {
	now := s.now().UTC()
	lat, lon := req.Location.Latitude, req.Location.Longitude

	profile := &Profile{
		UserID:           userID,
		Name:             strings.TrimSpace(req.Name),
		Age:              req.Age,
		Bio:              strings.TrimSpace(req.Bio),
		Interests:        normalizeTags(req.Interests),
		Languages:        normalizeTags(req.Languages),
		TravelStyle:      req.TravelStyle,
		Latitude:         &lat,
		Longitude:        &lon,
		City:             req.Location.City,
		Country:          req.Location.Country,
		IsActive:         true,
		LastSeen:         now,
		CreatedAt:        now,
		UpdatedAt:        now,
		AgentPreferences: DefaultAgentPreferences(),
	}

	created, err := s.repo.Create(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if !created {
		if err := s.repo.Update(ctx, profile); err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	} else {
		s.logger.Info("profile created", zap.Int64("user_id", userID))
	}

	return s.repo.Get(ctx, userID)
}

func (s *service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) UpdateLocation(ctx context.Context, userID int64, req *UpdateLocationRequest) (*Profile, error) {
	if err := s.repo.UpdateLocation(ctx, userID, *req, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *service) UpdateAgentPreferences(ctx context.Context, userID int64, req *UpdatePreferencesRequest) (*Profile, error) {
	profile, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	prefs := profile.AgentPreferences
	if req.AutoMatch != nil {
		prefs.AutoMatch = *req.AutoMatch
	}
	if req.NotificationRadius != nil {
		prefs.NotificationRadius = *req.NotificationRadius
	}
	if req.CompatibilityThreshold != nil {
		prefs.CompatibilityThreshold = *req.CompatibilityThreshold
	}

	if err := s.repo.UpdatePreferences(ctx, userID, prefs, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

// Deactivate hides the traveler from nearby search and agent sweeps.
// Profiles are never deleted.
func (s *service) Deactivate(ctx context.Context, userID int64) error {
	return s.repo.SetActive(ctx, userID, false, s.now().UTC())
}

func (s *service) UploadProfileImage(ctx context.Context, userID int64, file multipart.File, header *multipart.FileHeader) (*Profile, error) {
	if s.uploads == nil {
		return nil, errors.New("image uploads are not configured")
	}
	if s.maxUploadSize > 0 && header.Size > s.maxUploadSize {
		return nil, ErrImageTooLarge
	}
	if !isAllowedImage(header.Header.Get("Content-Type")) {
		return nil, ErrInvalidImage
	}

	profile, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.uploads.UploadFile(ctx, file, header, "profiles")
	if err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	if err := s.repo.SetProfileImage(ctx, userID, url, s.now().UTC()); err != nil {
		return nil, err
	}

	if profile.ProfileImage != "" {
		if err := s.uploads.DeleteFile(ctx, profile.ProfileImage); err != nil {
			s.logger.Warn("failed to delete old profile image", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	return s.repo.Get(ctx, userID)
}

func (s *service) ListActive(ctx context.Context) ([]*Profile, error) {
	return s.repo.ListActive(ctx)
}

// FindNearby scans every active profile and keeps those within radiusKm of
// the user. A radius of zero or less means the default 50 km.
func (s *service) FindNearby(ctx context.Context, userID int64, radiusKm float64) ([]*NearbyTraveler, error) {
	origin, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	nearby := []*NearbyTraveler{}
	for _, c := range FilterNearby(origin, candidates, radiusKm) {
		nearby = append(nearby, &NearbyTraveler{
			PublicProfile: c.Profile.Public(),
			DistanceKm:    c.DistanceKm,
		})
	}
	return nearby, nil
}

// Candidate is a profile found by FilterNearby
type Candidate struct {
	Profile    *Profile
	DistanceKm float64
}

// FilterNearby returns the profiles within radiusKm of origin, closest first.
// The origin itself and profiles without a location are skipped.
func FilterNearby(origin *Profile, profiles []*Profile, radiusKm float64) []Candidate {
	if radiusKm <= 0 {
		radiusKm = DefaultNotificationRadiusKm
	}
	if !origin.HasLocation() {
		return nil
	}

	var out []Candidate
	for _, p := range profiles {
		if p.UserID == origin.UserID || !p.HasLocation() {
			continue
		}
		d := geo.DistanceKm(*origin.Latitude, *origin.Longitude, *p.Latitude, *p.Longitude)
		if d <= radiusKm {
			out = append(out, Candidate{Profile: p, DistanceKm: d})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

// normalizeTags trims, lowercases and de-duplicates tags while keeping order
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func isAllowedImage(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}
