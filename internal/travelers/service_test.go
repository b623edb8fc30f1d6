package travelers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xperia/xperia-backend/internal/auth"
	"github.com/xperia/xperia-backend/internal/common/database"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "travelers.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUsers(t *testing.T, db *sqlx.DB, ids ...int64) {
	t.Helper()
	now := time.Now().UTC()
	for _, id := range ids {
		_, err := db.Exec(`INSERT INTO users (id, email, password_hash, name, created_at, updated_at) VALUES (?, ?, 'x', ?, ?, ?)`,
			id, fmt.Sprintf("user%d@example.com", id), fmt.Sprintf("user%d", id), now, now)
		require.NoError(t, err)
	}
}

func profileRequest(name string, lat, lon float64) *UpsertProfileRequest {
	return &UpsertProfileRequest{
		Name:        name,
		Age:         30,
		Languages:   []string{"English"},
		Interests:   []string{" Hiking", "photography", "hiking"},
		TravelStyle: StyleAdventure,
		Location:    Location{Latitude: lat, Longitude: lon, City: "Lisbon", Country: "Portugal"},
	}
}

func newTestService(t *testing.T, uploads UploadService) (Service, *sqlx.DB) {
	db := newTestDB(t)
	seedUsers(t, db, 1, 2, 3, 4)
	return NewService(NewPostgresRepository(db), uploads, 1<<20, zap.NewNop()), db
}

func TestUpsertProfileAppliesDefaultsOnce(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	profile, err := svc.UpsertProfile(ctx, 1, profileRequest("Alice", 38.72, -9.14))
	require.NoError(t, err)

	assert.True(t, profile.IsActive)
	assert.Equal(t, DefaultAgentPreferences(), profile.AgentPreferences)
	assert.Equal(t, []string{"hiking", "photography"}, []string(profile.Interests))
	assert.Equal(t, []string{"english"}, []string(profile.Languages))
	require.NoError(t, profile.Complete())

	off := false
	threshold := 70
	_, err = svc.UpdateAgentPreferences(ctx, 1, &UpdatePreferencesRequest{AutoMatch: &off, CompatibilityThreshold: &threshold})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, 1))

	updated, err := svc.UpsertProfile(ctx, 1, profileRequest("Alice B", 38.72, -9.14))
	require.NoError(t, err)
	assert.Equal(t, "Alice B", updated.Name)
	assert.True(t, updated.IsActive, "submitting the profile reactivates it")
	assert.False(t, updated.AutoMatch, "preferences survive profile edits")
	assert.Equal(t, 70, updated.CompatibilityThreshold)
	assert.Equal(t, DefaultNotificationRadiusKm, updated.NotificationRadius)
}

func TestGetProfileNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.GetProfile(context.Background(), 99)
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = svc.UpdateLocation(context.Background(), 99, &UpdateLocationRequest{Latitude: 1, Longitude: 1})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestFindNearby(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.UpsertProfile(ctx, 1, profileRequest("Alice", 38.7223, -9.1393)) // Lisbon
	require.NoError(t, err)
	_, err = svc.UpsertProfile(ctx, 2, profileRequest("Bob", 38.6979, -9.4215)) // Cascais, ~25km
	require.NoError(t, err)
	_, err = svc.UpsertProfile(ctx, 3, profileRequest("Cara", 41.1579, -8.6291)) // Porto, ~275km
	require.NoError(t, err)
	_, err = svc.UpsertProfile(ctx, 4, profileRequest("Dan", 38.7100, -9.1400))
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, 4))

	nearby, err := svc.FindNearby(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	assert.Equal(t, int64(2), nearby[0].UserID)
	assert.InDelta(t, 24.6, nearby[0].DistanceKm, 1.5)

	nearby, err = svc.FindNearby(ctx, 1, 500)
	require.NoError(t, err)
	require.Len(t, nearby, 2)
	assert.Equal(t, int64(2), nearby[0].UserID, "closest first")
	assert.Equal(t, int64(3), nearby[1].UserID)

	_, err = svc.UpdateLocation(ctx, 3, &UpdateLocationRequest{Latitude: 38.7224, Longitude: -9.1394, City: "Lisbon", Country: "Portugal"})
	require.NoError(t, err)
	nearby, err = svc.FindNearby(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, nearby, 2)
}

func TestFilterNearbySkipsMissingLocation(t *testing.T) {
	lat, lon := 10.0, 10.0
	origin := &Profile{UserID: 1, Latitude: &lat, Longitude: &lon}
	noLocation := &Profile{UserID: 2}
	same := &Profile{UserID: 3, Latitude: &lat, Longitude: &lon}

	got := FilterNearby(origin, []*Profile{origin, noLocation, same}, 1)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].Profile.UserID)

	assert.Empty(t, FilterNearby(&Profile{UserID: 9}, []*Profile{same}, 100))
}

func TestProfileCompleteAndDefaults(t *testing.T) {
	lat, lon := 1.0, 2.0
	p := &Profile{
		Age:         25,
		Interests:   []string{"food"},
		Languages:   []string{"english"},
		TravelStyle: StyleCultural,
		Latitude:    &lat,
		Longitude:   &lon,
	}
	assert.NoError(t, p.Complete())

	p.Languages = nil
	assert.ErrorIs(t, p.Complete(), ErrIncompleteProfile)

	assert.Equal(t, DefaultNotificationRadiusKm, p.EffectiveRadius())
	assert.Equal(t, DefaultCompatibilityThreshold, p.EffectiveThreshold())
	p.CompatibilityThreshold = 65
	assert.Equal(t, 65, p.EffectiveThreshold())
}

func newAuthedRequest(method, target string, body *bytes.Buffer, userID int64) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

func TestHandlersUpsertAndUpload(t *testing.T) {
	dir := t.TempDir()
	svc, _ := newTestService(t, NewLocalUploadService(dir, "http://localhost:8080/uploads"))
	h := NewHandler(svc)

	router := chi.NewRouter()
	router.Put("/api/v1/travelers/me", h.UpsertProfile)
	router.Post("/api/v1/travelers/me/picture", h.UploadPicture)
	router.Get("/api/v1/travelers/{id}", h.GetTraveler)

	// invalid travel style
	bad := profileRequest("Alice", 38.72, -9.14)
	bad.TravelStyle = "luxury"
	payload, _ := json.Marshal(bad)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newAuthedRequest(http.MethodPut, "/api/v1/travelers/me", bytes.NewBuffer(payload), 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	payload, _ = json.Marshal(profileRequest("Alice", 38.72, -9.14))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newAuthedRequest(http.MethodPut, "/api/v1/travelers/me", bytes.NewBuffer(payload), 1))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", `form-data; name="image"; filename="me.PNG"`)
	partHeader.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(partHeader)
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, mw.Close())

	req := newAuthedRequest(http.MethodPost, "/api/v1/travelers/me/picture", &body, 1)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	profile, err := svc.GetProfile(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(profile.ProfileImage, "http://localhost:8080/uploads/profiles/"))
	assert.True(t, strings.HasSuffix(profile.ProfileImage, ".png"))

	_, err = os.Stat(filepath.Join(dir, "profiles", filepath.Base(profile.ProfileImage)))
	assert.NoError(t, err)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newAuthedRequest(http.MethodGet, "/api/v1/travelers/1", nil, 2))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "agent_preferences")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newAuthedRequest(http.MethodGet, "/api/v1/travelers/3", nil, 2))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
