package companion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xperia/xperia-backend/internal/auth"
	"github.com/xperia/xperia-backend/internal/travelers"
)

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	block   bool
	prompts []string
	configs []GenerationConfig
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.configs = append(f.configs, cfg)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func alice() *travelers.Profile {
	return &travelers.Profile{
		UserID: 1, Name: "Alice", Age: 28,
		Interests: []string{"hiking", "food"}, Languages: []string{"english"},
		TravelStyle: travelers.StyleAdventure, City: "Lisbon", Country: "Portugal",
	}
}

func bob() *travelers.Profile {
	return &travelers.Profile{
		UserID: 2, Name: "Bob", Age: 30,
		Interests: []string{"hiking"}, Languages: []string{"english"},
		TravelStyle: travelers.StyleNature, City: "Lisbon", Country: "Portugal",
	}
}

func TestFallbacksWithoutGenerator(t *testing.T) {
	svc := NewService(nil, nil, time.Second, zap.NewNop())
	ctx := context.Background()

	assert.False(t, svc.Enabled())
	assert.Equal(t, FallbackMatchReason, svc.MatchReason(ctx, alice(), bob(), 80))
	assert.Equal(t, FallbackMeetup, svc.Meetup(ctx, alice(), bob(), []string{"hiking"}))
	assert.Equal(t, FallbackItinerary, svc.Itinerary(ctx, &ItineraryRequest{Destination: "Lisbon", Duration: 3}))
}

func TestMatchReason(t *testing.T) {
	gen := &fakeGenerator{text: "  Two hikers who love the outdoors!  "}
	svc := NewService(gen, nil, time.Second, zap.NewNop())

	reason := svc.MatchReason(context.Background(), alice(), bob(), 80)
	assert.Equal(t, "Two hikers who love the outdoors!", reason)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "User 1: Alice, age 28")
	assert.Contains(t, gen.prompts[0], "- Interests: hiking, food")
	assert.Contains(t, gen.prompts[0], "Compatibility Score: 80%")
	assert.Equal(t, reasonConfig, gen.configs[0])

	gen.err = errors.New("quota exceeded")
	assert.Equal(t, FallbackMatchReason, svc.MatchReason(context.Background(), alice(), bob(), 80))
}

func TestGenerationTimeout(t *testing.T) {
	gen := &fakeGenerator{block: true}
	svc := NewService(gen, nil, 20*time.Millisecond, zap.NewNop())

	start := time.Now()
	assert.Equal(t, FallbackMatchReason, svc.MatchReason(context.Background(), alice(), bob(), 80))
	assert.Less(t, time.Since(start), time.Second)
}

func TestNonPositiveTimeoutUsesDefault(t *testing.T) {
	gen := &fakeGenerator{text: "Two hikers who love the outdoors!"}

	for _, timeout := range []time.Duration{0, -time.Second} {
		svc := NewService(gen, nil, timeout, zap.NewNop())
		assert.Equal(t, defaultTimeout, svc.timeout)
		assert.Equal(t, "Two hikers who love the outdoors!", svc.MatchReason(context.Background(), alice(), bob(), 80))
	}
}

func TestItinerary(t *testing.T) {
	lines := []string{"Here is your plan:", "1. Surf at Carcavelos", "", "2. Eat pastéis de nata"}
	for i := 3; i <= 9; i++ {
		lines = append(lines, "- extra idea")
	}
	gen := &fakeGenerator{text: strings.Join(lines, "\n")}
	svc := NewService(gen, nil, time.Second, zap.NewNop())

	suggestions := svc.Itinerary(context.Background(), &ItineraryRequest{
		Destination: "Lisbon", Interests: []string{"surf"}, TravelStyle: "adventure", Duration: 3, Budget: "low",
	})
	require.Len(t, suggestions, 7)
	assert.Equal(t, "1. Surf at Carcavelos", suggestions[0])
	assert.Equal(t, "2. Eat pastéis de nata", suggestions[1])
	assert.Contains(t, gen.prompts[0], "personalized 3-day itinerary for Lisbon")
	assert.Equal(t, itineraryConfig, gen.configs[0])

	gen.text = "Just some prose without a list."
	assert.Equal(t, FallbackItinerary, svc.Itinerary(context.Background(), &ItineraryRequest{Destination: "Lisbon", Duration: 1}))
}

func TestMeetupIsCachedPerPair(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	gen := &fakeGenerator{text: "Hike the Sintra trails together."}
	svc := NewService(gen, rdb, time.Second, zap.NewNop())
	ctx := context.Background()

	first := svc.Meetup(ctx, alice(), bob(), []string{"hiking"})
	second := svc.Meetup(ctx, bob(), alice(), []string{"hiking"})

	assert.Equal(t, "Hike the Sintra trails together.", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, gen.calls())
	assert.Equal(t, meetupConfig, gen.configs[0])

	ttl := mr.TTL("xperia:meetup:1:2")
	assert.Equal(t, 24*time.Hour, ttl)

	mr.FastForward(25 * time.Hour)
	svc.Meetup(ctx, alice(), bob(), []string{"hiking"})
	assert.Equal(t, 2, gen.calls())
}

func TestMeetupFallbackIsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	gen := &fakeGenerator{err: errors.New("unavailable")}
	svc := NewService(gen, rdb, time.Second, zap.NewNop())

	assert.Equal(t, FallbackMeetup, svc.Meetup(context.Background(), alice(), bob(), nil))
	assert.False(t, mr.Exists("xperia:meetup:1:2"))
}

type fakeProfiles map[int64]*travelers.Profile

func (f fakeProfiles) GetProfile(ctx context.Context, userID int64) (*travelers.Profile, error) {
	if p, ok := f[userID]; ok {
		return p, nil
	}
	return nil, travelers.ErrProfileNotFound
}

func TestGenerateItineraryHandler(t *testing.T) {
	gen := &fakeGenerator{text: "1. Walk Alfama"}
	h := NewHandler(NewService(gen, nil, time.Second, zap.NewNop()), fakeProfiles{1: alice()})

	do := func(body string, userID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/companion/itinerary", bytes.NewBufferString(body))
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
		rec := httptest.NewRecorder()
		h.GenerateItinerary(rec, req)
		return rec
	}

	rec := do(`{"destination":"Lisbon","duration":2}`, 1)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ItineraryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"1. Walk Alfama"}, resp.Suggestions)
	assert.Contains(t, gen.prompts[0], "- Interests: hiking, food")
	assert.Contains(t, gen.prompts[0], "- Travel style: adventure")

	rec = do(`{"destination":"Lisbon","duration":2}`, 5)
	assert.Equal(t, http.StatusOK, rec.Code, "travelers without a profile still get suggestions")

	rec = do(`{"destination":"","duration":2}`, 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(`{"destination":"Lisbon","duration":0}`, 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
