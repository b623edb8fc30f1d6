// internal/companion/service.go
// AI travel companion: match explanations, itineraries and meetup ideas

package companion

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/xperia/xperia-backend/internal/travelers"
)

const (
	FallbackMatchReason = "You both share a passion for authentic travel experiences!"
	FallbackMeetup      = "Meet at a local café to share travel stories and plan your next adventure together!"

	maxItinerarySuggestions = 7
	meetupCacheTTL          = 24 * time.Hour
	defaultTimeout          = 8 * time.Second
)

// FallbackItinerary is returned when no suggestions could be generated
var FallbackItinerary = []string{
	"Explore local markets and try authentic cuisine",
	"Visit cultural landmarks and museums",
	"Join walking tours to meet fellow travelers",
}

var (
	reasonConfig    = GenerationConfig{MaxOutputTokens: 150, Temperature: 0.7}
	itineraryConfig = GenerationConfig{MaxOutputTokens: 300, Temperature: 0.8}
	meetupConfig    = GenerationConfig{MaxOutputTokens: 120, Temperature: 0.8}

	suggestionLine = regexp.MustCompile(`^(\d+\.|-)`)
)

// ItineraryRequest asks for trip suggestions
type ItineraryRequest struct {
	Destination string   `json:"destination" validate:"required,max=200"`
	Interests   []string `json:"interests" validate:"max=20,dive,required"`
	TravelStyle string   `json:"travel_style" validate:"omitempty,oneof=adventure cultural relaxed party nature"`
	Duration    int      `json:"duration" validate:"required,gte=1,lte=30"`
	Budget      string   `json:"budget" validate:"max=50"`
}

// Service wraps a TextGenerator with prompts, timeouts and fallbacks.
// Every method returns a usable text; generation errors are only logged.
type Service struct {
	generator TextGenerator
	cache     *redis.Client
	timeout   time.Duration
	logger    *zap.Logger
}

// NewService creates the companion. generator and cache may be nil.
func NewService(generator TextGenerator, cache *redis.Client, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		generator: generator,
		cache:     cache,
		timeout:   timeout,
		logger:    logger.With(zap.String("component", "companion")),
	}
}

// Enabled reports whether a generator is configured
func (s *Service) Enabled() bool {
	return s != nil && s.generator != nil
}

// MatchReason explains why two travelers were matched
func (s *Service) MatchReason(ctx context.Context, a, b *travelers.Profile, score int) string {
	prompt := fmt.Sprintf(`You are Xperia's AI travel companion. Generate a friendly, engaging explanation for why these two solo travelers are compatible:

%s

%s

Compatibility Score: %d%%

Write a warm, encouraging 2-3 sentence explanation focusing on shared interests and complementary travel styles. Make it sound like a friendly AI assistant who genuinely wants to help them connect.`,
		describeTraveler("User 1", a), describeTraveler("User 2", b), score)

	text, err := s.generate(ctx, "match_reason", prompt, reasonConfig)
	if err != nil {
		return FallbackMatchReason
	}
	return text
}

// Itinerary returns up to seven suggestions for a trip
func (s *Service) Itinerary(ctx context.Context, req *ItineraryRequest) []string {
	prompt := fmt.Sprintf(`You are Xperia's AI travel companion. Create a personalized %d-day itinerary for %s.

Traveler Profile:
- Interests: %s
- Travel style: %s
- Budget: %s

Generate 5-7 specific, actionable suggestions that match their interests and style. Focus on unique experiences, local culture, and opportunities to meet other travelers. Keep each suggestion to 1-2 sentences. Format as a numbered list.`,
		req.Duration, req.Destination, strings.Join(req.Interests, ", "), req.TravelStyle, req.Budget)

	text, err := s.generate(ctx, "itinerary", prompt, itineraryConfig)
	if err != nil {
		return append([]string(nil), FallbackItinerary...)
	}

	suggestions := ParseSuggestions(text)
	if len(suggestions) == 0 {
		return append([]string(nil), FallbackItinerary...)
	}
	return suggestions
}

// Meetup suggests a first meetup for a matched pair. Generated suggestions
// are cached per pair.
func (s *Service) Meetup(ctx context.Context, a, b *travelers.Profile, common []string) string {
	key := meetupCacheKey(a.UserID, b.UserID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			return cached
		}
		if err != redis.Nil {
			s.logger.Warn("meetup cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	prompt := fmt.Sprintf(`You are Xperia's AI travel companion. Suggest a perfect first meetup for these two compatible solo travelers:

%s (%s traveler) and %s (%s traveler)

Common interests: %s
Location: %s, %s

Suggest a specific, safe, public activity that would be perfect for them to meet. Include the type of place, what they could do together, and why it matches their interests. Keep it to 2-3 sentences and make it sound exciting!`,
		a.Name, a.TravelStyle, b.Name, b.TravelStyle, strings.Join(common, ", "), a.City, a.Country)

	text, err := s.generate(ctx, "meetup", prompt, meetupConfig)
	if err != nil {
		return FallbackMeetup
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, text, meetupCacheTTL).Err(); err != nil {
			s.logger.Warn("meetup cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return text
}

func (s *Service) generate(ctx context.Context, task, prompt string, cfg GenerationConfig) (string, error) {
	if !s.Enabled() {
		return "", ErrEmptyCompletion
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.generator.Generate(ctx, prompt, cfg)
	generationDuration.WithLabelValues(task).Observe(time.Since(start).Seconds())
	if err != nil {
		generationFailures.WithLabelValues(task).Inc()
		s.logger.Warn("generation failed", zap.String("task", task), zap.Error(err))
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		generationFailures.WithLabelValues(task).Inc()
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// ParseSuggestions keeps the numbered or dashed lines of a completion
func ParseSuggestions(text string) []string {
	var suggestions []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !suggestionLine.MatchString(line) {
			continue
		}
		suggestions = append(suggestions, line)
		if len(suggestions) == maxItinerarySuggestions {
			break
		}
	}
	return suggestions
}

func describeTraveler(label string, p *travelers.Profile) string {
	return fmt.Sprintf(`%s: %s, age %d
- Interests: %s
- Travel style: %s
- Languages: %s
- Location: %s, %s`,
		label, p.Name, p.Age,
		strings.Join(p.Interests, ", "),
		p.TravelStyle,
		strings.Join(p.Languages, ", "),
		p.City, p.Country)
}

func meetupCacheKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("xperia:meetup:%d:%d", a, b)
}
