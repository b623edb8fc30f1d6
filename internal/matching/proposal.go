// internal/matching/proposal.go

package matching

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xperia/xperia-backend/internal/events"
	notifications "github.com/xperia/xperia-backend/internal/notification"
	"github.com/xperia/xperia-backend/internal/travelers"
)

// Notifier creates in-app notifications
type Notifier interface {
	Notify(ctx context.Context, input notifications.NotifyInput) (*notifications.Notification, error)
}

// Proposer decides whether a pair becomes a pending match
type Proposer struct {
	repo      Repository
	notifier  Notifier
	publisher events.Publisher
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewProposer creates a proposer. A ttl of zero means seven days.
func NewProposer(repo Repository, notifier Notifier, publisher events.Publisher, ttl time.Duration, logger *zap.Logger) *Proposer {
	if ttl <= 0 {
		ttl = DefaultMatchTTL
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	return &Proposer{
		repo:      repo,
		notifier:  notifier,
		publisher: publisher,
		ttl:       ttl,
		logger:    logger.With(zap.String("component", "proposer")),
		now:       time.Now,
	}
}

// Propose creates a pending match between initiator and candidate when
// the pair has no match yet and scores at or above the strategy threshold.
// It returns nil without error when nothing was created.
func (p *Proposer) Propose(ctx context.Context, initiator, candidate *travelers.Profile, strategy Strategy, createdByAgent bool) (*Match, error) {
	if err := initiator.Complete(); err != nil {
		return nil, err
	}
	if err := candidate.Complete(); err != nil {
		return nil, err
	}
	if initiator.UserID == candidate.UserID {
		return nil, nil
	}

	existing, err := p.repo.FindExisting(ctx, initiator.UserID, candidate.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing match: %w", err)
	}
	if existing != nil {
		return nil, nil
	}

	score := strategy.Score(initiator, candidate)
	if score < strategy.Threshold(initiator) {
		return nil, nil
	}

	common := CommonItems(initiator.Interests, candidate.Interests)
	activities := common
	if len(activities) > maxSuggestedActivities {
		activities = activities[:maxSuggestedActivities]
	}

	now := p.now().UTC()
	match := &Match{
		User1ID:             initiator.UserID,
		User2ID:             candidate.UserID,
		CompatibilityScore:  score,
		Status:              StatusPending,
		MatchReason:         strategy.Reason(ctx, initiator, candidate, score, common),
		CommonInterests:     common,
		SuggestedActivities: append([]string{}, activities...),
		CreatedByAgent:      createdByAgent,
		ExpiresAt:           now.Add(p.ttl),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	inserted, err := p.repo.Insert(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("failed to insert match: %w", err)
	}
	if !inserted {
		// another sweep or scan got there first
		return nil, nil
	}

	matchesProposed.WithLabelValues(strategy.Name()).Inc()
	compatibilityScores.Observe(float64(score))

	p.notifyInitiator(ctx, match, candidate, createdByAgent)

	p.publisher.Publish(ctx, events.MatchEvent{
		Type:       events.MatchProposed,
		MatchID:    match.ID,
		User1ID:    match.User1ID,
		User2ID:    match.User2ID,
		Score:      score,
		Status:     string(match.Status),
		OccurredAt: now,
	})

	p.logger.Info("match proposed",
		zap.Int64("match_id", match.ID),
		zap.Int64("initiator_id", initiator.UserID),
		zap.Int64("candidate_id", candidate.UserID),
		zap.Int("score", score),
		zap.String("strategy", strategy.Name()))

	return match, nil
}

func (p *Proposer) notifyInitiator(ctx context.Context, match *Match, candidate *travelers.Profile, createdByAgent bool) {
	if p.notifier == nil {
		return
	}

	message := fmt.Sprintf("Found %s nearby - %d%% compatible!", candidate.Name, match.CompatibilityScore)
	if createdByAgent {
		message = fmt.Sprintf("Your AI agent found %s nearby - %d%% compatible!", candidate.Name, match.CompatibilityScore)
	}

	_, err := p.notifier.Notify(ctx, notifications.NotifyInput{
		UserID:  match.User1ID,
		Title:   "New Travel Companion Found! ✈️",
		Message: message,
		Type:    notifications.TypeMatch,
		Data: notifications.NotificationData{
			"match_id": match.ID,
		},
	})
	if err != nil {
		p.logger.Warn("failed to notify initiator", zap.Int64("match_id", match.ID), zap.Error(err))
	}
}
