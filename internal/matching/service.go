// internal/matching/service.go

package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xperia/xperia-backend/internal/events"
	"github.com/xperia/xperia-backend/internal/messaging"
	notifications "github.com/xperia/xperia-backend/internal/notification"
	"github.com/xperia/xperia-backend/internal/travelers"
)

var (
	ErrMatchNotFound   = errors.New("match not found")
	ErrUnauthorized    = errors.New("not authorized for this match")
	ErrMatchClosed     = errors.New("match is no longer open for this response")
	ErrInvalidResponse = errors.New("response must be accept or decline")
)

// Service interface
type Service interface {
	ScanNow(ctx context.Context, actorID int64) (*ScanResult, error)
	RunAgent(ctx context.Context, actorID int64) (*ScanResult, error)
	List(ctx context.Context, actorID int64) ([]*MatchView, error)
	Get(ctx context.Context, actorID, matchID int64) (*MatchView, error)
	Respond(ctx context.Context, actorID, matchID int64, response Response) (*RespondResult, error)
	Meetup(ctx context.Context, actorID, matchID int64) (*MeetupResponse, error)
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// ConversationOpener unlocks the chat of a mutual match
type ConversationOpener interface {
	OpenForMatch(ctx context.Context, matchID, user1ID, user2ID int64) (*messaging.Conversation, error)
}

// MeetupSuggester proposes a first meetup for a pair
type MeetupSuggester interface {
	Meetup(ctx context.Context, a, b *travelers.Profile, common []string) string
}

// Deps groups the collaborators of the match service
type Deps struct {
	Repo          Repository
	Agent         *Agent
	Profiles      ProfileSource
	Conversations ConversationOpener
	Notifier      Notifier
	Publisher     events.Publisher
	Meetups       MeetupSuggester
}

type service struct {
	Deps
	logger *zap.Logger
}

func NewService(deps Deps, logger *zap.Logger) Service {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	return &service{Deps: deps, logger: logger.With(zap.String("component", "matching"))}
}

func (s *service) ScanNow(ctx context.Context, actorID int64) (*ScanResult, error) {
	if actorID == 0 {
		return nil, ErrUnauthorized
	}
	matches, err := s.Agent.ScanNow(ctx, actorID)
	if err != nil && len(matches) == 0 {
		return nil, err
	}
	return &ScanResult{MatchesCreated: len(matches), Matches: matches}, nil
}

func (s *service) RunAgent(ctx context.Context, actorID int64) (*ScanResult, error) {
	if actorID == 0 {
		return nil, ErrUnauthorized
	}
	matches, err := s.Agent.SweepUser(ctx, actorID)
	if err != nil && len(matches) == 0 {
		return nil, err
	}
	return &ScanResult{MatchesCreated: len(matches), Matches: matches}, nil
}

// List returns the actor's visible matches with the other traveler.
// Matches whose counterpart has no profile are left out.
func (s *service) List(ctx context.Context, actorID int64) ([]*MatchView, error) {
	if actorID == 0 {
		return []*MatchView{}, nil
	}

	matches, err := s.Repo.ListForUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	views := make([]*MatchView, 0, len(matches))
	for _, m := range matches {
		other, err := s.Profiles.GetProfile(ctx, m.Counterpart(actorID))
		if errors.Is(err, travelers.ErrProfileNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		views = append(views, &MatchView{Match: m, OtherUser: other.Public()})
	}
	return views, nil
}

func (s *service) Get(ctx context.Context, actorID, matchID int64) (*MatchView, error) {
	m, err := s.participantMatch(ctx, actorID, matchID)
	if err != nil {
		return nil, err
	}

	view := &MatchView{Match: m}
	other, err := s.Profiles.GetProfile(ctx, m.Counterpart(actorID))
	switch {
	case err == nil:
		view.OtherUser = other.Public()
	case !errors.Is(err, travelers.ErrProfileNotFound):
		return nil, err
	}
	return view, nil
}

// Respond applies an accept or decline from one participant. Only a
// pending match can change; repeating the response that closed it is a
// no-op.
func (s *service) Respond(ctx context.Context, actorID, matchID int64, response Response) (*RespondResult, error) {
	m, err := s.participantMatch(ctx, actorID, matchID)
	if err != nil {
		return nil, err
	}

	switch response {
	case ResponseAccept:
		return s.accept(ctx, actorID, m)
	case ResponseDecline:
		return s.decline(ctx, m)
	default:
		return nil, ErrInvalidResponse
	}
}

func (s *service) accept(ctx context.Context, actorID int64, m *Match) (*RespondResult, error) {
	changed, err := s.Repo.SetStatus(ctx, m.ID, StatusMutual, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to accept match: %w", err)
	}
	if !changed {
		if m, err = s.Repo.Get(ctx, m.ID); err != nil {
			return nil, err
		}
		if m.Status != StatusMutual {
			return nil, ErrMatchClosed
		}
	}

	conv, err := s.Conversations.OpenForMatch(ctx, m.ID, m.User1ID, m.User2ID)
	if err != nil {
		if changed {
			// back to pending so a retried accept notifies the counterpart
			if _, rbErr := s.Repo.SetStatus(ctx, m.ID, StatusPending, StatusMutual); rbErr != nil {
				s.logger.Error("failed to roll back accept", zap.Int64("match_id", m.ID), zap.Error(rbErr))
			}
		}
		return nil, fmt.Errorf("failed to open conversation: %w", err)
	}

	m.Status = StatusMutual
	if changed {
		matchResponses.WithLabelValues(string(ResponseAccept)).Inc()
		s.notifyAccepted(ctx, actorID, m, conv.ID)
		s.publish(ctx, events.MatchAccepted, m)
	}

	return &RespondResult{Match: m, ConversationID: &conv.ID}, nil
}

func (s *service) decline(ctx context.Context, m *Match) (*RespondResult, error) {
	changed, err := s.Repo.SetStatus(ctx, m.ID, StatusDeclined, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to decline match: %w", err)
	}
	if !changed {
		if m, err = s.Repo.Get(ctx, m.ID); err != nil {
			return nil, err
		}
		if m.Status != StatusDeclined {
			return nil, ErrMatchClosed
		}
		return &RespondResult{Match: m}, nil
	}

	m.Status = StatusDeclined
	matchResponses.WithLabelValues(string(ResponseDecline)).Inc()
	s.publish(ctx, events.MatchDeclined, m)

	return &RespondResult{Match: m}, nil
}

func (s *service) notifyAccepted(ctx context.Context, actorID int64, m *Match, conversationID int64) {
	if s.Notifier == nil {
		return
	}

	name := "Your match"
	if actor, err := s.Profiles.GetProfile(ctx, actorID); err == nil {
		name = actor.Name
	}

	_, err := s.Notifier.Notify(ctx, notifications.NotifyInput{
		UserID:    m.Counterpart(actorID),
		Title:     "It's a Match! 🎉",
		Message:   fmt.Sprintf("%s accepted your match! Start chatting now.", name),
		Type:      notifications.TypeMatch,
		ActionURL: fmt.Sprintf("/chat/%d", conversationID),
		Data: notifications.NotificationData{
			"match_id":        m.ID,
			"conversation_id": conversationID,
		},
	})
	if err != nil {
		s.logger.Warn("failed to notify counterpart", zap.Int64("match_id", m.ID), zap.Error(err))
	}
}

// Meetup suggests a first meetup for an open or mutual match
func (s *service) Meetup(ctx context.Context, actorID, matchID int64) (*MeetupResponse, error) {
	m, err := s.participantMatch(ctx, actorID, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != StatusPending && m.Status != StatusMutual {
		return nil, ErrMatchClosed
	}

	a, err := s.Profiles.GetProfile(ctx, m.User1ID)
	if err != nil {
		return nil, err
	}
	b, err := s.Profiles.GetProfile(ctx, m.User2ID)
	if err != nil {
		return nil, err
	}

	return &MeetupResponse{
		MatchID:    m.ID,
		Suggestion: s.Meetups.Meetup(ctx, a, b, m.CommonInterests),
	}, nil
}

// ExpireDue moves every pending match past its expiry to expired. A match
// accepted or declined in the meantime is left alone.
func (s *service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.Repo.ListExpiredPending(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired matches: %w", err)
	}

	expired := 0
	for _, m := range due {
		changed, err := s.Repo.SetStatus(ctx, m.ID, StatusExpired, StatusPending)
		if err != nil {
			s.logger.Error("failed to expire match", zap.Int64("match_id", m.ID), zap.Error(err))
			continue
		}
		if !changed {
			continue
		}

		expired++
		m.Status = StatusExpired
		matchesExpired.Inc()
		s.publish(ctx, events.MatchExpired, m)
	}

	return expired, nil
}

func (s *service) participantMatch(ctx context.Context, actorID, matchID int64) (*Match, error) {
	if actorID == 0 {
		return nil, ErrUnauthorized
	}

	m, err := s.Repo.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.HasParticipant(actorID) {
		return nil, ErrUnauthorized
	}
	return m, nil
}

func (s *service) publish(ctx context.Context, eventType events.Type, m *Match) {
	s.Publisher.Publish(ctx, events.MatchEvent{
		Type:       eventType,
		MatchID:    m.ID,
		User1ID:    m.User1ID,
		User2ID:    m.User2ID,
		Score:      m.CompatibilityScore,
		Status:     string(m.Status),
		OccurredAt: time.Now().UTC(),
	})
}
