// internal/messaging/service.go

package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	notifications "github.com/xperia/xperia-backend/internal/notification"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("not a participant in this conversation")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmptyMessage         = errors.New("message content is required")
)

// notificationPreviewRunes is the length of the message preview in
// notifications
const notificationPreviewRunes = 50

// Service interface
type Service interface {
	OpenForMatch(ctx context.Context, matchID, user1ID, user2ID int64) (*Conversation, error)
	ListConversations(ctx context.Context, actorID int64) ([]*ConversationSummary, error)
	GetMessages(ctx context.Context, actorID, conversationID int64) ([]*Message, error)
	SendMessage(ctx context.Context, actorID, conversationID int64, req *SendMessageRequest) (*Message, error)
	Typing(ctx context.Context, actorID, conversationID int64, typing bool) error
}

// Notifier creates in-app notifications
type Notifier interface {
	Notify(ctx context.Context, input notifications.NotifyInput) (*notifications.Notification, error)
}

// MessageService implements Service
type MessageService struct {
	repo     Repository
	hub      *Hub
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates the messaging service. hub and notifier may be nil.
func NewService(repo Repository, hub *Hub, notifier Notifier, logger *zap.Logger) *MessageService {
	return &MessageService{
		repo:     repo,
		hub:      hub,
		notifier: notifier,
		logger:   logger.With(zap.String("component", "messaging")),
		now:      time.Now,
	}
}

// OpenForMatch returns the conversation of a match, creating it on first
// call. Concurrent calls for the same match get the same conversation.
func (s *MessageService) OpenForMatch(ctx context.Context, matchID, user1ID, user2ID int64) (*Conversation, error) {
	err := s.repo.CreateForMatch(ctx, &Conversation{
		MatchID:        matchID,
		Participant1ID: user1ID,
		Participant2ID: user2ID,
		IsActive:       true,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return s.repo.GetByMatchID(ctx, matchID)
}

func (s *MessageService) ListConversations(ctx context.Context, actorID int64) ([]*ConversationSummary, error) {
	if actorID == 0 {
		return []*ConversationSummary{}, nil
	}
	return s.repo.ListForUser(ctx, actorID)
}

// GetMessages returns the conversation history in chronological order
func (s *MessageService) GetMessages(ctx context.Context, actorID, conversationID int64) ([]*Message, error) {
	if _, err := s.conversationFor(ctx, actorID, conversationID); err != nil {
		return nil, err
	}
	return s.repo.GetConversationMessages(ctx, conversationID)
}

// SendMessage stores the message, updates the conversation preview, pushes
// the message to connected participants and notifies the others
func (s *MessageService) SendMessage(ctx context.Context, actorID, conversationID int64, req *SendMessageRequest) (*Message, error) {
	conv, err := s.conversationFor(ctx, actorID, conversationID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	messageType := req.MessageType
	if messageType == "" {
		messageType = MessageTypeText
	}

	now := s.now().UTC()
	message := &Message{
		ConversationID: conversationID,
		SenderID:       actorID,
		Content:        content,
		MessageType:    messageType,
		IsFromAgent:    false,
		CreatedAt:      now,
	}

	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	if err := s.repo.UpdateConversationLastMessage(ctx, conversationID, content, now); err != nil {
		s.logger.Warn("failed to update last message", zap.Int64("conversation_id", conversationID), zap.Error(err))
	}

	sender, err := s.repo.GetUserInfo(ctx, actorID)
	if err != nil {
		s.logger.Warn("failed to load sender", zap.Int64("user_id", actorID), zap.Error(err))
		sender = &UserInfo{UserID: actorID}
	}
	message.Sender = sender

	if s.hub != nil {
		frame := WSMessage{Type: string(WSTypeMessage), Data: mustMarshal(message), Timestamp: now}
		// the sender's other devices get it too
		s.hub.SendToConversation(conv, frame, 0)
	}

	s.notifyRecipients(ctx, conv, sender, content)

	return message, nil
}

func (s *MessageService) notifyRecipients(ctx context.Context, conv *Conversation, sender *UserInfo, content string) {
	if s.notifier == nil {
		return
	}

	for _, userID := range conv.Participants() {
		if userID == sender.UserID {
			continue
		}

		_, err := s.notifier.Notify(ctx, notifications.NotifyInput{
			UserID:    userID,
			Title:     fmt.Sprintf("New message from %s", sender.Name),
			Message:   Preview(content),
			Type:      notifications.TypeMessage,
			ActionURL: fmt.Sprintf("/chat/%d", conv.ID),
		})
		if err != nil {
			s.logger.Warn("failed to notify recipient", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
}

// Typing forwards a typing indicator to the other participant
func (s *MessageService) Typing(ctx context.Context, actorID, conversationID int64, typing bool) error {
	conv, err := s.conversationFor(ctx, actorID, conversationID)
	if err != nil {
		return err
	}
	if s.hub == nil {
		return nil
	}

	msgType := WSTypeStopTyping
	if typing {
		msgType = WSTypeTyping
	}

	s.hub.SendToConversation(conv, WSMessage{
		Type: string(msgType),
		Data: mustMarshal(map[string]int64{
			"conversation_id": conversationID,
			"user_id":         actorID,
		}),
		Timestamp: s.now().UTC(),
	}, actorID)
	return nil
}

func (s *MessageService) conversationFor(ctx context.Context, actorID, conversationID int64) (*Conversation, error) {
	if actorID == 0 {
		return nil, ErrUnauthorized
	}

	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(actorID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// Preview cuts content to the notification preview length
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= notificationPreviewRunes {
		return content
	}
	return string(runes[:notificationPreviewRunes]) + "..."
}
