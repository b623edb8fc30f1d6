package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUnauthorized         = errors.New("unauthorized")
)

// FeedLimit is the number of notifications returned by List
const FeedLimit = 20

const deliveryTimeout = 30 * time.Second

type Service interface {
	Notify(ctx context.Context, input NotifyInput) (*Notification, error)

	List(ctx context.Context, actorID int64) (*NotificationsResponse, error)
	UnreadCount(ctx context.Context, actorID int64) (int, error)
	MarkAsRead(ctx context.Context, actorID, notificationID int64) error
	MarkAllAsRead(ctx context.Context, actorID int64) error

	RegisterPushToken(ctx context.Context, actorID int64, req *RegisterPushTokenRequest) error

	// Wait blocks until background deliveries have finished
	Wait()
}

// External service interfaces
type PushService interface {
	SendPush(ctx context.Context, notification *PushNotification) (unregistered []string, err error)
}

type EmailService interface {
	SendEmail(ctx context.Context, notification *EmailNotification) error
}

type SMSService interface {
	SendSMS(ctx context.Context, notification *SMSNotification) error
}

// RealtimeSender delivers an event to a user's open websocket connections
type RealtimeSender interface {
	SendEvent(userID int64, eventType string, data interface{})
}

// ContactLookupFunc resolves the email and phone of a user
type ContactLookupFunc func(ctx context.Context, userID int64) (*Contact, error)

// Channels holds the optional delivery channels. Nil members are skipped.
type Channels struct {
	Realtime RealtimeSender
	Push     PushService
	Email    EmailService
	SMS      SMSService
	Contacts ContactLookupFunc
}

// Options configures delivery
type Options struct {
	EnablePush  bool
	EnableEmail bool
	EnableSMS   bool
	// BaseURL prefixes action URLs in emails
	BaseURL string
}

type service struct {
	repo     Repository
	channels Channels
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

func NewService(repo Repository, channels Channels, opts Options, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		channels: channels,
		opts:     opts,
		logger:   logger.With(zap.String("component", "notifications")),
		now:      time.Now,
	}
}

// Notify persists the notification and fans it out in the background.
// Delivery failures are logged only.
func (s *service) Notify(ctx context.Context, input NotifyInput) (*Notification, error) {
	n := &Notification{
		UserID:    input.UserID,
		Title:     input.Title,
		Message:   input.Message,
		Type:      input.Type,
		Data:      input.Data,
		CreatedAt: s.now().UTC(),
	}
	if input.ActionURL != "" {
		actionURL := input.ActionURL
		n.ActionURL = &actionURL
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	s.deliver(n)
	return n, nil
}

func (s *service) deliver(n *Notification) {
	if s.channels.Realtime != nil {
		s.channels.Realtime.SendEvent(n.UserID, "notification", n)
	}

	if s.opts.EnablePush && s.channels.Push != nil {
		s.background(func(ctx context.Context) { s.sendPush(ctx, n) })
	}

	if n.Type != TypeMatch || s.channels.Contacts == nil {
		return
	}
	if s.opts.EnableEmail && s.channels.Email != nil {
		s.background(func(ctx context.Context) { s.sendEmail(ctx, n) })
	}
	if s.opts.EnableSMS && s.channels.SMS != nil {
		s.background(func(ctx context.Context) { s.sendSMS(ctx, n) })
	}
}

// background runs fn detached from the request context
func (s *service) background(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (s *service) sendPush(ctx context.Context, n *Notification) {
	tokens, err := s.repo.GetUserPushTokens(ctx, n.UserID)
	if err != nil {
		s.logger.Warn("failed to load push tokens", zap.Int64("user_id", n.UserID), zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}

	data := map[string]string{
		"notification_id": fmt.Sprint(n.ID),
		"type":            string(n.Type),
	}
	if n.ActionURL != nil {
		data["action_url"] = *n.ActionURL
	}

	unregistered, err := s.channels.Push.SendPush(ctx, &PushNotification{
		Tokens: tokens,
		Title:  n.Title,
		Body:   n.Message,
		Data:   data,
	})
	if err != nil {
		s.logger.Warn("push delivery failed", zap.Int64("user_id", n.UserID), zap.Error(err))
		return
	}

	for _, token := range unregistered {
		if err := s.repo.DeletePushToken(ctx, token); err != nil {
			s.logger.Warn("failed to prune push token", zap.Error(err))
		}
	}
}

func (s *service) sendEmail(ctx context.Context, n *Notification) {
	contact, err := s.channels.Contacts(ctx, n.UserID)
	if err != nil || contact == nil || contact.Email == "" {
		return
	}

	actionURL := ""
	if n.ActionURL != nil {
		actionURL = strings.TrimRight(s.opts.BaseURL, "/") + *n.ActionURL
	}

	html, err := renderEmail(contact.Name, n, actionURL)
	if err != nil {
		s.logger.Warn("failed to render email", zap.Error(err))
		return
	}

	err = s.channels.Email.SendEmail(ctx, &EmailNotification{
		To:      contact.Email,
		ToName:  contact.Name,
		Subject: n.Title,
		Body:    n.Message,
		HTML:    html,
	})
	if err != nil {
		s.logger.Warn("email delivery failed", zap.Int64("user_id", n.UserID), zap.Error(err))
	}
}

func (s *service) sendSMS(ctx context.Context, n *Notification) {
	contact, err := s.channels.Contacts(ctx, n.UserID)
	if err != nil || contact == nil || contact.Phone == "" {
		return
	}

	err = s.channels.SMS.SendSMS(ctx, &SMSNotification{
		To:      contact.Phone,
		Message: fmt.Sprintf("Xperia: %s", n.Message),
	})
	if err != nil {
		s.logger.Warn("sms delivery failed", zap.Int64("user_id", n.UserID), zap.Error(err))
	}
}

func (s *service) Wait() {
	s.wg.Wait()
}

// List returns the newest notifications of the actor with the unread count
func (s *service) List(ctx context.Context, actorID int64) (*NotificationsResponse, error) {
	if actorID == 0 {
		return &NotificationsResponse{Notifications: []*Notification{}}, nil
	}

	notifications, err := s.repo.GetUserNotifications(ctx, actorID, FeedLimit)
	if err != nil {
		return nil, err
	}

	unread, err := s.repo.CountUnread(ctx, actorID)
	if err != nil {
		return nil, err
	}

	return &NotificationsResponse{Notifications: notifications, UnreadCount: unread}, nil
}

func (s *service) UnreadCount(ctx context.Context, actorID int64) (int, error) {
	if actorID == 0 {
		return 0, nil
	}
	return s.repo.CountUnread(ctx, actorID)
}

func (s *service) MarkAsRead(ctx context.Context, actorID, notificationID int64) error {
	if actorID == 0 {
		return ErrUnauthorized
	}

	n, err := s.repo.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != actorID {
		return ErrUnauthorized
	}

	return s.repo.MarkAsRead(ctx, notificationID, s.now().UTC())
}

func (s *service) MarkAllAsRead(ctx context.Context, actorID int64) error {
	if actorID == 0 {
		return ErrUnauthorized
	}
	_, err := s.repo.MarkAllAsRead(ctx, actorID, s.now().UTC())
	return err
}

func (s *service) RegisterPushToken(ctx context.Context, actorID int64, req *RegisterPushTokenRequest) error {
	if actorID == 0 {
		return ErrUnauthorized
	}

	now := s.now().UTC()
	return s.repo.SavePushToken(ctx, &PushToken{
		UserID:    actorID,
		Platform:  req.Platform,
		Token:     req.Token,
		DeviceID:  req.DeviceID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}
