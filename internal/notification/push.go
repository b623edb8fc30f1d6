// internal/notification/push.go

package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FCMPushService implements push notifications using Firebase Cloud Messaging
type FCMPushService struct {
	client *messaging.Client
	logger *zap.Logger
}

// NewFCMPushService creates a new FCM push service from a credentials file
// or inline credentials JSON
func NewFCMPushService(ctx context.Context, credentialsPath, credentialsJSON string, logger *zap.Logger) (*FCMPushService, error) {
	var opt option.ClientOption
	switch {
	case credentialsPath != "":
		opt = option.WithCredentialsFile(credentialsPath)
	case credentialsJSON != "":
		opt = option.WithCredentialsJSON([]byte(credentialsJSON))
	default:
		return nil, errors.New("FIREBASE_CREDENTIALS_PATH or FIREBASE_CREDENTIALS_JSON must be set")
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return &FCMPushService{client: client, logger: logger}, nil
}

// SendPush sends one notification to every token and returns the tokens FCM
// reports as unregistered
func (s *FCMPushService) SendPush(ctx context.Context, notification *PushNotification) ([]string, error) {
	if len(notification.Tokens) == 0 {
		return nil, nil
	}

	data := make(map[string]string, len(notification.Data)+2)
	for k, v := range notification.Data {
		data[k] = v
	}
	data["title"] = notification.Title
	data["body"] = notification.Body

	message := &messaging.MulticastMessage{
		Tokens: notification.Tokens,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{Title: notification.Title, Body: notification.Body},
					Sound: "default",
				},
			},
		},
	}

	batch, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to send push notification: %w", err)
	}

	var unregistered []string
	for idx, resp := range batch.Responses {
		if resp.Error == nil {
			continue
		}
		if messaging.IsUnregistered(resp.Error) {
			unregistered = append(unregistered, notification.Tokens[idx])
			continue
		}
		s.logger.Warn("push delivery failed", zap.Int("token_index", idx), zap.Error(resp.Error))
	}

	s.logger.Debug("push sent",
		zap.Int("success", batch.SuccessCount),
		zap.Int("failure", batch.FailureCount),
	)
	return unregistered, nil
}

// MockPushService records pushes instead of sending them
type MockPushService struct {
	mu   sync.Mutex
	Sent []*PushNotification
}

func NewMockPushService() *MockPushService {
	return &MockPushService{}
}

func (m *MockPushService) SendPush(ctx context.Context, notification *PushNotification) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, notification)
	return nil, nil
}

// Pushes returns a copy of the recorded pushes
func (m *MockPushService) Pushes() []*PushNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*PushNotification(nil), m.Sent...)
}
