// internal/notification/email.go

package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridEmailService implements email notifications using SendGrid
type SendGridEmailService struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

// NewSendGridEmailService creates a new SendGrid email service
func NewSendGridEmailService(apiKey, from, fromName string) (*SendGridEmailService, error) {
	if apiKey == "" || from == "" {
		return nil, fmt.Errorf("incomplete SendGrid configuration")
	}

	return &SendGridEmailService{
		client:   sendgrid.NewSendClient(apiKey),
		from:     from,
		fromName: fromName,
	}, nil
}

// SendEmail sends a single email via SendGrid
func (s *SendGridEmailService) SendEmail(ctx context.Context, notification *EmailNotification) error {
	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.from),
		notification.Subject,
		mail.NewEmail(notification.ToName, notification.To),
		notification.Body,
		notification.HTML,
	)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// MockEmailService records emails instead of sending them
type MockEmailService struct {
	mu   sync.Mutex
	Sent []*EmailNotification
}

func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

func (m *MockEmailService) SendEmail(ctx context.Context, notification *EmailNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, notification)
	return nil
}

// Emails returns a copy of the recorded emails
func (m *MockEmailService) Emails() []*EmailNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*EmailNotification(nil), m.Sent...)
}

const baseEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: linear-gradient(135deg, #0ea5e9 0%, #6366f1 100%); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
        .content { background: white; padding: 30px; border: 1px solid #e0e0e0; border-radius: 0 0 10px 10px; }
        .button { display: inline-block; padding: 12px 30px; background: #6366f1; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { text-align: center; padding: 20px; color: #666; font-size: 14px; }
    </style>
</head>
<body>
    <div class="header"><h1>{{.Title}}</h1></div>
    <div class="content">
        <p>Hi {{.Name}},</p>
        <p>{{.Message}}</p>
        {{if .ActionURL}}<a class="button" href="{{.ActionURL}}">Open Xperia</a>{{end}}
    </div>
    <div class="footer"><p>You are receiving this because email alerts are on for your Xperia account.</p></div>
</body>
</html>`

var emailTemplate = template.Must(template.New("email").Parse(baseEmailTemplate))

// renderEmail builds the HTML body for a notification
func renderEmail(name string, n *Notification, actionURL string) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, map[string]string{
		"Title":     n.Title,
		"Name":      name,
		"Message":   n.Message,
		"ActionURL": actionURL,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
