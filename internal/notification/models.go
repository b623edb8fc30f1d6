// internal/notification/models.go

package notifications

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// NotificationType represents different notification types
type NotificationType string

const (
	TypeMatch   NotificationType = "match"
	TypeMessage NotificationType = "message"
	TypeSystem  NotificationType = "system"
)

// Platform represents device platforms
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// Notification is an in-app notification. Rows are never deleted.
type Notification struct {
	ID        int64            `json:"id" db:"id"`
	UserID    int64            `json:"user_id" db:"user_id"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	ActionURL *string          `json:"action_url,omitempty" db:"action_url"`
	Data      NotificationData `json:"data,omitempty" db:"data"`
	ReadAt    *time.Time       `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// NotificationData represents additional notification data
type NotificationData map[string]interface{}

// Scan implements sql.Scanner interface
func (nd *NotificationData) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*nd = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into NotificationData", value)
	}
	return json.Unmarshal(raw, nd)
}

// Value implements driver.Valuer interface
func (nd NotificationData) Value() (driver.Value, error) {
	if nd == nil {
		return nil, nil
	}
	b, err := json.Marshal(nd)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// PushToken represents a device push token
type PushToken struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Platform  Platform  `json:"platform" db:"platform"`
	Token     string    `json:"token" db:"token"`
	DeviceID  string    `json:"device_id" db:"device_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Contact is where out-of-app channels reach a user
type Contact struct {
	Name  string
	Email string
	Phone string
}

// NotifyInput is what other modules pass to Notify
type NotifyInput struct {
	UserID    int64
	Title     string
	Message   string
	Type      NotificationType
	ActionURL string
	Data      NotificationData
}

// EmailNotification represents an email notification
type EmailNotification struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
}

// SMSNotification represents an SMS notification
type SMSNotification struct {
	To      string
	Message string
}

// PushNotification represents a push notification
type PushNotification struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}

// RegisterPushTokenRequest represents request to register a push token
type RegisterPushTokenRequest struct {
	Platform Platform `json:"platform" validate:"required,oneof=ios android web"`
	Token    string   `json:"token" validate:"required,max=4096"`
	DeviceID string   `json:"device_id" validate:"max=255"`
}

// NotificationsResponse is the notification feed
type NotificationsResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
}
