package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xperia/xperia-backend/internal/auth"
	"github.com/xperia/xperia-backend/internal/common/database"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "notifications.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })

	now := time.Now().UTC()
	for _, id := range []int64{1, 2} {
		_, err := db.Exec(`INSERT INTO users (id, email, password_hash, name, created_at, updated_at) VALUES (?, ?, 'x', ?, ?, ?)`,
			id, fmt.Sprintf("user%d@example.com", id), fmt.Sprintf("user%d", id), now, now)
		require.NoError(t, err)
	}
	return db
}

type recordedEvent struct {
	userID    int64
	eventType string
}

type fakeRealtime struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeRealtime) SendEvent(userID int64, eventType string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{userID: userID, eventType: eventType})
}

type fixture struct {
	svc      Service
	repo     Repository
	realtime *fakeRealtime
	push     *MockPushService
	email    *MockEmailService
	sms      *MockSMSService
}

func newFixture(t *testing.T) *fixture {
	repo := NewPostgresRepository(newTestDB(t))
	f := &fixture{
		repo:     repo,
		realtime: &fakeRealtime{},
		push:     NewMockPushService(),
		email:    NewMockEmailService(),
		sms:      NewMockSMSService(),
	}

	contacts := func(ctx context.Context, userID int64) (*Contact, error) {
		return &Contact{Name: "Bob", Email: "bob@example.com", Phone: "+15550100"}, nil
	}

	f.svc = NewService(repo, Channels{
		Realtime: f.realtime,
		Push:     f.push,
		Email:    f.email,
		SMS:      f.sms,
		Contacts: contacts,
	}, Options{EnablePush: true, EnableEmail: true, EnableSMS: true, BaseURL: "https://xperia.app"}, zap.NewNop())
	return f
}

func TestNotifyFansOutMatchNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RegisterPushToken(ctx, 2, &RegisterPushTokenRequest{Platform: PlatformIOS, Token: "tok-1"}))

	n, err := f.svc.Notify(ctx, NotifyInput{
		UserID:    2,
		Title:     "It's a Match! 🎉",
		Message:   "Alice accepted your match! Start chatting now.",
		Type:      TypeMatch,
		ActionURL: "/chat/7",
	})
	require.NoError(t, err)
	f.svc.Wait()

	assert.NotZero(t, n.ID)
	require.NotNil(t, n.ActionURL)
	assert.Equal(t, "/chat/7", *n.ActionURL)

	require.Len(t, f.realtime.events, 1)
	assert.Equal(t, "notification", f.realtime.events[0].eventType)

	pushes := f.push.Pushes()
	require.Len(t, pushes, 1)
	assert.Equal(t, []string{"tok-1"}, pushes[0].Tokens)
	assert.Equal(t, "/chat/7", pushes[0].Data["action_url"])

	emails := f.email.Emails()
	require.Len(t, emails, 1)
	assert.Equal(t, "bob@example.com", emails[0].To)
	assert.Contains(t, emails[0].HTML, "https://xperia.app/chat/7")

	require.Len(t, f.sms.Messages(), 1)
}

func TestNotifyMessageSkipsEmailAndSMS(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Notify(context.Background(), NotifyInput{
		UserID:  2,
		Title:   "New message from Alice",
		Message: "hello",
		Type:    TypeMessage,
	})
	require.NoError(t, err)
	f.svc.Wait()

	assert.Empty(t, f.email.Emails())
	assert.Empty(t, f.sms.Messages())
	assert.Empty(t, f.push.Pushes(), "no registered device")
}

func TestListAndMarkAsRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 25; i++ {
		n, err := f.svc.Notify(ctx, NotifyInput{UserID: 2, Title: fmt.Sprintf("n%d", i), Message: "m", Type: TypeSystem})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	f.svc.Wait()

	feed, err := f.svc.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, feed.Notifications, FeedLimit)
	assert.Equal(t, "n24", feed.Notifications[0].Title, "newest first")
	assert.Equal(t, 25, feed.UnreadCount)

	assert.ErrorIs(t, f.svc.MarkAsRead(ctx, 1, ids[0]), ErrUnauthorized)
	assert.ErrorIs(t, f.svc.MarkAsRead(ctx, 2, 9999), ErrNotificationNotFound)
	assert.ErrorIs(t, f.svc.MarkAsRead(ctx, 0, ids[0]), ErrUnauthorized)

	require.NoError(t, f.svc.MarkAsRead(ctx, 2, ids[0]))
	count, err := f.svc.UnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 24, count)

	read, err := f.repo.GetNotification(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.NotNil(t, read.ReadAt)

	require.NoError(t, f.svc.MarkAllAsRead(ctx, 2))
	count, err = f.svc.UnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, count)

	empty, err := f.svc.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, empty.Notifications)
}

func TestRegisterPushTokenMovesToLatestUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RegisterPushToken(ctx, 1, &RegisterPushTokenRequest{Platform: PlatformAndroid, Token: "shared"}))
	require.NoError(t, f.svc.RegisterPushToken(ctx, 2, &RegisterPushTokenRequest{Platform: PlatformAndroid, Token: "shared"}))

	tokens, err := f.repo.GetUserPushTokens(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	tokens, err = f.repo.GetUserPushTokens(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"shared"}, tokens)
}

func TestNotificationDataRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.svc.Notify(ctx, NotifyInput{UserID: 1, Title: "t", Message: "m", Type: TypeMatch, Data: NotificationData{"match_id": float64(3)}})
	require.NoError(t, err)
	f.svc.Wait()

	stored, err := f.repo.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(3), stored.Data["match_id"])
	assert.Nil(t, stored.ActionURL)
}

func TestHandlers(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	ctx := context.Background()

	n, err := f.svc.Notify(ctx, NotifyInput{UserID: 2, Title: "t", Message: "m", Type: TypeSystem})
	require.NoError(t, err)
	f.svc.Wait()

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/notifications", h.GetNotifications).Methods("GET")
	router.HandleFunc("/api/v1/notifications/{id}/read", h.MarkAsRead).Methods("PUT")
	router.HandleFunc("/api/v1/notifications/push-token", h.RegisterPushToken).Methods("POST")

	do := func(method, target string, body []byte, userID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, bytes.NewReader(body))
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet, "/api/v1/notifications", nil, 2)
	require.Equal(t, http.StatusOK, rec.Code)
	var feed NotificationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	assert.Equal(t, 1, feed.UnreadCount)

	rec = do(http.MethodPut, fmt.Sprintf("/api/v1/notifications/%d/read", n.ID), nil, 1)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(http.MethodPut, "/api/v1/notifications/404/read", nil, 2)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(http.MethodPost, "/api/v1/notifications/push-token", []byte(`{"platform":"blackberry","token":"x"}`), 2)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPost, "/api/v1/notifications/push-token", []byte(`{"platform":"web","token":"x"}`), 2)
	assert.Equal(t, http.StatusOK, rec.Code)
}
