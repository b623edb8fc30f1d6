package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xperia/xperia-backend/internal/auth"
	"github.com/xperia/xperia-backend/internal/common/database"
	notifications "github.com/xperia/xperia-backend/internal/notification"
)

type fakeNotifier struct {
	mu     sync.Mutex
	inputs []notifications.NotifyInput
}

func (f *fakeNotifier) Notify(ctx context.Context, input notifications.NotifyInput) (*notifications.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	return &notifications.Notification{UserID: input.UserID}, nil
}

func (f *fakeNotifier) all() []notifications.NotifyInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifications.NotifyInput(nil), f.inputs...)
}

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "messaging.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })

	now := time.Now().UTC()
	for id, name := range map[int64]string{1: "alice", 2: "bob", 3: "carol"} {
		_, err := db.Exec(`INSERT INTO users (id, email, password_hash, name, created_at, updated_at) VALUES (?, ?, 'x', ?, ?, ?)`,
			id, name+"@example.com", name, now, now)
		require.NoError(t, err)
	}

	_, err = db.Exec(`INSERT INTO profiles (user_id, name, age, interests, languages, travel_style, last_seen, created_at, updated_at)
		VALUES (1, 'Alice', 29, '["hiking"]', '["english"]', 'adventure', ?, ?, ?)`, now, now, now)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO matches (id, pair_key, user1_id, user2_id, compatibility_score, status, match_reason, common_interests, suggested_activities, created_by_agent, expires_at, created_at, updated_at)
		VALUES (10, '1:2', 1, 2, 80, 'mutual', 'You both love hiking', '["hiking"]', '["hiking"]', 1, ?, ?, ?)`,
		now.Add(7*24*time.Hour), now, now)
	require.NoError(t, err)
	return db
}

func newTestService(t *testing.T, hub *Hub) (*MessageService, *fakeNotifier) {
	notifier := &fakeNotifier{}
	return NewService(NewPostgresRepository(newTestDB(t)), hub, notifier, zap.NewNop()), notifier
}

func TestOpenForMatchIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.OpenForMatch(ctx, 10, 1, 2)
	require.NoError(t, err)
	second, err := svc.OpenForMatch(ctx, 10, 1, 2)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.IsActive)
	assert.Equal(t, []int64{1, 2}, first.Participants())
}

func TestSendMessageAndHistory(t *testing.T) {
	svc, notifier := newTestService(t, nil)
	ctx := context.Background()

	conv, err := svc.OpenForMatch(ctx, 10, 1, 2)
	require.NoError(t, err)

	long := strings.Repeat("é", 60)
	_, err = svc.SendMessage(ctx, 1, conv.ID, &SendMessageRequest{Content: "hi Bob!"})
	require.NoError(t, err)
	reply, err := svc.SendMessage(ctx, 2, conv.ID, &SendMessageRequest{Content: long})
	require.NoError(t, err)
	assert.Equal(t, MessageTypeText, reply.MessageType)
	assert.False(t, reply.IsFromAgent)

	messages, err := svc.GetMessages(ctx, 2, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hi Bob!", messages[0].Content)
	assert.Equal(t, "Alice", messages[0].Sender.Name, "profile name wins over account name")
	assert.Equal(t, "bob", messages[1].Sender.Name)

	sent := notifier.all()
	require.Len(t, sent, 2)
	assert.Equal(t, int64(2), sent[0].UserID)
	assert.Equal(t, "New message from Alice", sent[0].Title)
	assert.Equal(t, "hi Bob!", sent[0].Message)
	assert.Equal(t, notifications.TypeMessage, sent[0].Type)
	assert.Equal(t, fmt.Sprintf("/chat/%d", conv.ID), sent[0].ActionURL)

	assert.Equal(t, int64(1), sent[1].UserID)
	assert.Equal(t, strings.Repeat("é", 50)+"...", sent[1].Message)

	summaries, err := svc.ListConversations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Alice", summaries[0].OtherUser.Name)
	assert.Equal(t, 80, summaries[0].Match.CompatibilityScore)
	assert.Equal(t, []string{"hiking"}, []string(summaries[0].Match.CommonInterests))
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, long, *summaries[0].LastMessage)
}

func TestConversationAccess(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	conv, err := svc.OpenForMatch(ctx, 10, 1, 2)
	require.NoError(t, err)

	_, err = svc.GetMessages(ctx, 3, conv.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = svc.SendMessage(ctx, 3, conv.ID, &SendMessageRequest{Content: "let me in"})
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = svc.GetMessages(ctx, 0, conv.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.GetMessages(ctx, 1, 999)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = svc.SendMessage(ctx, 1, conv.ID, &SendMessageRequest{Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	summaries, err := svc.ListConversations(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))
	assert.Equal(t, strings.Repeat("a", 50), Preview(strings.Repeat("a", 50)))
	assert.Equal(t, strings.Repeat("a", 50)+"...", Preview(strings.Repeat("a", 51)))
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	assert.True(t, limiter.Allow("1"))
	assert.True(t, limiter.Allow("1"))
	assert.False(t, limiter.Allow("1"))
	assert.True(t, limiter.Allow("2"))
}

func TestWebSocketDelivery(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	svc, _ := newTestService(t, hub)
	ctx := context.Background()
	conv, err := svc.OpenForMatch(ctx, 10, 1, 2)
	require.NoError(t, err)

	h := NewHandler(svc, hub, nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.HandleWebSocket(w, r.WithContext(auth.WithUserID(r.Context(), 2)))
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connections(2) == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = svc.SendMessage(ctx, 1, conv.ID, &SendMessageRequest{Content: "over the wire"})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame WSMessage
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, string(WSTypeMessage), frame.Type)

	var delivered Message
	require.NoError(t, json.Unmarshal(frame.Data, &delivered))
	assert.Equal(t, "over the wire", delivered.Content)
	assert.Equal(t, int64(1), delivered.SenderID)

	// a websocket send from Bob lands in the history
	require.NoError(t, conn.WriteJSON(WSMessage{
		Type: string(WSTypeMessage),
		Data: mustMarshal(wsSendMessage{ConversationID: conv.ID, Content: "got it"}),
	}))

	require.NoError(t, conn.ReadJSON(&frame), "the sender's own connection receives the echo")
	require.NoError(t, json.Unmarshal(frame.Data, &delivered))
	assert.Equal(t, "got it", delivered.Content)

	messages, err := svc.GetMessages(ctx, 1, conv.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestHandlers(t *testing.T) {
	svc, _ := newTestService(t, nil)
	conv, err := svc.OpenForMatch(context.Background(), 10, 1, 2)
	require.NoError(t, err)

	h := NewHandler(svc, nil, nil)
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/conversations", h.GetConversations).Methods("GET")
	router.HandleFunc("/api/v1/conversations/{id:[0-9]+}/messages", h.GetMessages).Methods("GET")
	router.HandleFunc("/api/v1/conversations/{id:[0-9]+}/messages", h.SendMessage).Methods("POST")

	do := func(method, target, body string, userID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	path := fmt.Sprintf("/api/v1/conversations/%d/messages", conv.ID)

	rec := do(http.MethodPost, path, `{"content":"hello"}`, 1)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(http.MethodPost, path, `{"content":""}`, 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPost, path, `{"content":"hi","message_type":"video"}`, 1)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodGet, path, "", 3)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(http.MethodGet, "/api/v1/conversations/999/messages", "", 1)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(http.MethodGet, "/api/v1/conversations", "", 2)
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []ConversationSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "Alice", summaries[0].OtherUser.Name)
}
