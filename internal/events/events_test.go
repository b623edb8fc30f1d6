package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestNewPublisherWithoutBrokers(t *testing.T) {
	pub := NewPublisher(nil, "xperia.match-events", zap.NewNop())
	assert.IsType(t, NopPublisher{}, pub)
	pub.Publish(context.Background(), MatchEvent{Type: MatchProposed})
	assert.NoError(t, pub.Close())
}

func TestKafkaPublisherEncodesEvent(t *testing.T) {
	writer := &fakeWriter{}
	pub := &KafkaPublisher{writer: writer, logger: zap.NewNop()}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pub.Publish(context.Background(), MatchEvent{
		Type: MatchAccepted, MatchID: 42, User1ID: 1, User2ID: 2, Score: 80, Status: "mutual", OccurredAt: at,
	})

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, at, msg.Time)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "match.accepted", decoded["type"])
	assert.Equal(t, float64(42), decoded["match_id"])
	assert.Equal(t, float64(80), decoded["score"])
	assert.Equal(t, "mutual", decoded["status"])
	assert.Equal(t, "2026-03-01T12:00:00Z", decoded["occurred_at"])

	require.NoError(t, pub.Close())
	assert.True(t, writer.closed)
}

func TestKafkaPublisherSwallowsErrors(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	pub := &KafkaPublisher{writer: writer, logger: zap.NewNop()}

	before := testutil.ToFloat64(publishErrors.WithLabelValues(string(MatchExpired)))
	pub.Publish(context.Background(), MatchEvent{Type: MatchExpired, MatchID: 7})
	after := testutil.ToFloat64(publishErrors.WithLabelValues(string(MatchExpired)))

	assert.Equal(t, before+1, after)
	assert.Empty(t, writer.messages)
}
