// internal/events/events.go
// Match lifecycle events published to Kafka

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Type string

const (
	MatchProposed Type = "match.proposed"
	MatchAccepted Type = "match.accepted"
	MatchDeclined Type = "match.declined"
	MatchExpired  Type = "match.expired"
)

// MatchEvent is the payload of every lifecycle event
type MatchEvent struct {
	Type       Type      `json:"type"`
	MatchID    int64     `json:"match_id"`
	User1ID    int64     `json:"user1_id"`
	User2ID    int64     `json:"user2_id"`
	Score      int       `json:"score"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits lifecycle events. Publish never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, event MatchEvent)
	Close() error
}

var publishErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "xperia_events_publish_errors_total",
		Help: "Match events that could not be published",
	},
	[]string{"type"},
)

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event MatchEvent) {}

func (NopPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic, keyed by match id
type KafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers and topic
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	logger = logger.With(zap.String("component", "events"))

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Warn(fmt.Sprintf(msg, args...))
		}),
	}

	logger.Info("kafka publisher initialized", zap.Strings("brokers", brokers), zap.String("topic", topic))

	return &KafkaPublisher{writer: writer, logger: logger}
}

// NewPublisher returns a Kafka publisher, or a NopPublisher when no brokers
// are configured
func NewPublisher(brokers []string, topic string, logger *zap.Logger) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic, logger)
}

func (p *KafkaPublisher) Publish(ctx context.Context, event MatchEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		publishErrors.WithLabelValues(string(event.Type)).Inc()
		p.logger.Error("failed to encode event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.MatchID, 10)),
		Value: value,
		Time:  event.OccurredAt,
	})
	if err != nil {
		publishErrors.WithLabelValues(string(event.Type)).Inc()
		p.logger.Warn("failed to publish event",
			zap.String("type", string(event.Type)),
			zap.Int64("match_id", event.MatchID),
			zap.Error(err))
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
