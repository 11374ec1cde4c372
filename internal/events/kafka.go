package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is satisfied by *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// envelope is the wire format on the topic.
type envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Topics    []string        `json:"topics"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// KafkaPublisher writes events to one Kafka topic, keyed by their first
// subscriber topic so events of one order stay in one partition.
type KafkaPublisher struct {
	w   messageWriter
	log *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{w: w, log: log}
}

func (k *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(envelope{
		EventID:   e.ID,
		EventType: e.Type,
		Topics:    e.Topics,
		Payload:   e.Payload,
		Timestamp: e.Time,
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	var key []byte
	if len(e.Topics) > 0 {
		key = []byte(e.Topics[0])
	}

	if err := k.w.WriteMessages(ctx, kafka.Message{Key: key, Value: value, Time: e.Time}); err != nil {
		k.log.Error("kafka publish failed", zap.String("event_type", e.Type), zap.Error(err))
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.w.Close()
}
