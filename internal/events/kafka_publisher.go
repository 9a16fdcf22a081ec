package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	kafkaBatchTimeout = 10 * time.Millisecond
	kafkaWriteTimeout = 5 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublishObserver is told about every forwarded event.
type PublishObserver interface {
	EventPublished(sink string, err error)
}

// KafkaPublisher forwards dispatched events to Kafka, one topic per event type.
type KafkaPublisher struct {
	writer      messageWriter
	topicPrefix string
	logger      *zap.Logger
	observer    PublishObserver
}

// NewKafkaPublisher builds a publisher writing to the given brokers.
func NewKafkaPublisher(brokers []string, topicPrefix string, logger *zap.Logger, observer PublishObserver) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return newKafkaPublisher(newKafkaWriter(brokers), topicPrefix, logger, observer), nil
}

// newKafkaWriter flushes each event almost immediately; events arrive one at
// a time so waiting for a full batch only adds latency.
func newKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           kafkaBatchTimeout,
		WriteTimeout:           kafkaWriteTimeout,
		AllowAutoTopicCreation: true,
	}
}

func newKafkaPublisher(w messageWriter, topicPrefix string, logger *zap.Logger, observer PublishObserver) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: w, topicPrefix: topicPrefix, logger: logger, observer: observer}
}

// Handle writes one event. Messages for the same escalation share a key so
// they land on the same partition in order.
func (p *KafkaPublisher) Handle(ctx context.Context, event Event) error {
	msg, err := p.buildMessage(event)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, msg)
	if p.observer != nil {
		p.observer.EventPublished("kafka", err)
	}
	if err != nil {
		p.logger.Warn("kafka publish failed",
			zap.String("topic", msg.Topic),
			zap.String("escalation_id", event.EscalationID),
			zap.Error(err))
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) buildMessage(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafka.Message{
		Topic: p.topic(event.Type),
		Key:   []byte(event.EscalationID),
		Value: value,
		Time:  ts.UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}, nil
}

func (p *KafkaPublisher) topic(t EventType) string {
	if p.topicPrefix == "" {
		return string(t)
	}
	return p.topicPrefix + "." + string(t)
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
